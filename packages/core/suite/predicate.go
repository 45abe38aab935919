package suite

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/hostspec/packages/core/check"
	"gopkg.in/yaml.v3"
)

// decodePredicate turns one check item into a predicate. The item must be a
// mapping with exactly one predicate key plus an optional "not".
func decodePredicate(node *yaml.Node) (check.Predicate, error) {
	if node.Kind != yaml.MappingNode {
		return check.Predicate{}, fmt.Errorf("check must be a mapping")
	}

	var (
		key    string
		value  *yaml.Node
		negate bool
	)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i].Value, node.Content[i+1]
		if k == "not" {
			b, err := boolValue(v)
			if err != nil {
				return check.Predicate{}, err
			}
			negate = b
			continue
		}
		if key != "" {
			return check.Predicate{}, fmt.Errorf("check has more than one predicate: %s and %s", key, k)
		}
		key, value = k, v
	}
	if key == "" {
		return check.Predicate{}, fmt.Errorf("check has no predicate")
	}

	pred, err := predicateFor(key, value)
	if err != nil {
		return check.Predicate{}, fmt.Errorf("%s: %w", key, err)
	}
	if negate {
		pred = check.Not(pred)
	}
	return pred, nil
}

func predicateFor(key string, v *yaml.Node) (check.Predicate, error) {
	switch key {
	case "type":
		switch v.Value {
		case "directory":
			return check.IsDirectory(), nil
		case "file":
			return check.IsFile(), nil
		case "symlink":
			return check.IsSymlink(), nil
		}
		return check.Predicate{}, fmt.Errorf("unknown file type %q", v.Value)

	case "exists":
		return flag(check.Exists(), v)
	case "readable":
		return flag(check.Readable(), v)
	case "writable":
		return flag(check.Writable(), v)
	case "executable":
		return flag(check.Executable(), v)

	case "owner":
		return check.OwnedBy(v.Value), nil
	case "group":
		return check.GroupedInto(v.Value), nil

	case "mode":
		bits, err := ParseMode(v.Value)
		if err != nil {
			return check.Predicate{}, err
		}
		return check.Mode(bits), nil

	case "size":
		op, n, err := ParseComparison(v.Value)
		if err != nil {
			return check.Predicate{}, err
		}
		return check.Size(op, n), nil

	case "exit_status":
		op, n, err := ParseComparison(v.Value)
		if err != nil {
			return check.Predicate{}, err
		}
		p := check.ExitStatus(n)
		p.Op = op
		return p, nil

	case "content":
		return matcher(check.Predicate{Kind: check.PredContent}, v)
	case "stdout":
		return matcher(check.Predicate{Kind: check.PredStream, Stream: check.StreamStdout}, v)
	case "stderr":
		return matcher(check.Predicate{Kind: check.PredStream, Stream: check.StreamStderr}, v)

	case "ini":
		var opt struct {
			Section string `yaml:"section"`
			Key     string `yaml:"key"`
			Value   string `yaml:"value"`
		}
		if err := v.Decode(&opt); err != nil {
			return check.Predicate{}, err
		}
		return check.IniValue(opt.Section, opt.Key, opt.Value), nil

	case "json":
		var opt struct {
			Path  string `yaml:"path"`
			Value string `yaml:"value"`
		}
		if err := v.Decode(&opt); err != nil {
			return check.Predicate{}, err
		}
		return check.JSONPath(opt.Path, opt.Value), nil
	}
	return check.Predicate{}, fmt.Errorf("unknown predicate")
}

// flag maps "key: false" to the negated predicate.
func flag(p check.Predicate, v *yaml.Node) (check.Predicate, error) {
	b, err := boolValue(v)
	if err != nil {
		return check.Predicate{}, err
	}
	if !b {
		p.Negate = true
	}
	return p, nil
}

func matcher(p check.Predicate, v *yaml.Node) (check.Predicate, error) {
	if v.Kind == yaml.ScalarNode {
		p.Pattern = v.Value
		p.Match = check.MatchRegex
		return p, nil
	}
	if v.Kind != yaml.MappingNode {
		return check.Predicate{}, fmt.Errorf("expected a pattern or a mapping")
	}

	found := false
	for i := 0; i+1 < len(v.Content); i += 2 {
		k, val := v.Content[i].Value, v.Content[i+1]
		if k == "not" {
			b, err := boolValue(val)
			if err != nil {
				return check.Predicate{}, err
			}
			p.Negate = b
			continue
		}
		mode, ok := check.ParseMatchMode(k)
		if !ok {
			return check.Predicate{}, fmt.Errorf("unknown match mode %q", k)
		}
		if found {
			return check.Predicate{}, fmt.Errorf("only one of match, contains or line may be set")
		}
		found = true
		p.Match = mode
		p.Pattern = val.Value
	}
	if !found {
		return check.Predicate{}, fmt.Errorf("missing match, contains or line")
	}
	return p, nil
}

func boolValue(v *yaml.Node) (bool, error) {
	var b bool
	if err := v.Decode(&b); err != nil {
		return false, fmt.Errorf("expected true or false, got %q", v.Value)
	}
	return b, nil
}

// ParseComparison parses "25", "> 25" or ">=0" into an operator and operand.
// A bare number compares for equality.
func ParseComparison(s string) (check.CompareOp, int64, error) {
	s = strings.TrimSpace(s)
	op := check.OpEquals
	for _, sym := range []string{">=", "<=", "!=", "==", ">", "<"} {
		if strings.HasPrefix(s, sym) {
			op, _ = check.ParseCompareOp(sym)
			s = strings.TrimSpace(s[len(sym):])
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return op, 0, fmt.Errorf("invalid number %q", s)
	}
	return op, n, nil
}

// ParseMode reads permission bits written in octal, with or without a
// leading 0 or 0o.
func ParseMode(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0o"), "0O")
	if s == "" {
		return 0, fmt.Errorf("empty mode")
	}
	bits, err := strconv.ParseInt(s, 8, 64)
	if err != nil || bits < 0 || bits > 0o7777 {
		return 0, fmt.Errorf("invalid mode %q", s)
	}
	return bits, nil
}
