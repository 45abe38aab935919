package check

import (
	"fmt"
	"strings"
)

type Suite struct {
	Path      string
	Name      string
	Variables map[string]string
	Controls  []*Control
}

// Control groups the checks that share one subject, probed once per run.
type Control struct {
	Title   string
	Subject string
	Kind    SubjectKind
	Tags    []string
	Skip    string
	OnlyIf  string
	Checks  []*Check
	Line    int
}

type Check struct {
	Subject   string
	Kind      SubjectKind
	Predicate Predicate
	Line      int
}

type SubjectKind int

const (
	SubjectFile SubjectKind = iota
	SubjectCommand
)

func (k SubjectKind) String() string {
	switch k {
	case SubjectFile:
		return "file"
	case SubjectCommand:
		return "command"
	default:
		return "unknown"
	}
}

type Stream int

const (
	StreamStdout Stream = iota
	StreamStderr
)

func (s Stream) String() string {
	if s == StreamStderr {
		return "stderr"
	}
	return "stdout"
}

type PredicateKind int

const (
	PredExists PredicateKind = iota
	PredIsDirectory
	PredIsFile
	PredIsSymlink
	PredOwnedBy
	PredGroupedInto
	PredReadable
	PredWritable
	PredExecutable
	PredMode
	PredSize
	PredContent
	PredStream
	PredExitStatus
	PredIniValue
	PredJSONPath
)

var predicateNames = map[PredicateKind]string{
	PredExists:      "exist",
	PredIsDirectory: "be directory",
	PredIsFile:      "be file",
	PredIsSymlink:   "be symlink",
	PredOwnedBy:     "be owned by",
	PredGroupedInto: "be grouped into",
	PredReadable:    "be readable",
	PredWritable:    "be writable",
	PredExecutable:  "be executable",
	PredMode:        "have mode",
	PredSize:        "size",
	PredContent:     "content",
	PredStream:      "stream",
	PredExitStatus:  "exit_status",
	PredIniValue:    "ini",
	PredJSONPath:    "json",
}

func (k PredicateKind) String() string {
	if s, ok := predicateNames[k]; ok {
		return s
	}
	return fmt.Sprintf("predicate(%d)", int(k))
}

// FileOnly reports whether the predicate only applies to file subjects.
func (k PredicateKind) FileOnly() bool {
	switch k {
	case PredStream, PredExitStatus:
		return false
	default:
		return true
	}
}

type CompareOp int

const (
	OpEquals CompareOp = iota
	OpNotEquals
	OpGreaterThan
	OpGreaterOrEqual
	OpLessThan
	OpLessOrEqual
)

var compareOpSymbols = []string{"==", "!=", ">", ">=", "<", "<="}

func (o CompareOp) String() string {
	if int(o) >= 0 && int(o) < len(compareOpSymbols) {
		return compareOpSymbols[o]
	}
	return "?"
}

// ParseCompareOp maps an operator symbol to its CompareOp.
func ParseCompareOp(s string) (CompareOp, bool) {
	for i, sym := range compareOpSymbols {
		if sym == s {
			return CompareOp(i), true
		}
	}
	return OpEquals, false
}

// Apply compares actual against expected.
func (o CompareOp) Apply(actual, expected int64) bool {
	switch o {
	case OpEquals:
		return actual == expected
	case OpNotEquals:
		return actual != expected
	case OpGreaterThan:
		return actual > expected
	case OpGreaterOrEqual:
		return actual >= expected
	case OpLessThan:
		return actual < expected
	case OpLessOrEqual:
		return actual <= expected
	}
	return false
}

type MatchMode int

const (
	// MatchRegex is an unanchored regular expression search.
	MatchRegex MatchMode = iota
	MatchContains
	// MatchLine requires one line of the input to equal the pattern.
	MatchLine
)

func (m MatchMode) String() string {
	switch m {
	case MatchContains:
		return "contains"
	case MatchLine:
		return "line"
	default:
		return "match"
	}
}

func ParseMatchMode(s string) (MatchMode, bool) {
	switch strings.ToLower(s) {
	case "match", "matches", "regex":
		return MatchRegex, true
	case "contains":
		return MatchContains, true
	case "line":
		return MatchLine, true
	}
	return MatchRegex, false
}

// Predicate is the condition asserted about a subject. Kind selects which of
// the remaining fields are meaningful.
type Predicate struct {
	Kind    PredicateKind
	Negate  bool
	Name    string // PredOwnedBy, PredGroupedInto
	Op      CompareOp
	Number  int64 // PredSize, PredExitStatus, PredMode
	Pattern string
	Match   MatchMode
	Stream  Stream
	Section string // PredIniValue
	Key     string // PredIniValue key or PredJSONPath path
	Value   string
}

// String renders the predicate as an expectation such as "be readable".
func (p Predicate) String() string {
	var s string
	switch p.Kind {
	case PredOwnedBy, PredGroupedInto:
		s = fmt.Sprintf("%s %s", p.Kind, p.Name)
	case PredMode:
		s = fmt.Sprintf("%s %04o", p.Kind, p.Number)
	case PredSize, PredExitStatus:
		s = fmt.Sprintf("%s %s %d", p.Kind, p.Op, p.Number)
	case PredContent:
		s = fmt.Sprintf("content %s %q", p.Match, p.Pattern)
	case PredStream:
		s = fmt.Sprintf("%s %s %q", p.Stream, p.Match, p.Pattern)
	case PredIniValue:
		key := p.Key
		if p.Section != "" {
			key = p.Section + "." + p.Key
		}
		s = fmt.Sprintf("ini %s == %q", key, p.Value)
	case PredJSONPath:
		s = fmt.Sprintf("json %s == %q", p.Key, p.Value)
	default:
		s = p.Kind.String()
	}
	if p.Negate {
		return "not " + s
	}
	return s
}

func (c *Check) String() string {
	return fmt.Sprintf("%s(%s) should %s", c.Kind, c.Subject, c.Predicate)
}

// Describe returns a control title, falling back to the subject.
func (c *Control) Describe() string {
	if c.Title != "" {
		return c.Title
	}
	return fmt.Sprintf("%s %s", c.Kind, c.Subject)
}
