package suite

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/hostspec/packages/core/check"
	"gopkg.in/yaml.v3"
)

// Extensions lists the file suffixes recognised as suite files.
var Extensions = []string{".hostspec.yaml", ".hostspec.yml"}

type document struct {
	Name     string            `yaml:"name"`
	Vars     map[string]string `yaml:"vars"`
	Controls []controlDocument `yaml:"controls"`
}

type controlDocument struct {
	Title   string      `yaml:"title"`
	File    string      `yaml:"file"`
	Command string      `yaml:"command"`
	Tags    []string    `yaml:"tags"`
	Skip    string      `yaml:"skip"`
	OnlyIf  string      `yaml:"only_if"`
	Checks  []yaml.Node `yaml:"checks"`
}

// IsSuiteFile reports whether path carries a suite file extension.
func IsSuiteFile(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range Extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// ParseFile reads and decodes the suite at path.
func ParseFile(path string) (*check.Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{File: path, Message: "cannot read suite", Err: err}
	}
	return Parse(data, path)
}

// Parse validates data against Schema and decodes it into a suite. path is
// only used for error messages and Suite.Path.
func Parse(data []byte, path string) (*check.Suite, error) {
	var root yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{File: path, Message: "empty suite file"}
		}
		return nil, &ParseError{File: path, Message: err.Error()}
	}

	var raw any
	if err := root.Decode(&raw); err != nil {
		return nil, &ParseError{File: path, Message: err.Error()}
	}
	if err := validateDocument(path, raw); err != nil {
		return nil, err
	}

	var doc document
	if err := root.Decode(&doc); err != nil {
		return nil, &ParseError{File: path, Message: err.Error()}
	}

	s := &check.Suite{
		Path:      path,
		Name:      doc.Name,
		Variables: doc.Vars,
	}
	if s.Name == "" {
		s.Name = suiteName(path)
	}
	if s.Variables == nil {
		s.Variables = map[string]string{}
	}

	controls := controlNodes(&root)
	for i, cd := range doc.Controls {
		line := 0
		if i < len(controls) {
			line = controls[i].Line
		}
		ctrl, err := buildControl(path, cd, line)
		if err != nil {
			return nil, err
		}
		s.Controls = append(s.Controls, ctrl)
	}
	return s, nil
}

// Validate checks data against Schema without building a suite.
func Validate(data []byte, path string) error {
	_, err := Parse(data, path)
	return err
}

// Collect expands paths into a sorted list of suite files. Directories are
// walked recursively; files are accepted as given.
func Collect(paths []string) ([]string, error) {
	var files []string
	seen := map[string]bool{}
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && IsSuiteFile(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

func buildControl(path string, cd controlDocument, line int) (*check.Control, error) {
	ctrl := &check.Control{
		Title:  cd.Title,
		Tags:   cd.Tags,
		Skip:   cd.Skip,
		OnlyIf: cd.OnlyIf,
		Line:   line,
	}
	if cd.File != "" {
		ctrl.Subject, ctrl.Kind = cd.File, check.SubjectFile
	} else {
		ctrl.Subject, ctrl.Kind = cd.Command, check.SubjectCommand
	}

	for i := range cd.Checks {
		node := &cd.Checks[i]
		pred, err := decodePredicate(node)
		if err != nil {
			return nil, &ParseError{File: path, Line: node.Line, Message: err.Error()}
		}
		if pred.Kind.FileOnly() != (ctrl.Kind == check.SubjectFile) {
			return nil, &ParseError{
				File:    path,
				Line:    node.Line,
				Message: pred.Kind.String() + " does not apply to a " + ctrl.Kind.String() + " subject",
			}
		}
		ctrl.Checks = append(ctrl.Checks, &check.Check{
			Subject:   ctrl.Subject,
			Kind:      ctrl.Kind,
			Predicate: pred,
			Line:      node.Line,
		})
	}
	return ctrl, nil
}

// controlNodes returns the mapping nodes of the controls sequence so each
// control can remember the line it was declared on.
func controlNodes(root *yaml.Node) []*yaml.Node {
	doc := root
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	if doc.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value == "controls" {
			return doc.Content[i+1].Content
		}
	}
	return nil
}

func suiteName(path string) string {
	base := filepath.Base(path)
	for _, ext := range Extensions {
		if strings.HasSuffix(strings.ToLower(base), ext) {
			return base[:len(base)-len(ext)]
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
