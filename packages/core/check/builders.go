package check

// Constructors for building suites from static literals.

func Exists() Predicate      { return Predicate{Kind: PredExists} }
func IsDirectory() Predicate { return Predicate{Kind: PredIsDirectory} }
func IsFile() Predicate      { return Predicate{Kind: PredIsFile} }
func IsSymlink() Predicate   { return Predicate{Kind: PredIsSymlink} }
func Readable() Predicate    { return Predicate{Kind: PredReadable} }
func Writable() Predicate    { return Predicate{Kind: PredWritable} }
func Executable() Predicate  { return Predicate{Kind: PredExecutable} }

func OwnedBy(user string) Predicate {
	return Predicate{Kind: PredOwnedBy, Name: user}
}

func GroupedInto(group string) Predicate {
	return Predicate{Kind: PredGroupedInto, Name: group}
}

func Mode(bits int64) Predicate {
	return Predicate{Kind: PredMode, Number: bits}
}

func Size(op CompareOp, n int64) Predicate {
	return Predicate{Kind: PredSize, Op: op, Number: n}
}

func SizeGreaterThan(n int64) Predicate {
	return Size(OpGreaterThan, n)
}

func ContentMatches(pattern string) Predicate {
	return Predicate{Kind: PredContent, Pattern: pattern, Match: MatchRegex}
}

func ContentContains(s string) Predicate {
	return Predicate{Kind: PredContent, Pattern: s, Match: MatchContains}
}

func StdoutMatches(pattern string) Predicate {
	return Predicate{Kind: PredStream, Stream: StreamStdout, Pattern: pattern, Match: MatchRegex}
}

func StderrMatches(pattern string) Predicate {
	return Predicate{Kind: PredStream, Stream: StreamStderr, Pattern: pattern, Match: MatchRegex}
}

func ExitStatus(code int64) Predicate {
	return Predicate{Kind: PredExitStatus, Op: OpEquals, Number: code}
}

func IniValue(section, key, value string) Predicate {
	return Predicate{Kind: PredIniValue, Section: section, Key: key, Value: value}
}

func JSONPath(path, value string) Predicate {
	return Predicate{Kind: PredJSONPath, Key: path, Value: value}
}

// Not negates p.
func Not(p Predicate) Predicate {
	p.Negate = !p.Negate
	return p
}

// File builds a file control from predicates.
func File(path string, preds ...Predicate) *Control {
	return newControl(path, SubjectFile, preds)
}

// Command builds a command control from predicates.
func Command(command string, preds ...Predicate) *Control {
	return newControl(command, SubjectCommand, preds)
}

func newControl(subject string, kind SubjectKind, preds []Predicate) *Control {
	c := &Control{Subject: subject, Kind: kind}
	for _, p := range preds {
		c.Checks = append(c.Checks, &Check{Subject: subject, Kind: kind, Predicate: p})
	}
	return c
}
