package suite

import "fmt"

// ParseError reports a problem at a specific line of a suite file. Err is set
// when the file could not be read at all.
type ParseError struct {
	File    string
	Line    int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, msg)
	}
	if e.File != "" {
		return e.File + ": " + msg
	}
	return fmt.Sprintf("line %d: %s", e.Line, msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
