package check

// Reason classifies why a check failed.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonNotFound
	ReasonPermissionDenied
	ReasonMismatch
	ReasonExecutionError
	ReasonNonZeroExit
	ReasonTimeout
	ReasonInvalidCheck
)

var reasonNames = map[Reason]string{
	ReasonNone:             "",
	ReasonNotFound:         "NotFound",
	ReasonPermissionDenied: "PermissionDenied",
	ReasonMismatch:         "MismatchError",
	ReasonExecutionError:   "ExecutionError",
	ReasonNonZeroExit:      "NonZeroExit",
	ReasonTimeout:          "TimeoutError",
	ReasonInvalidCheck:     "InvalidCheck",
}

func (r Reason) String() string {
	return reasonNames[r]
}

func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}
