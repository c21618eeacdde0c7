package toolargs

import "fmt"

// DecodeError reports a malformed argument payload in the named variable.
type DecodeError struct {
	Variable string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Variable, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
