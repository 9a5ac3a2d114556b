package dataset

import "fmt"

// LoadError indicates the dataset file could not be read or does not match the schema.
type LoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e == nil {
		return "load failed"
	}
	msg := fmt.Sprintf("load %s: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error { return e.Err }
