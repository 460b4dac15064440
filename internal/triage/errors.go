package triage

import "fmt"

// ValidationError reports a malformed or out-of-range request parameter.
// It is returned before any computation begins; a run that fails
// validation has touched nothing.
type ValidationError struct {
	Param  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Param, e.Reason)
}

// ConfigurationError reports a sampling parameter outside supported
// bounds. The message names the accepted range so callers can correct it.
type ConfigurationError struct {
	Param  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("unsupported %s: %s", e.Param, e.Reason)
}

// ComputationError is scoped to a single object: the object is skipped and
// reported, the run continues.
type ComputationError struct {
	ObjectID string
	Reason   string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("object %q: %s", e.ObjectID, e.Reason)
}

// ObjectError pairs a skipped object with the reason it was skipped, for
// run reporting.
type ObjectError struct {
	ObjectID string `json:"object_id"`
	Reason   string `json:"reason"`
}
