package pipeline

import "fmt"

// ValidationError rejects a malformed query before any I/O happens. The API
// boundary maps it to a 400 response.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UpstreamError tags a collaborator failure with the pipeline step that
// invoked it. The collaborator has already exhausted its own retry and
// fallback policy by the time this is raised; the pipeline never retries on
// its behalf.
type UpstreamError struct {
	Step string
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
