package policy

import "fmt"

// ConflictError reports a contradictory or unusable rule definition found
// while loading policy configuration. Conflicts are a load-time failure;
// they are never discovered per-request.
type ConflictError struct {
	Resource string
	Reason   string
	Err      error
}

func (e *ConflictError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("policy conflict: %s", e.Reason)
	}
	return fmt.Sprintf("policy conflict on %s: %s", e.Resource, e.Reason)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}
