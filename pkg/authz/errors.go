package authz

import "fmt"

// ContextError reports a query that the active policy snapshot cannot
// authorize for this requester. The SQL itself may be well-formed; the
// failure is bound to the request context.
type ContextError struct {
	Resource         string
	MissingAttribute string
	Reason           string
}

func (e *ContextError) Error() string {
	switch {
	case e.MissingAttribute != "" && e.Resource != "":
		return fmt.Sprintf("authorizing %s requires requester attribute %q", e.Resource, e.MissingAttribute)
	case e.MissingAttribute != "":
		return fmt.Sprintf("authorization requires requester attribute %q", e.MissingAttribute)
	case e.Resource != "":
		return fmt.Sprintf("access to %s denied: %s", e.Resource, e.Reason)
	default:
		return "authorization denied: " + e.Reason
	}
}
