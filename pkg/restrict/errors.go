package restrict

import (
	"fmt"

	"github.com/Hacker0x01/h1ql/pkg/token"
)

// UnsupportedConstructError reports the first disallowed construct found
// while restricting a query. Kind names the construct; it never echoes
// surrounding query text or schema details.
type UnsupportedConstructError struct {
	Kind string
	Span token.Span
}

func (e *UnsupportedConstructError) Error() string {
	if e.Span.IsValid() {
		return fmt.Sprintf("unsupported construct: %s at %s", e.Kind, e.Span.Start)
	}
	return fmt.Sprintf("unsupported construct: %s", e.Kind)
}
