package resolve

import (
	"errors"
	"fmt"
)

// ErrUnresolved is matched by every UnresolvedError.
var ErrUnresolved = errors.New("unresolved timezone")

// UnresolvedError reports a query that no stage of the cascade could resolve.
type UnresolvedError struct {
	Query string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unable to resolve timezone %q: run `timenow -list` to see valid timezone names", e.Query)
}

// Unwrap lets callers test with errors.Is(err, ErrUnresolved).
func (e *UnresolvedError) Unwrap() error {
	return ErrUnresolved
}
