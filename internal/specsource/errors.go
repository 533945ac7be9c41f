package specsource

import "fmt"

// FallbackError is returned when the spec could not be read and the
// generation fallback failed too. Both causes are kept.
type FallbackError struct {
	Spec       error
	Generation error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("%v; generation fallback failed: %v", e.Spec, e.Generation)
}

func (e *FallbackError) Unwrap() []error {
	return []error{e.Spec, e.Generation}
}
