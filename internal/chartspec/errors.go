package chartspec

import "fmt"

// SpecInvalidError reports a chart spec that could not be read or does not
// have the expected shape. Source names the file or origin when known.
type SpecInvalidError struct {
	Source string
	Err    error
}

func (e *SpecInvalidError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("invalid chart spec %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("invalid chart spec: %v", e.Err)
}

func (e *SpecInvalidError) Unwrap() error {
	return e.Err
}

// MissingColumnError records a column reference that is absent from the
// current table. It never halts rendering.
type MissingColumnError struct {
	Chart  string
	Field  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: %s column %q not found", e.Chart, e.Field, e.Column)
}
