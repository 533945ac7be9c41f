package dataset

import "fmt"

// NotFoundError is returned when the dataset file does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("dataset not found: %s", e.Path)
}

// ParseError is returned when a dataset file exists but cannot be read
// as a delimited table.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse dataset %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
