package llm

import "fmt"

// Generation stages reported by GenerationError.
const (
	StageRequest  = "request"
	StageStatus   = "status"
	StageDecode   = "decode"
	StageSanitize = "sanitize"
)

// GenerationError reports a failed call to the generation service or an
// unusable reply.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (%s): %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
