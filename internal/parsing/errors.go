package parsing

import "fmt"

// Parse failure stages.
const (
	StageExtract = "extract"
	StageSchema  = "schema"
	StageDecode  = "decode"
)

// ParseError represents a completion response that could not be turned into a structured result
type ParseError struct {
	Stage   string
	Message string
	Raw     string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error (%s): %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error (%s): %s", e.Stage, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Reason is a short description of the failure meant to be fed back to the completion service.
func (e *ParseError) Reason() string {
	if r, ok := e.Cause.(interface{ Summary() string }); ok {
		return e.Message + ": " + r.Summary()
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}
