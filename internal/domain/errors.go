package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrInvalidRequest = errors.New("invalid reading request")

	ErrEmptyModelOutput        = errors.New("EMPTY_MODEL_OUTPUT")
	ErrJSONParseFailed         = errors.New("JSON_PARSE_FAILED")
	ErrSchemaValidationFailed  = errors.New("SCHEMA_VALIDATION_FAILED")
	ErrGenerationServiceFailed = errors.New("GENERATION_SERVICE_FAILED")
)

// PreviewRunes bounds any model text copied into errors or responses.
const PreviewRunes = 200

// PipelineError is a recoverable failure of one pipeline stage.
// Code is one of the four sentinel errors above.
type PipelineError struct {
	Code    error
	Path    string
	Preview string
	Err     error
}

func (e *PipelineError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Code.Error())
	if e.Path != "" {
		fmt.Fprintf(&b, " at %s", e.Path)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes both the code and the underlying cause to errors.Is.
func (e *PipelineError) Unwrap() []error {
	out := []error{e.Code}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Tag returns the stable error tag, e.g. "JSON_PARSE_FAILED".
func (e *PipelineError) Tag() string {
	return e.Code.Error()
}

// Preview returns at most PreviewRunes runes of s, marking truncation.
func Preview(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= PreviewRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:PreviewRunes]) + "…"
}
