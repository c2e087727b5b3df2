package app

import (
	"encoding/json"
	"strings"

	"github.com/MerlinMagicschool/innerself-ai-server/internal/domain"
)

// ParseJSON parses model text as JSON. When the text does not parse as a whole,
// the span from the first '{' to the last '}' is tried once.
func ParseJSON(text string) (any, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, &domain.PipelineError{Code: domain.ErrEmptyModelOutput}
	}

	var v any
	err := json.Unmarshal([]byte(trimmed), &v)
	if err == nil {
		return v, nil
	}

	if carved, ok := carveObject(trimmed); ok {
		var retry any
		carvedErr := json.Unmarshal([]byte(carved), &retry)
		if carvedErr == nil {
			return retry, nil
		}
		err = carvedErr
	}

	return nil, &domain.PipelineError{
		Code:    domain.ErrJSONParseFailed,
		Preview: domain.Preview(trimmed),
		Err:     err,
	}
}

func carveObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
