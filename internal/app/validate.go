package app

import (
	"fmt"
	"strings"

	"github.com/MerlinMagicschool/innerself-ai-server/internal/domain"
)

var requiredTopLevel = []string{"version", "language", "question", "directions"}

// ValidateEnvelope checks a parsed value against the envelope shape for the
// variant and narrows it to a domain.Envelope. The first violation is returned
// as a SCHEMA_VALIDATION_FAILED error naming its path.
//
// Card labels must match the request verbatim and context must be null when the
// request carried none. Prose length is not checked here; see ProseViolations.
// Keys outside the envelope shape are dropped from the result. A request that
// does not carry the labels the variant needs fails with domain.ErrInvalidRequest.
func ValidateEnvelope(value any, v domain.Variant, req domain.Request) (domain.Envelope, error) {
	if err := req.Validate(v); err != nil {
		return domain.Envelope{}, err
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return domain.Envelope{}, schemaErr("$", "expected a JSON object, got %s", kindOf(value))
	}
	for _, key := range requiredTopLevel {
		if _, ok := obj[key]; !ok {
			return domain.Envelope{}, schemaErr(key, "required field is missing")
		}
	}

	if err := expectConst(obj, "version", v.Version()); err != nil {
		return domain.Envelope{}, err
	}
	if err := expectConst(obj, "language", domain.LanguageTag); err != nil {
		return domain.Envelope{}, err
	}
	question, err := requireString(obj, "question", "question")
	if err != nil {
		return domain.Envelope{}, err
	}
	ctx, err := validateContext(obj["context"], req.Context)
	if err != nil {
		return domain.Envelope{}, err
	}

	items, err := requireArray(obj["directions"], "directions", domain.MainCardCount)
	if err != nil {
		return domain.Envelope{}, err
	}

	env := domain.Envelope{
		Version:    v.Version(),
		Language:   domain.LanguageTag,
		Question:   question,
		Context:    ctx,
		Directions: make([]domain.Direction, 0, domain.MainCardCount),
	}
	for i, item := range items {
		d, err := validateDirection(item, i, v, req)
		if err != nil {
			return domain.Envelope{}, err
		}
		env.Directions = append(env.Directions, d)
	}
	return env, nil
}

func validateDirection(item any, i int, v domain.Variant, req domain.Request) (domain.Direction, error) {
	path := fmt.Sprintf("directions[%d]", i)
	m, ok := item.(map[string]any)
	if !ok {
		return domain.Direction{}, schemaErr(path, "expected an object, got %s", kindOf(item))
	}

	wantID := domain.MainIDs[i]
	id, err := requireString(m, "id", path+".id")
	if err != nil {
		return domain.Direction{}, err
	}
	if id != wantID {
		return domain.Direction{}, schemaErr(path+".id", "expected %q, got %q", wantID, id)
	}

	d := domain.Direction{ID: id}
	if d.CardText, err = requireString(m, "cardText", path+".cardText"); err != nil {
		return domain.Direction{}, err
	}
	if d.CardText != req.MainCards[i] {
		return domain.Direction{}, schemaErr(path+".cardText", "does not match requested card label %q", req.MainCards[i])
	}
	if d.ActionDirection, err = requireString(m, "actionDirection", path+".actionDirection"); err != nil {
		return domain.Direction{}, err
	}
	if d.PossibleOutcome, err = requireString(m, "possibleOutcome", path+".possibleOutcome"); err != nil {
		return domain.Direction{}, err
	}

	if v != domain.VariantDetailed {
		return d, nil
	}

	branches, err := requireArray(m["branches"], path+".branches", domain.BranchesPerMain)
	if err != nil {
		return domain.Direction{}, err
	}
	labels := req.Branches(i)
	for j, raw := range branches {
		bpath := fmt.Sprintf("%s.branches[%d]", path, j)
		bm, ok := raw.(map[string]any)
		if !ok {
			return domain.Direction{}, schemaErr(bpath, "expected an object, got %s", kindOf(raw))
		}
		var b domain.Branch
		if b.ID, err = requireString(bm, "id", bpath+".id"); err != nil {
			return domain.Direction{}, err
		}
		if want := domain.BranchID(wantID, j+1); b.ID != want {
			return domain.Direction{}, schemaErr(bpath+".id", "expected %q, got %q", want, b.ID)
		}
		if b.CardText, err = requireString(bm, "cardText", bpath+".cardText"); err != nil {
			return domain.Direction{}, err
		}
		if b.CardText != labels[j] {
			return domain.Direction{}, schemaErr(bpath+".cardText", "does not match requested card label %q", labels[j])
		}
		if b.PossibleOutcome, err = requireString(bm, "possibleOutcome", bpath+".possibleOutcome"); err != nil {
			return domain.Direction{}, err
		}
		d.Branches = append(d.Branches, b)
	}
	return d, nil
}

func validateContext(raw any, requested *string) (*string, error) {
	if raw == nil {
		if requested != nil {
			return nil, schemaErr("context", "expected the request context, got null")
		}
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, schemaErr("context", "expected a string or null, got %s", kindOf(raw))
	}
	if requested == nil {
		return nil, schemaErr("context", "must be null when no context was given")
	}
	if strings.TrimSpace(s) == "" {
		return nil, schemaErr("context", "must not be empty")
	}
	return &s, nil
}

func expectConst(obj map[string]any, key, want string) error {
	got, ok := obj[key].(string)
	if !ok {
		return schemaErr(key, "expected a string, got %s", kindOf(obj[key]))
	}
	if got != want {
		return schemaErr(key, "expected %q, got %q", want, got)
	}
	return nil
}

func requireString(m map[string]any, key, path string) (string, error) {
	raw, ok := m[key]
	if !ok {
		return "", schemaErr(path, "required field is missing")
	}
	s, ok := raw.(string)
	if !ok {
		return "", schemaErr(path, "expected a string, got %s", kindOf(raw))
	}
	if strings.TrimSpace(s) == "" {
		return "", schemaErr(path, "must not be empty")
	}
	return s, nil
}

func requireArray(raw any, path string, n int) ([]any, error) {
	if raw == nil {
		return nil, schemaErr(path, "required field is missing")
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, schemaErr(path, "expected an array, got %s", kindOf(raw))
	}
	if len(items) != n {
		return nil, schemaErr(path, "expected exactly %d items, got %d", n, len(items))
	}
	return items, nil
}

func schemaErr(path, format string, args ...any) error {
	return &domain.PipelineError{
		Code: domain.ErrSchemaValidationFailed,
		Path: path,
		Err:  fmt.Errorf(format, args...),
	}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
