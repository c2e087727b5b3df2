package app

import "github.com/MerlinMagicschool/innerself-ai-server/internal/domain"

// ResponseSchemaName is the schema name sent with strict schema mode.
func ResponseSchemaName(v domain.Variant) string {
	return "tarot_directions_" + string(v)
}

// ResponseSchema returns the JSON Schema the envelope for req must satisfy.
// It pins the fixed tags, positional ids and the card labels, and only uses
// keywords accepted by strict structured output.
func ResponseSchema(req domain.Request, v domain.Variant) map[string]any {
	contextSchema := map[string]any{"type": "null"}
	if req.Context != nil {
		contextSchema = map[string]any{"type": "string"}
	}

	directionProps := map[string]any{
		"id":              enumString(domain.MainIDs[:]...),
		"cardText":        enumString(req.MainCards...),
		"actionDirection": plainString(),
		"possibleOutcome": plainString(),
	}
	directionRequired := []any{"id", "cardText", "actionDirection", "possibleOutcome"}

	if v == domain.VariantDetailed {
		branchIDs := make([]string, 0, domain.BranchCardCount)
		for _, id := range domain.MainIDs {
			for n := 1; n <= domain.BranchesPerMain; n++ {
				branchIDs = append(branchIDs, domain.BranchID(id, n))
			}
		}
		directionProps["branches"] = fixedArray(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":              enumString(branchIDs...),
				"cardText":        enumString(req.BranchCards...),
				"possibleOutcome": plainString(),
			},
			"required":             []any{"id", "cardText", "possibleOutcome"},
			"additionalProperties": false,
		}, domain.BranchesPerMain)
		directionRequired = append(directionRequired, "branches")
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"version":  enumString(v.Version()),
			"language": enumString(domain.LanguageTag),
			"question": plainString(),
			"context":  contextSchema,
			"directions": fixedArray(map[string]any{
				"type":                 "object",
				"properties":           directionProps,
				"required":             directionRequired,
				"additionalProperties": false,
			}, domain.MainCardCount),
		},
		"required":             []any{"version", "language", "question", "context", "directions"},
		"additionalProperties": false,
	}
}

func enumString(values ...string) map[string]any {
	enum := make([]any, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		enum = append(enum, v)
	}
	return map[string]any{"type": "string", "enum": enum}
}

// plainString carries no length keywords; strict structured output rejects
// minLength, and ValidateEnvelope rejects blank strings instead.
func plainString() map[string]any {
	return map[string]any{"type": "string"}
}

func fixedArray(items map[string]any, n int) map[string]any {
	return map[string]any{
		"type":     "array",
		"items":    items,
		"minItems": n,
		"maxItems": n,
	}
}
