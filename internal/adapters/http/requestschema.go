package http

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/MerlinMagicschool/innerself-ai-server/internal/domain"
)

var errBodyNotJSON = errors.New("request body must be a JSON object")

func labelArray(n int) map[string]any {
	return map[string]any{
		"type":     "array",
		"minItems": n,
		"maxItems": n,
		"items": map[string]any{
			"type":      "string",
			"pattern":   `\S`,
			"maxLength": domain.MaxCardLabelRunes,
		},
	}
}

func requestSchema(v domain.Variant) map[string]any {
	props := map[string]any{
		"question": map[string]any{
			"type":      "string",
			"pattern":   `\S`,
			"maxLength": domain.MaxQuestionRunes,
		},
		"context": map[string]any{
			"type":      []any{"string", "null"},
			"maxLength": domain.MaxContextRunes,
		},
		"mainCards": labelArray(domain.MainCardCount),
	}
	required := []any{"question", "mainCards"}
	if v == domain.VariantDetailed {
		props["branchCards"] = labelArray(domain.BranchCardCount)
		required = append(required, "branchCards")
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// requestSchemas are compiled once; gojsonschema.Schema is safe for concurrent use.
var requestSchemas = map[domain.Variant]*gojsonschema.Schema{
	domain.VariantBasic:    mustCompile(domain.VariantBasic),
	domain.VariantDetailed: mustCompile(domain.VariantDetailed),
}

func mustCompile(v domain.Variant) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(requestSchema(v)))
	if err != nil {
		panic(fmt.Sprintf("compile %s request schema: %v", v, err))
	}
	return s
}

// validateBody checks a raw request body for the variant. The returned error
// message is safe to show to clients.
func validateBody(v domain.Variant, body []byte) error {
	result, err := requestSchemas[v].Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return errBodyNotJSON
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, describe(e))
	}
	sort.Strings(msgs)
	return errors.New(strings.Join(msgs, "; "))
}

func describe(e gojsonschema.ResultError) string {
	field := e.Field()
	if e.Type() == "required" {
		if p, ok := e.Details()["property"].(string); ok {
			field = p
		}
		return field + " is required"
	}
	if field == "(root)" {
		return e.Description()
	}
	return field + ": " + e.Description()
}
