package ports

import "context"

// Strategy selects how strongly the generator is asked to format its reply.
type Strategy string

const (
	// StrategyText sends no format hint; the reply is prose or loose JSON.
	StrategyText Strategy = "text"
	// StrategyJSONObject asks for a single JSON object of any shape.
	StrategyJSONObject Strategy = "json_object"
	// StrategyJSONSchema sends the target schema and asks for exact conformance.
	StrategyJSONSchema Strategy = "json_schema"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyText, StrategyJSONObject, StrategyJSONSchema:
		return true
	}
	return false
}

// GenerateInput is one call to the generation service.
type GenerateInput struct {
	Prompt          string
	Strategy        Strategy
	MaxOutputTokens int
	// SchemaName and Schema are only sent with StrategyJSONSchema.
	SchemaName string
	Schema     map[string]any
}

// Block kinds reported by the adapters. Anything else is treated as opaque.
const (
	BlockOutputText = "output_text"
	BlockText       = "text"
	BlockOutputJSON = "output_json"
	BlockJSON       = "json"
	BlockRefusal    = "refusal"
)

// ContentBlock is one variant-tagged piece of a reply.
// Object is set when the service already returned a parsed structure.
type ContentBlock struct {
	Kind   string
	Text   string
	Object map[string]any
}

// Reply is the raw reply envelope. OutputText is a convenience field that may be
// empty even when Blocks carry the real content.
type Reply struct {
	Model      string
	OutputText string
	Blocks     []ContentBlock
}

// Generator calls the external text generation service exactly once.
// Any failure is reported as an error wrapping domain.ErrGenerationServiceFailed.
type Generator interface {
	Generate(ctx context.Context, in GenerateInput) (Reply, error)
}
