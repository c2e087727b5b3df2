package app

import (
	"strings"

	"github.com/MerlinMagicschool/innerself-ai-server/internal/ports"
)

// Extraction is the best-effort payload found in a reply. Object is set when the
// service returned an already-parsed structure; the parser stage is skipped then.
type Extraction struct {
	Text   string
	Object map[string]any
}

// ExtractPayload walks the reply envelope. It never fails: an empty Extraction
// means nothing textual was found.
func ExtractPayload(r ports.Reply) Extraction {
	if strings.TrimSpace(r.OutputText) != "" {
		return Extraction{Text: r.OutputText}
	}

	var b strings.Builder
	for _, block := range r.Blocks {
		if block.Object != nil {
			return Extraction{Object: block.Object}
		}
		switch block.Kind {
		case ports.BlockOutputText, ports.BlockText, ports.BlockOutputJSON, ports.BlockJSON:
			b.WriteString(block.Text)
		default:
			// refusal, reasoning, tool calls and unknown kinds carry no payload
		}
	}
	return Extraction{Text: b.String()}
}
