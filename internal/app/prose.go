package app

import (
	"fmt"

	"golang.org/x/text/width"

	"github.com/MerlinMagicschool/innerself-ai-server/internal/domain"
)

// FullWidthLen measures s in full-width characters: wide and fullwidth runes
// count as one, everything else as half.
func FullWidthLen(s string) float64 {
	var n float64
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n++
		default:
			n += 0.5
		}
	}
	return n
}

// ProseViolations lists every prose field outside its length ceiling, as
// "<path>: <reason>". An empty result means the envelope is within bounds.
func ProseViolations(env domain.Envelope) []string {
	var out []string
	for i, d := range env.Directions {
		path := fmt.Sprintf("directions[%d]", i)
		if n := FullWidthLen(d.ActionDirection); n < domain.ActionDirectionMin || n > domain.ActionDirectionMax {
			out = append(out, fmt.Sprintf("%s.actionDirection: %.1f full-width characters, want %d-%d",
				path, n, domain.ActionDirectionMin, domain.ActionDirectionMax))
		}
		if n := FullWidthLen(d.PossibleOutcome); n > domain.PossibleOutcomeMax {
			out = append(out, fmt.Sprintf("%s.possibleOutcome: %.1f full-width characters, want at most %d",
				path, n, domain.PossibleOutcomeMax))
		}
		for j, b := range d.Branches {
			if n := FullWidthLen(b.PossibleOutcome); n > domain.PossibleOutcomeMax {
				out = append(out, fmt.Sprintf("%s.branches[%d].possibleOutcome: %.1f full-width characters, want at most %d",
					path, j, n, domain.PossibleOutcomeMax))
			}
		}
	}
	return out
}
