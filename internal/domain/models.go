package domain

import (
	"fmt"
	"strings"
)

// Variant selects the shape of a reading.
type Variant string

const (
	VariantBasic    Variant = "basic"
	VariantDetailed Variant = "detailed"
)

// Fixed envelope tags.
const (
	VersionBasic    = "tarot-directions/basic@1"
	VersionDetailed = "tarot-directions/detailed@1"
	LanguageTag     = "zh-TW"
)

const (
	MainCardCount      = 3
	BranchesPerMain    = 3
	BranchCardCount    = MainCardCount * BranchesPerMain
	MaxQuestionRunes   = 500
	MaxContextRunes    = 2000
	MaxCardLabelRunes  = 64
	ActionDirectionMin = 15
	ActionDirectionMax = 30
	PossibleOutcomeMax = 50
)

// MainIDs are the positional ids of the three main cards.
var MainIDs = [MainCardCount]string{"A", "B", "C"}

// BranchID returns the id of the n-th (1-based) branch under a main card.
func BranchID(mainID string, n int) string {
	return fmt.Sprintf("%s-%d", mainID, n)
}

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	return v == VariantBasic || v == VariantDetailed
}

// Version returns the fixed version tag for the variant.
func (v Variant) Version() string {
	if v == VariantDetailed {
		return VersionDetailed
	}
	return VersionBasic
}

// Request is one reading request. It lives for a single call.
type Request struct {
	Question    string
	Context     *string
	MainCards   []string
	BranchCards []string
}

// NewRequest trims the question and normalizes a blank context to absent.
func NewRequest(question string, context *string, mainCards, branchCards []string) Request {
	return Request{
		Question:    strings.TrimSpace(question),
		Context:     NormalizeContext(context),
		MainCards:   mainCards,
		BranchCards: branchCards,
	}
}

// NormalizeContext maps nil, empty and whitespace-only context to nil.
func NormalizeContext(ctx *string) *string {
	if ctx == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*ctx)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Validate checks the cardinalities the pipeline relies on.
func (r Request) Validate(v Variant) error {
	if !v.Valid() {
		return fmt.Errorf("%w: unknown variant %q", ErrInvalidRequest, v)
	}
	if strings.TrimSpace(r.Question) == "" {
		return fmt.Errorf("%w: question is required", ErrInvalidRequest)
	}
	if len(r.MainCards) != MainCardCount {
		return fmt.Errorf("%w: mainCards must contain exactly %d labels, got %d", ErrInvalidRequest, MainCardCount, len(r.MainCards))
	}
	for i, c := range r.MainCards {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("%w: mainCards[%d] is empty", ErrInvalidRequest, i)
		}
	}
	if v == VariantDetailed {
		if len(r.BranchCards) != BranchCardCount {
			return fmt.Errorf("%w: branchCards must contain exactly %d labels, got %d", ErrInvalidRequest, BranchCardCount, len(r.BranchCards))
		}
		for i, c := range r.BranchCards {
			if strings.TrimSpace(c) == "" {
				return fmt.Errorf("%w: branchCards[%d] is empty", ErrInvalidRequest, i)
			}
		}
	}
	return nil
}

// Branches returns the three branch labels grouped under main card i (0-based).
func (r Request) Branches(i int) []string {
	start := i * BranchesPerMain
	if start+BranchesPerMain > len(r.BranchCards) {
		return nil
	}
	return r.BranchCards[start : start+BranchesPerMain]
}

// Branch is one follow-up card under a direction.
type Branch struct {
	ID              string `json:"id"`
	CardText        string `json:"cardText"`
	PossibleOutcome string `json:"possibleOutcome"`
}

// Direction is the interpretation of one main card.
type Direction struct {
	ID              string   `json:"id"`
	CardText        string   `json:"cardText"`
	ActionDirection string   `json:"actionDirection"`
	PossibleOutcome string   `json:"possibleOutcome"`
	Branches        []Branch `json:"branches,omitempty"`
}

// Envelope is the response payload for both variants.
type Envelope struct {
	Version    string      `json:"version"`
	Language   string      `json:"language"`
	Question   string      `json:"question"`
	Context    *string     `json:"context"`
	Directions []Direction `json:"directions"`
}
