package app

import "github.com/MerlinMagicschool/innerself-ai-server/internal/domain"

type directionTemplate struct {
	action  string
	outcome string
}

// Fixed prose for the fallback envelope, one entry per main position.
// Every line stays inside the prose length ceilings.
var fallbackDirections = [domain.MainCardCount]directionTemplate{
	{
		action:  "先穩住眼前的節奏，盤點手上資源再決定下一步",
		outcome: "在清楚掌握現況後，你會更有底氣面對這個問題，選擇也會更踏實。",
	},
	{
		action:  "主動與相關的人溝通，把真正在意的需求說清楚",
		outcome: "彼此的期待逐漸對齊，原本卡住的地方有機會出現新的轉圜空間。",
	},
	{
		action:  "給自己一段觀察期，以小步嘗試驗證心中的方向",
		outcome: "透過實際的回饋修正步伐，你會逐步找到更適合自己的答案。",
	},
}

// Fixed branch outcomes, indexed by branch position under a main card.
var fallbackBranchOutcomes = [domain.BranchesPerMain]string{
	"若順勢而為，事情會朝穩定的方向發展，壓力也會逐漸減輕。",
	"過程中可能出現小阻礙，保持耐心調整做法，仍能看見進展。",
	"若能接受新的可能性，意想不到的機會會在轉角出現。",
}

// FallbackEnvelope builds the deterministic substitute envelope for req.
// Card labels are copied verbatim; the prose does not depend on the request.
func FallbackEnvelope(req domain.Request, v domain.Variant) domain.Envelope {
	env := domain.Envelope{
		Version:    v.Version(),
		Language:   domain.LanguageTag,
		Question:   req.Question,
		Context:    domain.NormalizeContext(req.Context),
		Directions: make([]domain.Direction, domain.MainCardCount),
	}
	for i, id := range domain.MainIDs {
		tpl := fallbackDirections[i]
		d := domain.Direction{
			ID:              id,
			CardText:        cardAt(req.MainCards, i),
			ActionDirection: tpl.action,
			PossibleOutcome: tpl.outcome,
		}
		if v == domain.VariantDetailed {
			d.Branches = make([]domain.Branch, domain.BranchesPerMain)
			for j := 0; j < domain.BranchesPerMain; j++ {
				d.Branches[j] = domain.Branch{
					ID:              domain.BranchID(id, j+1),
					CardText:        cardAt(req.BranchCards, i*domain.BranchesPerMain+j),
					PossibleOutcome: fallbackBranchOutcomes[j],
				}
			}
		}
		env.Directions[i] = d
	}
	return env
}

// cardAt keeps FallbackEnvelope total for short label slices.
func cardAt(labels []string, i int) string {
	if i < len(labels) {
		return labels[i]
	}
	return ""
}
