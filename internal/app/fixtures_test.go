package app_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MerlinMagicschool/innerself-ai-server/internal/domain"
	"github.com/MerlinMagicschool/innerself-ai-server/internal/ports"
)

var (
	mainCards   = []string{"力量", "星星", "寶劍二"}
	branchCards = []string{
		"聖杯三", "權杖王牌", "錢幣騎士",
		"月亮", "太陽", "隱者",
		"寶劍八", "聖杯十", "命運之輪",
	}
)

func strPtr(s string) *string { return &s }

func basicRequest() domain.Request {
	return domain.NewRequest("要不要換工作？", nil, mainCards, nil)
}

func detailedRequest() domain.Request {
	return domain.NewRequest("要不要搬到台北？", strPtr("目前在台中工作三年"), mainCards, branchCards)
}

// generatedEnvelope is a well-formed envelope with prose that differs from the fallback.
func generatedEnvelope(req domain.Request, v domain.Variant) domain.Envelope {
	env := domain.Envelope{
		Version:  v.Version(),
		Language: domain.LanguageTag,
		Question: req.Question,
		Context:  req.Context,
	}
	for i, id := range domain.MainIDs {
		d := domain.Direction{
			ID:              id,
			CardText:        req.MainCards[i],
			ActionDirection: "以" + req.MainCards[i] + "的力量整理優先順序，先完成最重要的一步",
			PossibleOutcome: "你會感到更有方向，周遭的人也更願意支持你。",
		}
		if v == domain.VariantDetailed {
			for j, label := range req.Branches(i) {
				d.Branches = append(d.Branches, domain.Branch{
					ID:              domain.BranchID(id, j+1),
					CardText:        label,
					PossibleOutcome: "局勢逐步明朗，新的合作機會浮現。",
				})
			}
		}
		env.Directions = append(env.Directions, d)
	}
	return env
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func toValue(t *testing.T, v any) any {
	t.Helper()
	var out any
	require.NoError(t, json.Unmarshal([]byte(toJSON(t, v)), &out))
	return out
}

type fakeGenerator struct {
	mu    sync.Mutex
	reply ports.Reply
	err   error
	calls []ports.GenerateInput
}

func (f *fakeGenerator) Generate(_ context.Context, in ports.GenerateInput) (ports.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, in)
	return f.reply, f.err
}
