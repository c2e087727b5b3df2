package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MerlinMagicschool/innerself-ai-server/internal/domain"
)

const (
	proseSlot       = "<依規則撰寫>"
	missingContext  = "（未提供）"
	promptRoleLine  = "你是一位沉穩、務實的塔羅解讀師，擅長把牌面象徵轉化為具體可行的行動方向。"
	promptTaskBasic = "請針對下方問題，為三張主牌 A、B、C 各寫出一個行動方向與可能結果。"
	promptTaskTree  = "請針對下方問題，為三張主牌 A、B、C 各寫出一個行動方向與可能結果，並為每張主牌底下的三張分支牌各寫出一個可能結果。"
)

// BuildPrompt renders the single instruction sent to the generation service.
// It is a pure function of its input.
func BuildPrompt(req domain.Request, v domain.Variant) string {
	var b strings.Builder

	b.WriteString(promptRoleLine)
	b.WriteString("\n")
	if v == domain.VariantDetailed {
		b.WriteString(promptTaskTree)
	} else {
		b.WriteString(promptTaskBasic)
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "【問題】%s\n", req.Question)
	if req.Context != nil {
		fmt.Fprintf(&b, "【背景】%s\n", *req.Context)
	} else {
		fmt.Fprintf(&b, "【背景】%s\n", missingContext)
	}

	b.WriteString("\n【主牌】\n")
	for i, id := range domain.MainIDs {
		fmt.Fprintf(&b, "%s：%s\n", id, req.MainCards[i])
	}
	if v == domain.VariantDetailed {
		b.WriteString("\n【分支牌】\n")
		for i, id := range domain.MainIDs {
			for j, label := range req.Branches(i) {
				fmt.Fprintf(&b, "%s：%s\n", domain.BranchID(id, j+1), label)
			}
		}
	}

	b.WriteString("\n【規則】\n")
	b.WriteString("1. cardText 必須與上方列出的牌名逐字相同，不可改寫、翻譯、增刪字元或加註正逆位。\n")
	fmt.Fprintf(&b, "2. actionDirection 長度為 %d 到 %d 個全形字，是一個具體可執行的行動建議。\n",
		domain.ActionDirectionMin, domain.ActionDirectionMax)
	fmt.Fprintf(&b, "3. possibleOutcome 不超過 %d 個全形字，描述採取該方向後可能出現的結果。\n",
		domain.PossibleOutcomeMax)
	b.WriteString("4. 錨定原則：每一句行動方向與可能結果都必須同時呼應")
	if req.Context != nil {
		b.WriteString("（一）提問內容、（二）背景描述、（三）該張牌本身的象徵意義")
	} else {
		b.WriteString("（一）提問內容、（二）該張牌本身的象徵意義")
	}
	b.WriteString("，不得使用放諸四海皆準的空泛句子。\n")
	b.WriteString("5. id 必須依照上方的編號與順序，不可增加或減少項目。\n")
	if req.Context == nil {
		b.WriteString("6. 未提供背景時，context 必須是 null，不可填入空字串。\n")
	} else {
		b.WriteString("6. context 請原樣填入上方的背景描述。\n")
	}
	b.WriteString("7. 只輸出一個 JSON 物件，不要加上 Markdown 程式碼區塊、說明文字或任何前後綴。\n")

	b.WriteString("\n【輸出格式】\n")
	b.WriteString(skeleton(req, v))
	return b.String()
}

// skeleton renders the expected JSON with the real labels and placeholder prose.
func skeleton(req domain.Request, v domain.Variant) string {
	env := domain.Envelope{
		Version:    v.Version(),
		Language:   domain.LanguageTag,
		Question:   req.Question,
		Context:    req.Context,
		Directions: make([]domain.Direction, domain.MainCardCount),
	}
	for i, id := range domain.MainIDs {
		d := domain.Direction{
			ID:              id,
			CardText:        req.MainCards[i],
			ActionDirection: proseSlot,
			PossibleOutcome: proseSlot,
		}
		if v == domain.VariantDetailed {
			for j, label := range req.Branches(i) {
				d.Branches = append(d.Branches, domain.Branch{
					ID:              domain.BranchID(id, j+1),
					CardText:        label,
					PossibleOutcome: proseSlot,
				})
			}
		}
		env.Directions[i] = d
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	// Envelope holds only strings and slices; encoding cannot fail.
	_ = enc.Encode(env)
	return buf.String()
}
