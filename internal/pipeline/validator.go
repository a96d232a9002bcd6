package pipeline

import (
	"fmt"
	"strings"

	"github.com/daideguchi/dental-ai-counseling-system/internal/config"
)

// Validator scores how much a transcript looks like a dental consultation.
// The gate is deliberately permissive: borderline text passes with reduced
// confidence, and only heavy non-dental contamination rejects.
type Validator struct {
	lexicon  *ValidationLexicon
	settings config.ValidationSettings
}

// NewValidator builds a validator over an immutable lexicon.
func NewValidator(lexicon *ValidationLexicon, settings config.ValidationSettings) *Validator {
	return &Validator{lexicon: lexicon, settings: settings}
}

// Validate computes the three keyword-density ratios and the accept decision.
func (v *Validator) Validate(raw string) ValidationResult {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ValidationResult{
			IsValid:    false,
			Confidence: v.settings.ConfidenceFloor,
			Reason:     "内容が空です",
		}
	}

	tokens := float64(len(strings.Fields(trimmed)))
	denom := tokens * 0.1
	if denom < 1 {
		denom = 1
	}
	convDenom := tokens * 0.05
	if convDenom < 1 {
		convDenom = 1
	}

	dental := float64(countAny(trimmed, v.lexicon.Dental)) / denom
	// Contamination markers weigh double: one code fragment outweighs a
	// stray domain word.
	nonDental := float64(countAny(trimmed, v.lexicon.NonDental)) * 2 / denom

	convHits := 0
	for _, re := range v.lexicon.ConversationPatterns {
		convHits += len(re.FindAllStringIndex(trimmed, -1))
	}
	conversation := float64(convHits) / convDenom

	result := ValidationResult{
		IsValid:           nonDental <= v.settings.ContaminationThreshold,
		Confidence:        clamp((dental+conversation)*0.7, v.settings.ConfidenceFloor, v.settings.ConfidenceCeiling),
		DentalScore:       dental,
		NonDentalScore:    nonDental,
		ConversationScore: conversation,
	}

	switch {
	case !result.IsValid:
		result.Reason = fmt.Sprintf("非歯科コンテンツ（コード・技術文書等）の混入が多すぎます（混入スコア %.2f）", nonDental)
	case dental == 0:
		result.Reason = "歯科関連の語彙は検出されませんでしたが、処理を継続します"
	default:
		result.Reason = "歯科相談の内容と判定しました"
	}
	return result
}

// countAny sums raw occurrence counts of every phrase in the text.
func countAny(text string, phrases []string) int {
	total := 0
	for _, p := range phrases {
		total += strings.Count(text, p)
	}
	return total
}
