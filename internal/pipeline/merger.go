package pipeline

import (
	"strings"
	"unicode/utf8"

	"github.com/daideguchi/dental-ai-counseling-system/internal/config"
)

// Merger reconciles the AI path with the rule path. It is deterministic and
// total: any combination of nil inputs still yields a usable result.
type Merger struct {
	settings config.MergeSettings
}

// NewMerger builds a merger with the given acceptance thresholds.
func NewMerger(settings config.MergeSettings) *Merger {
	return &Merger{settings: settings}
}

// MergeSOAP picks the AI note wholesale when its confidence strictly beats
// the rule note and clears the acceptance floor; the rule note is kept as an
// audit trail. Otherwise a section-by-section hybrid is built.
func (m *Merger) MergeSOAP(ai, rule *SOAPRecord) *SOAPRecord {
	switch {
	case ai == nil && rule == nil:
		return &SOAPRecord{
			Subjective: sectionPlaceholders["S"],
			Objective:  sectionPlaceholders["O"],
			Assessment: sectionPlaceholders["A"],
			Plan:       sectionPlaceholders["P"],
			Method:     MethodRuleBased,
		}
	case ai == nil:
		return rule
	case rule == nil:
		ai.Method = MethodAIPrimary
		return ai
	}

	if ai.Confidence > rule.Confidence && ai.Confidence > m.settings.SOAPAcceptFloor {
		adopted := *ai
		adopted.Method = MethodAIPrimary
		adopted.AuditTrail = rule
		return &adopted
	}

	merged := &SOAPRecord{
		Subjective: m.mergeSection(ai.Subjective, rule.Subjective),
		Objective:  m.mergeSection(ai.Objective, rule.Objective),
		Assessment: m.mergeSection(ai.Assessment, rule.Assessment),
		Plan:       m.mergeSection(ai.Plan, rule.Plan),
		Confidence: maxFloat(ai.Confidence, rule.Confidence),
		Breakdown:  rule.Breakdown,
		Method:     MethodHybrid,
	}
	return merged
}

// mergeSection: when both candidates are substantial the longer wins; when
// only one clears the minimum it wins outright; otherwise neither overwrites
// the other and both are kept under a supplementary heading.
func (m *Merger) mergeSection(aiText, ruleText string) string {
	aiLen := utf8.RuneCountInString(aiText)
	ruleLen := utf8.RuneCountInString(ruleText)

	switch {
	case aiLen > m.settings.SectionPreferRunes && ruleLen > m.settings.SectionPreferRunes:
		if aiLen >= ruleLen {
			return aiText
		}
		return ruleText
	case aiLen > m.settings.SectionMinRunes && ruleLen <= m.settings.SectionMinRunes:
		return aiText
	case ruleLen > m.settings.SectionMinRunes && aiLen <= m.settings.SectionMinRunes:
		return ruleText
	case aiLen > m.settings.SectionMinRunes && ruleLen > m.settings.SectionMinRunes:
		if aiLen >= ruleLen {
			return aiText
		}
		return ruleText
	}

	parts := []string{}
	if ruleText != "" {
		parts = append(parts, ruleText)
	}
	if aiText != "" && aiText != ruleText {
		parts = append(parts, "【補足情報】\n"+aiText)
	}
	return strings.Join(parts, "\n\n")
}

// MergeIdentification prefers, per field, whichever source produced a
// non-default name; confidence is the max of the two sources.
func (m *Merger) MergeIdentification(ai, rule *Identification) Identification {
	switch {
	case ai == nil && rule == nil:
		return Identification{
			PatientName: DefaultPatientName,
			DoctorName:  DefaultDoctorName,
			Method:      MethodRuleBased,
		}
	case ai == nil:
		return *rule
	case rule == nil:
		out := *ai
		out.Method = MethodAIPrimary
		return out
	}

	if avgConfidence(ai) > avgConfidence(rule) && avgConfidence(ai) > m.settings.IdentifyAcceptFloor {
		out := *ai
		out.Method = MethodAIPrimary
		return out
	}

	out := Identification{Method: MethodHybrid, Reasoning: rule.Reasoning}
	out.PatientName, out.PatientConfidence = pickName(
		ai.PatientName, ai.PatientConfidence, rule.PatientName, rule.PatientConfidence, DefaultPatientName)
	out.DoctorName, out.DoctorConfidence = pickName(
		ai.DoctorName, ai.DoctorConfidence, rule.DoctorName, rule.DoctorConfidence, DefaultDoctorName)
	if ai.Reasoning != "" {
		out.Reasoning = ai.Reasoning
	}
	return out
}

func pickName(aiName string, aiConf float64, ruleName string, ruleConf float64, fallback string) (string, float64) {
	conf := maxFloat(aiConf, ruleConf)
	aiHas := aiName != "" && aiName != fallback
	ruleHas := ruleName != "" && ruleName != fallback
	switch {
	case aiHas && ruleHas:
		if aiConf >= ruleConf {
			return aiName, conf
		}
		return ruleName, conf
	case aiHas:
		return aiName, conf
	case ruleHas:
		return ruleName, conf
	default:
		return fallback, conf
	}
}

// MergeQuality adopts the AI assessment when present; the rule-based
// suggestion lists are appended so deterministic advice survives.
func (m *Merger) MergeQuality(ai, rule *QualityAssessment) *QualityAssessment {
	switch {
	case ai == nil && rule == nil:
		return &QualityAssessment{
			SuccessPossibility:         MetricScore{InsufficientData: true, Reasoning: "評価結果がありません"},
			PatientUnderstanding:       MetricScore{InsufficientData: true, Reasoning: "評価結果がありません"},
			TreatmentConsentLikelihood: MetricScore{InsufficientData: true, Reasoning: "評価結果がありません"},
			ImprovementSuggestions:     []string{"評価に利用できる情報がありません"},
			PositiveAspects:            []string{"評価に利用できる情報がありません"},
			Method:                     MethodRuleBased,
		}
	case ai == nil:
		return rule
	case rule == nil:
		ai.Method = MethodAIPrimary
		return ai
	}

	out := *ai
	out.Method = MethodAIPrimary
	out.ImprovementSuggestions = appendUnique(out.ImprovementSuggestions, rule.ImprovementSuggestions)
	out.PositiveAspects = appendUnique(out.PositiveAspects, rule.PositiveAspects)
	return &out
}

func appendUnique(dst, src []string) []string {
	seen := map[string]bool{}
	for _, s := range dst {
		seen[s] = true
	}
	for _, s := range src {
		if !seen[s] {
			dst = append(dst, s)
			seen[s] = true
		}
	}
	return dst
}

func avgConfidence(id *Identification) float64 {
	return (id.PatientConfidence + id.DoctorConfidence) / 2
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
