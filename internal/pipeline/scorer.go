package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/daideguchi/dental-ai-counseling-system/internal/config"
)

// Scorer computes the SOAP confidence score and the consultation quality
// assessment. Every metric is derived from countable evidence and carries a
// reasoning string built from the same counts, so the numbers stay auditable.
type Scorer struct {
	lexicon  *QualityLexicon
	settings config.ScoringSettings
}

// NewScorer builds a scorer over an immutable quality lexicon.
func NewScorer(lexicon *QualityLexicon, settings config.ScoringSettings) *Scorer {
	return &Scorer{lexicon: lexicon, settings: settings}
}

// ScoreSOAP rates a note on completeness, detail, terminology density and
// structural well-formedness.
func (s *Scorer) ScoreSOAP(record *SOAPRecord) float64 {
	sections := []string{record.Subjective, record.Objective, record.Assessment, record.Plan}

	var completeness, structure float64
	totalRunes := 0
	for _, sec := range sections {
		totalRunes += utf8.RuneCountInString(sec)
		switch {
		case sec == "":
		case isPlaceholder(sec), utf8.RuneCountInString(sec) < s.settings.SectionSubstantiveRunes:
			completeness += 0.5
		default:
			completeness += 1
		}
		if strings.Contains(sec, "【") && strings.Contains(sec, "】") {
			structure += 1
		}
	}
	completeness /= 4
	structure /= 4

	detail := float64(totalRunes) / float64(s.settings.TargetDetailChars)
	if detail > 1 {
		detail = 1
	}

	full := strings.Join(sections, "\n")
	termHits := 0
	for _, term := range medicalTerms {
		if strings.Contains(full, term) {
			termHits++
		}
	}
	terminology := float64(termHits) / float64(len(medicalTerms))

	return clampScore(s.settings.CompletenessWeight*completeness +
		s.settings.DetailWeight*detail +
		s.settings.TerminologyWeight*terminology +
		s.settings.StructureWeight*structure)
}

func isPlaceholder(section string) bool {
	for _, p := range sectionPlaceholders {
		if section == p {
			return true
		}
	}
	return false
}

// AssessQuality evaluates the consultation from patient-attributed speech.
// With zero attributable patient utterances every metric reports
// insufficient data instead of inventing a number.
func (s *Scorer) AssessQuality(conv *ParsedConversation) *QualityAssessment {
	var patientText []string
	for _, u := range conv.Utterances {
		if u.Role == RolePatient {
			patientText = append(patientText, u.Text)
		}
	}
	joined := strings.Join(patientText, "\n")
	allText := conversationText(conv)

	if len(patientText) == 0 {
		missing := MetricScore{
			Reasoning:        "評価に必要な患者の発言が記録されていません",
			InsufficientData: true,
		}
		return &QualityAssessment{
			SuccessPossibility:         missing,
			PatientUnderstanding:       missing,
			TreatmentConsentLikelihood: missing,
			ImprovementSuggestions:     []string{"話者の役割を特定できる形式での録音をご検討ください"},
			PositiveAspects:            []string{"会話記録からは特筆すべき肯定的要素を特定できませんでした"},
			Method:                     MethodRuleBased,
		}
	}

	affirm, affirmEv := countEvidence(joined, s.lexicon.Affirmative)
	hesit, hesitEv := countEvidence(joined, s.lexicon.Hesitation)
	und, undEv := countEvidence(joined, s.lexicon.Understanding)
	conf, confEv := countEvidence(joined, s.lexicon.Confusion)
	gratitude, _ := countEvidence(joined, s.lexicon.Gratitude)
	treatment, _ := countEvidence(allText, s.lexicon.TreatmentTopic)
	cost, _ := countEvidence(allText, s.lexicon.CostTopic)

	qa := &QualityAssessment{
		SuccessPossibility:         s.successPossibility(affirm, hesit, len(patientText), mergeEvidence(affirmEv, hesitEv)),
		PatientUnderstanding:       s.patientUnderstanding(und, conf, len(patientText), mergeEvidence(undEv, confEv)),
		TreatmentConsentLikelihood: s.consentLikelihood(affirm, hesit, treatment, mergeEvidence(affirmEv, hesitEv)),
		Method:                     MethodRuleBased,
	}
	qa.ImprovementSuggestions = s.suggestions(hesit, und, cost, treatment)
	qa.PositiveAspects = s.positives(affirm, gratitude, und)
	return qa
}

func (s *Scorer) successPossibility(affirm, hesit, patientLines int, ev map[string]int) MetricScore {
	if affirm == 0 && hesit == 0 {
		return engagementFallback(patientLines)
	}
	score := clampScore((float64(affirm)-0.5*float64(hesit))/3 + 0.3)
	return MetricScore{
		Score:     score,
		Reasoning: fmt.Sprintf("肯定的な発言%d回、躊躇・懸念の表現%d回から算出（%s）", affirm, hesit, describeEvidence(ev)),
		Evidence:  ev,
	}
}

func (s *Scorer) patientUnderstanding(und, conf, patientLines int, ev map[string]int) MetricScore {
	if und == 0 && conf == 0 {
		return engagementFallback(patientLines)
	}
	score := clampScore(float64(und)/float64(und+conf+1) + 0.4)
	return MetricScore{
		Score:     score,
		Reasoning: fmt.Sprintf("理解を示す発言%d回、混乱を示す発言%d回から算出（%s）", und, conf, describeEvidence(ev)),
		Evidence:  ev,
	}
}

func (s *Scorer) consentLikelihood(affirm, hesit, treatment int, ev map[string]int) MetricScore {
	// Linear in affirmative occurrences so that each additional consent
	// signal raises the estimate until the clamp.
	base := 0.2 + 0.15*float64(affirm) - 0.1*float64(hesit)
	topicNote := "治療方針の話題は検出されませんでした"
	if treatment > 0 {
		base += 0.1
		topicNote = fmt.Sprintf("治療方針に関する話題を%d回確認", treatment)
	}
	return MetricScore{
		Score:     clampScore(base),
		Reasoning: fmt.Sprintf("同意を示す発言%d回、躊躇%d回。%s（%s）", affirm, hesit, topicNote, describeEvidence(ev)),
		Evidence:  ev,
	}
}

// engagementFallback is the coarse utterance-count estimate used only when no
// keyword evidence of either polarity exists.
func engagementFallback(patientLines int) MetricScore {
	n := patientLines
	if n > 10 {
		n = 10
	}
	return MetricScore{
		Score:     clampScore(0.3 + 0.03*float64(n)),
		Reasoning: fmt.Sprintf("判定語が見つからないため、患者の発言数%d件による概算です", patientLines),
	}
}

func (s *Scorer) suggestions(hesit, und, cost, treatment int) []string {
	var out []string
	if cost == 0 {
		out = append(out, "費用・保険適用についての説明を追加するとよいでしょう")
	}
	if hesit > 0 {
		out = append(out, "患者の不安・躊躇に対する追加のフォローが有効と考えられます")
	}
	if und == 0 {
		out = append(out, "説明内容の理解を患者に確認する声かけを増やしてください")
	}
	if treatment == 0 {
		out = append(out, "次回の治療方針・予約について明示的に合意を取ってください")
	}
	if len(out) == 0 {
		out = append(out, "特記すべき改善点はありません。引き続き丁寧な説明を継続してください")
	}
	return out
}

func (s *Scorer) positives(affirm, gratitude, und int) []string {
	var out []string
	if affirm > 0 {
		out = append(out, fmt.Sprintf("患者から前向きな返答が%d回得られています", affirm))
	}
	if und > 0 {
		out = append(out, "説明に対する理解の表明が確認できます")
	}
	if gratitude > 0 {
		out = append(out, "感謝の言葉があり、良好な信頼関係がうかがえます")
	}
	if len(out) == 0 {
		out = append(out, "会話記録からは特筆すべき肯定的要素を特定できませんでした")
	}
	return out
}

// countEvidence returns the total occurrence count plus per-phrase counts for
// every phrase actually found.
func countEvidence(text string, phrases []string) (int, map[string]int) {
	total := 0
	ev := map[string]int{}
	for _, p := range phrases {
		if n := strings.Count(text, p); n > 0 {
			ev[p] = n
			total += n
		}
	}
	return total, ev
}

func mergeEvidence(maps ...map[string]int) map[string]int {
	out := map[string]int{}
	for _, m := range maps {
		for k, v := range m {
			out[k] += v
		}
	}
	return out
}

// describeEvidence renders found phrases deterministically, sorted by phrase.
func describeEvidence(ev map[string]int) string {
	if len(ev) == 0 {
		return "該当語なし"
	}
	keys := make([]string, 0, len(ev))
	for k := range ev {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("「%s」×%d", k, ev[k]))
	}
	return strings.Join(parts, "、")
}

func conversationText(conv *ParsedConversation) string {
	var b strings.Builder
	for _, u := range conv.Utterances {
		b.WriteString(u.Text)
		b.WriteString("\n")
	}
	return b.String()
}
