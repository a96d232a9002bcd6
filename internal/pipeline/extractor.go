package pipeline

import (
	"strings"
	"unicode/utf8"

	"github.com/daideguchi/dental-ai-counseling-system/internal/config"
)

// Extractor is the rule-based SOAP path. Matched utterances are included
// verbatim under their category heading; nothing is paraphrased.
type Extractor struct {
	taxonomy *Taxonomy
	settings config.ExtractionSettings
}

// NewExtractor builds an extractor over an immutable taxonomy.
func NewExtractor(taxonomy *Taxonomy, settings config.ExtractionSettings) *Extractor {
	return &Extractor{taxonomy: taxonomy, settings: settings}
}

// Extract builds the four SOAP sections from role-attributed utterances.
// Subjective draws on patient speech, the clinical sections on doctor speech;
// unattributed utterances are excluded rather than guessed. Sections with no
// evidence get a canned placeholder so no field is ever blank.
func (e *Extractor) Extract(conv *ParsedConversation) *SOAPRecord {
	var patientLines, doctorLines []string
	for _, u := range conv.Utterances {
		if e.excluded(u.Text) {
			continue
		}
		switch u.Role {
		case RolePatient:
			patientLines = append(patientLines, u.Text)
		case RoleDoctor:
			doctorLines = append(doctorLines, u.Text)
		}
	}

	subj, nSubj := e.section(patientLines, e.taxonomy.Subjective, e.settings.MaxSubjective, "S")
	obj, nObj := e.section(doctorLines, e.taxonomy.Objective, e.settings.MaxObjective, "O")
	assess, nAssess := e.section(doctorLines, e.taxonomy.Assessment, e.settings.MaxAssessment, "A")
	plan, nPlan := e.section(doctorLines, e.taxonomy.Plan, e.settings.MaxPlan, "P")

	return &SOAPRecord{
		Subjective: subj,
		Objective:  obj,
		Assessment: assess,
		Plan:       plan,
		Method:     MethodRuleBased,
		Breakdown: map[string]float64{
			"patient_lines_count": float64(len(patientLines)),
			"doctor_lines_count":  float64(len(doctorLines)),
			"subjective_matches":  float64(nSubj),
			"objective_matches":   float64(nObj),
			"assessment_matches":  float64(nAssess),
			"plan_matches":        float64(nPlan),
		},
	}
}

// excluded filters out questions, bare acknowledgements and fragments too
// short to carry clinical content.
func (e *Extractor) excluded(text string) bool {
	if utf8.RuneCountInString(text) < e.settings.MinUtteranceRunes {
		return true
	}
	if strings.HasSuffix(text, "？") || strings.HasSuffix(text, "?") || strings.Contains(text, "ですか") {
		return true
	}
	for _, ack := range shortAcks {
		if strings.HasPrefix(text, ack) && utf8.RuneCountInString(text) <= utf8.RuneCountInString(ack)+4 {
			return true
		}
	}
	return false
}

// section assigns lines to the first matching sub-category, in utterance
// order, up to the limit. Matches past the cap are discarded, not substituted.
func (e *Extractor) section(lines []string, categories []Category, limit int, key string) (string, int) {
	type group struct {
		label string
		texts []string
	}
	var groups []group
	byLabel := map[string]int{}
	matched := 0

	for _, line := range lines {
		if matched >= limit {
			break
		}
		label, ok := firstMatch(line, categories)
		if !ok {
			continue
		}
		idx, seen := byLabel[label]
		if !seen {
			idx = len(groups)
			byLabel[label] = idx
			groups = append(groups, group{label: label})
		}
		groups[idx].texts = append(groups[idx].texts, line)
		matched++
	}

	if matched == 0 {
		return sectionPlaceholders[key], 0
	}

	var b strings.Builder
	for i, g := range groups {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("【" + g.label + "】")
		for _, t := range g.texts {
			b.WriteString("\n- " + t)
		}
	}
	return b.String(), matched
}

func firstMatch(text string, categories []Category) (string, bool) {
	for _, c := range categories {
		for _, kw := range c.Keywords {
			if strings.Contains(text, kw) {
				return c.Label, true
			}
		}
	}
	return "", false
}
