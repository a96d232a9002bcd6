package pipeline

import (
	"strings"
	"testing"

	"github.com/daideguchi/dental-ai-counseling-system/internal/config"
)

func defaultExtractor() *Extractor {
	return NewExtractor(DefaultTaxonomy(), config.Default().Extraction)
}

func patientSays(text string) Utterance { return Utterance{Text: text, Role: RolePatient} }
func doctorSays(text string) Utterance  { return Utterance{Text: text, Role: RoleDoctor} }

func TestExtractBuildsAllSections(t *testing.T) {
	conv := &ParsedConversation{Utterances: []Utterance{
		patientSays("奥歯がズキズキして激痛があります"),
		doctorSays("レントゲンで根尖病変を認めます"),
		doctorSays("C3の虫歯と診断します"),
		doctorSays("次回、根管治療を行いましょう"),
	}}

	rec := defaultExtractor().Extract(conv)

	if !strings.Contains(rec.Subjective, "【主訴・症状】") || !strings.Contains(rec.Subjective, "奥歯がズキズキして激痛があります") {
		t.Errorf("Subjective = %q, want verbatim utterance under 【主訴・症状】", rec.Subjective)
	}
	if !strings.Contains(rec.Objective, "レントゲンで根尖病変を認めます") {
		t.Errorf("Objective = %q, want examination finding included", rec.Objective)
	}
	if !strings.Contains(rec.Assessment, "C3の虫歯と診断します") {
		t.Errorf("Assessment = %q, want diagnosis included", rec.Assessment)
	}
	if !strings.Contains(rec.Plan, "根管治療") {
		t.Errorf("Plan = %q, want treatment plan included", rec.Plan)
	}
	if rec.Method != MethodRuleBased {
		t.Errorf("Method = %v, want %v", rec.Method, MethodRuleBased)
	}
	if got := rec.Breakdown["patient_lines_count"]; got != 1 {
		t.Errorf("patient_lines_count = %v, want 1", got)
	}
	if got := rec.Breakdown["doctor_lines_count"]; got != 3 {
		t.Errorf("doctor_lines_count = %v, want 3", got)
	}
}

func TestExtractPlaceholdersOnNoEvidence(t *testing.T) {
	rec := defaultExtractor().Extract(&ParsedConversation{})

	for name, section := range map[string]string{
		"S": rec.Subjective, "O": rec.Objective, "A": rec.Assessment, "P": rec.Plan,
	} {
		if section == "" {
			t.Errorf("section %s is empty, want placeholder", name)
		}
		if section != sectionPlaceholders[name] {
			t.Errorf("section %s = %q, want placeholder", name, section)
		}
	}
}

func TestExtractFilters(t *testing.T) {
	conv := &ParsedConversation{Utterances: []Utterance{
		patientSays("痛みは続いていますか？"), // question
		patientSays("わかりました"),       // acknowledgement
		patientSays("はい"),            // too short
	}}

	rec := defaultExtractor().Extract(conv)

	if rec.Subjective != sectionPlaceholders["S"] {
		t.Errorf("Subjective = %q, want placeholder (all lines filtered)", rec.Subjective)
	}
	if got := rec.Breakdown["patient_lines_count"]; got != 0 {
		t.Errorf("patient_lines_count = %v, want 0 after filtering", got)
	}
}

func TestExtractSectionCap(t *testing.T) {
	conv := &ParsedConversation{Utterances: []Utterance{
		patientSays("朝から歯が痛いです、一つ目"),
		patientSays("噛むと痛みが走ります、二つ目"),
		patientSays("夜もズキズキ痛みます、三つ目"),
		patientSays("今も痛みが残っています、四つ目"),
	}}

	rec := defaultExtractor().Extract(conv)

	if got := rec.Breakdown["subjective_matches"]; got != 3 {
		t.Errorf("subjective_matches = %v, want cap of 3", got)
	}
	if strings.Contains(rec.Subjective, "四つ目") {
		t.Errorf("Subjective includes utterance past the cap: %q", rec.Subjective)
	}
}

func TestExtractUnattributedExcluded(t *testing.T) {
	conv := &ParsedConversation{Utterances: []Utterance{
		{Text: "奥歯がとても痛いです", Role: RoleUnknown},
	}}

	rec := defaultExtractor().Extract(conv)
	if rec.Subjective != sectionPlaceholders["S"] {
		t.Errorf("Subjective = %q, want placeholder when role is unknown", rec.Subjective)
	}
}
