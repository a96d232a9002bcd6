package pipeline

import (
	"strings"
	"testing"

	"github.com/daideguchi/dental-ai-counseling-system/internal/config"
)

func defaultMerger() *Merger {
	return NewMerger(config.Default().Merge)
}

func TestMergeSOAPTotalOverNil(t *testing.T) {
	m := defaultMerger()

	both := m.MergeSOAP(nil, nil)
	if both == nil {
		t.Fatal("MergeSOAP(nil, nil) = nil, want usable record")
	}
	for _, sec := range []string{both.Subjective, both.Objective, both.Assessment, both.Plan} {
		if sec == "" {
			t.Error("section empty in nil-nil merge, want placeholder")
		}
	}

	rule := &SOAPRecord{Subjective: "患者の訴え", Method: MethodRuleBased, Confidence: 0.5}
	if got := m.MergeSOAP(nil, rule); got != rule {
		t.Errorf("MergeSOAP(nil, rule) = %+v, want rule result", got)
	}

	ai := &SOAPRecord{Subjective: "AI抽出の訴え", Confidence: 0.8}
	got := m.MergeSOAP(ai, nil)
	if got.Method != MethodAIPrimary {
		t.Errorf("Method = %v, want %v", got.Method, MethodAIPrimary)
	}
}

func TestMergeSOAPAdoptsConfidentAI(t *testing.T) {
	m := defaultMerger()
	ai := &SOAPRecord{Subjective: "AI側の詳細な記述", Confidence: 0.85}
	rule := &SOAPRecord{Subjective: "ルール側の記述", Confidence: 0.5, Method: MethodRuleBased}

	got := m.MergeSOAP(ai, rule)
	if got.Method != MethodAIPrimary {
		t.Fatalf("Method = %v, want %v", got.Method, MethodAIPrimary)
	}
	if got.Subjective != ai.Subjective {
		t.Errorf("Subjective = %q, want AI text adopted wholesale", got.Subjective)
	}
	if got.AuditTrail != rule {
		t.Error("rule result not retained as audit trail")
	}
}

func TestMergeSOAPHybridSections(t *testing.T) {
	m := defaultMerger()
	longRule := strings.Repeat("ルール側の長い主訴記述。", 8)
	longAI := strings.Repeat("AI側のさらに長い詳細な主訴記述。", 8)

	ai := &SOAPRecord{
		Subjective: longAI,
		Objective:  "短いAI所見",
		Assessment: "AI側の短い評価",
		Confidence: 0.4,
	}
	rule := &SOAPRecord{
		Subjective: longRule,
		Objective:  "こちらは二十文字を超えるルール側の客観的所見の記述です",
		Assessment: "短い評価",
		Confidence: 0.5,
		Method:     MethodRuleBased,
	}

	got := m.MergeSOAP(ai, rule)
	if got.Method != MethodHybrid {
		t.Fatalf("Method = %v, want %v", got.Method, MethodHybrid)
	}
	if got.Subjective != longAI {
		t.Errorf("Subjective: want longer candidate to win")
	}
	if got.Objective != rule.Objective {
		t.Errorf("Objective = %q, want the only substantial candidate", got.Objective)
	}
	if !strings.Contains(got.Assessment, "短い評価") || !strings.Contains(got.Assessment, "【補足情報】") {
		t.Errorf("Assessment = %q, want both weak candidates concatenated", got.Assessment)
	}
}

func TestMergeIdentificationFieldwise(t *testing.T) {
	m := defaultMerger()
	ai := &Identification{
		PatientName:       "田中さん",
		DoctorName:        DefaultDoctorName,
		PatientConfidence: 0.6,
		DoctorConfidence:  0.2,
	}
	rule := &Identification{
		PatientName:       DefaultPatientName,
		DoctorName:        "佐藤先生",
		PatientConfidence: 0.3,
		DoctorConfidence:  0.8,
		Method:            MethodRuleBased,
	}

	got := m.MergeIdentification(ai, rule)
	if got.PatientName != "田中さん" {
		t.Errorf("PatientName = %q, want AI's non-default value", got.PatientName)
	}
	if got.DoctorName != "佐藤先生" {
		t.Errorf("DoctorName = %q, want rule's non-default value", got.DoctorName)
	}
	if got.PatientConfidence != 0.6 || got.DoctorConfidence != 0.8 {
		t.Errorf("confidences = %v/%v, want max of sources", got.PatientConfidence, got.DoctorConfidence)
	}
}

func TestMergeIdentificationTotalOverNil(t *testing.T) {
	m := defaultMerger()

	got := m.MergeIdentification(nil, nil)
	if got.PatientName != DefaultPatientName || got.DoctorName != DefaultDoctorName {
		t.Errorf("names = %q/%q, want defaults", got.PatientName, got.DoctorName)
	}
	if got.PatientConfidence != 0 || got.DoctorConfidence != 0 {
		t.Errorf("confidences = %v/%v, want 0 with no sources", got.PatientConfidence, got.DoctorConfidence)
	}

	ai := &Identification{PatientName: "高橋さん", PatientConfidence: 0.9, DoctorConfidence: 0.9}
	if got := m.MergeIdentification(ai, nil); got.Method != MethodAIPrimary {
		t.Errorf("Method = %v, want %v", got.Method, MethodAIPrimary)
	}
}

func TestMergeIdentificationAdoptsConfidentAI(t *testing.T) {
	m := defaultMerger()
	ai := &Identification{PatientName: "鈴木さん", DoctorName: "山田先生", PatientConfidence: 0.9, DoctorConfidence: 0.8}
	rule := &Identification{PatientName: DefaultPatientName, DoctorName: DefaultDoctorName, PatientConfidence: 0.3, DoctorConfidence: 0.3}

	got := m.MergeIdentification(ai, rule)
	if got.Method != MethodAIPrimary {
		t.Errorf("Method = %v, want %v", got.Method, MethodAIPrimary)
	}
}

func TestMergeQuality(t *testing.T) {
	m := defaultMerger()

	if got := m.MergeQuality(nil, nil); len(got.ImprovementSuggestions) == 0 {
		t.Error("nil-nil quality merge must still carry non-empty lists")
	}

	rule := &QualityAssessment{
		SuccessPossibility:     MetricScore{Score: 0.5},
		ImprovementSuggestions: []string{"費用の説明を追加"},
		PositiveAspects:        []string{"前向きな返答あり"},
		Method:                 MethodRuleBased,
	}
	if got := m.MergeQuality(nil, rule); got != rule {
		t.Error("MergeQuality(nil, rule) should return the rule assessment")
	}

	ai := &QualityAssessment{
		SuccessPossibility:     MetricScore{Score: 0.8},
		ImprovementSuggestions: []string{"AI提案"},
		PositiveAspects:        []string{"AI評価"},
	}
	got := m.MergeQuality(ai, rule)
	if got.Method != MethodAIPrimary {
		t.Errorf("Method = %v, want %v", got.Method, MethodAIPrimary)
	}
	if got.SuccessPossibility.Score != 0.8 {
		t.Errorf("SuccessPossibility = %v, want AI metric", got.SuccessPossibility.Score)
	}
	if len(got.ImprovementSuggestions) != 2 {
		t.Errorf("suggestions = %v, want rule advice appended", got.ImprovementSuggestions)
	}
}
