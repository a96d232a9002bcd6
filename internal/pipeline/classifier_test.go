package pipeline

import "testing"

func TestClassifyByContent(t *testing.T) {
	// Positional guess says A is the doctor; content evidence says otherwise.
	conv := NewParser().Parse("Speaker A: 奥歯が痛いです\nSpeaker B: レントゲンを撮りましょう", "rec.txt")

	confidence := NewClassifier(DefaultRoleLexicon()).Classify(conv)

	if got := conv.Utterances[0].Role; got != RolePatient {
		t.Errorf("speaker A role = %v, want %v", got, RolePatient)
	}
	if got := conv.Utterances[1].Role; got != RoleDoctor {
		t.Errorf("speaker B role = %v, want %v", got, RoleDoctor)
	}
	if confidence <= 0 || confidence > 0.95 {
		t.Errorf("confidence = %v, want within (0, 0.95]", confidence)
	}
}

func TestClassifyKeepsGuessWithoutEvidence(t *testing.T) {
	conv := NewParser().Parse("Speaker A: こんにちは\nSpeaker B: どうもどうも", "rec.txt")

	confidence := NewClassifier(DefaultRoleLexicon()).Classify(conv)

	if got := conv.Utterances[0].Role; got != RoleDoctor {
		t.Errorf("speaker A role = %v, want parser guess %v kept", got, RoleDoctor)
	}
	if got := conv.Utterances[1].Role; got != RolePatient {
		t.Errorf("speaker B role = %v, want parser guess %v kept", got, RolePatient)
	}
	if confidence != 0 {
		t.Errorf("confidence = %v, want 0 without corroborating matches", confidence)
	}
}

func TestClassifyExplicitMarkers(t *testing.T) {
	conv := &ParsedConversation{Utterances: []Utterance{
		{Index: 0, Speaker: "佐藤先生", Text: "こんにちは", Role: RoleUnknown},
		{Index: 1, Speaker: "田中さん", Text: "よろしくどうぞ", Role: RoleUnknown},
	}}

	NewClassifier(DefaultRoleLexicon()).Classify(conv)

	if got := conv.Utterances[0].Role; got != RoleDoctor {
		t.Errorf("佐藤先生 role = %v, want %v", got, RoleDoctor)
	}
	if got := conv.Utterances[1].Role; got != RolePatient {
		t.Errorf("田中さん role = %v, want %v", got, RolePatient)
	}
}

func TestClassifyAnonymousSubtitles(t *testing.T) {
	raw := "1\n00:00:01,000 --> 00:00:03,000\n冷たいものがしみて不安です\n\n" +
		"2\n00:00:04,000 --> 00:00:06,000\n検査して状態を確認しましょう"
	conv := NewParser().Parse(raw, "rec.srt")

	NewClassifier(DefaultRoleLexicon()).Classify(conv)

	if got := conv.Utterances[0].Role; got != RolePatient {
		t.Errorf("話者1 role = %v, want %v", got, RolePatient)
	}
	if got := conv.Utterances[1].Role; got != RoleDoctor {
		t.Errorf("話者2 role = %v, want %v", got, RoleDoctor)
	}
}

func TestClassifyEmpty(t *testing.T) {
	if got := NewClassifier(DefaultRoleLexicon()).Classify(&ParsedConversation{}); got != 0 {
		t.Errorf("confidence = %v, want 0 for empty conversation", got)
	}
}
