package pipeline

import (
	"reflect"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	p := NewParser()

	tests := []struct {
		name     string
		raw      string
		fileName string
		want     SourceFormat
	}{
		{
			name:     "plaud speaker tags",
			raw:      "Speaker A: こんにちは\nSpeaker B: よろしくお願いします",
			fileName: "recording.txt",
			want:     FormatPlaudTxt,
		},
		{
			name:     "plaud by file name",
			raw:      "ただの本文",
			fileName: "plaud_2024.txt",
			want:     FormatPlaudTxt,
		},
		{
			name:     "notta bracketed speakers",
			raw:      "【発言者1】本日はどうされましたか\n【発言者2】歯が痛みます",
			fileName: "notta.txt",
			want:     FormatNottaTxt,
		},
		{
			name:     "notta csv",
			raw:      "Speaker,Start Time,End Time,Duration,Text\nSpeaker 1,00:00,00:05,5,どうされましたか",
			fileName: "export.csv",
			want:     FormatNottaCSV,
		},
		{
			name:     "srt blocks",
			raw:      "1\n00:00:01,000 --> 00:00:03,000\n歯が痛いです",
			fileName: "subtitles.srt",
			want:     FormatSRT,
		},
		{
			name:     "markdown summary",
			raw:      "- 主訴: 奥歯の痛み\n- 次回予約あり",
			fileName: "summary.md",
			want:     FormatMarkdownSummary,
		},
		{
			name:     "unknown",
			raw:      "形式のない自由文です",
			fileName: "memo.txt",
			want:     FormatUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Parse(tt.raw, tt.fileName).Format
			if got != tt.want {
				t.Errorf("format = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParsePlaud(t *testing.T) {
	p := NewParser()
	conv := p.Parse("Speaker A: どうされましたか\nSpeaker B: 奥歯が\n痛いです", "rec.txt")

	if len(conv.Utterances) != 2 {
		t.Fatalf("utterances = %d, want 2", len(conv.Utterances))
	}
	if conv.Utterances[0].Role != RoleDoctor {
		t.Errorf("speaker A role = %v, want %v", conv.Utterances[0].Role, RoleDoctor)
	}
	if conv.Utterances[1].Role != RolePatient {
		t.Errorf("speaker B role = %v, want %v", conv.Utterances[1].Role, RolePatient)
	}
	if got, want := conv.Utterances[1].Text, "奥歯が 痛いです"; got != want {
		t.Errorf("continuation text = %q, want %q", got, want)
	}
}

func TestParseNottaCSV(t *testing.T) {
	p := NewParser()
	raw := "Speaker,Start Time,End Time,Duration,Text\n" +
		"Speaker 1,00:00:01,00:00:04,3,本日はどうされましたか\n" +
		"broken,row\n" +
		"Speaker 2,00:00:05,00:00:09,4,冷たいものがしみます"
	conv := p.Parse(raw, "export.csv")

	if len(conv.Utterances) != 2 {
		t.Fatalf("utterances = %d, want 2 (malformed row skipped)", len(conv.Utterances))
	}
	if conv.Utterances[0].Role != RoleDoctor || conv.Utterances[1].Role != RolePatient {
		t.Errorf("roles = %v/%v, want doctor/patient",
			conv.Utterances[0].Role, conv.Utterances[1].Role)
	}
	if conv.Utterances[0].StartTime != "00:00:01" {
		t.Errorf("start time = %q, want %q", conv.Utterances[0].StartTime, "00:00:01")
	}
}

func TestParseSRT(t *testing.T) {
	p := NewParser()
	raw := "1\n00:00:01,000 --> 00:00:03,000\n歯が痛いです\n\n" +
		"2\n00:00:04,000 --> 00:00:06,000\nレントゲンを撮りましょう\n\n" +
		"壊れたブロック\n"
	conv := p.Parse(raw, "rec.srt")

	if len(conv.Utterances) != 2 {
		t.Fatalf("utterances = %d, want 2", len(conv.Utterances))
	}
	for i, u := range conv.Utterances {
		if u.Role != RoleUnknown {
			t.Errorf("utterance %d role = %v, want unknown before classification", i, u.Role)
		}
	}
	if conv.Utterances[0].Speaker == conv.Utterances[1].Speaker {
		t.Errorf("adjacent subtitle blocks share speaker %q", conv.Utterances[0].Speaker)
	}
	if conv.Utterances[0].StartTime != "00:00:01,000" {
		t.Errorf("start time = %q", conv.Utterances[0].StartTime)
	}
}

func TestParseEmptyYieldsValidConversation(t *testing.T) {
	p := NewParser()
	conv := p.Parse("", "empty.txt")
	if conv == nil {
		t.Fatal("conversation is nil")
	}
	if len(conv.Utterances) != 0 {
		t.Errorf("utterances = %d, want 0", len(conv.Utterances))
	}
}

func TestParseIdempotent(t *testing.T) {
	p := NewParser()
	raw := "Speaker A: 本日はどうされましたか\nSpeaker B: 奥歯が痛いです"

	first := p.Parse(raw, "rec.txt")
	second := p.Parse(raw, "rec.txt")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("parsing is not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}
