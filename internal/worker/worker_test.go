package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/daideguchi/dental-ai-counseling-system/internal/config"
	"github.com/daideguchi/dental-ai-counseling-system/internal/pipeline"
)

type memorySink struct {
	mu      sync.Mutex
	results []*pipeline.Result
}

func (m *memorySink) Append(res *pipeline.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, res)
	return nil
}

func writeTranscript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestBatchRun(t *testing.T) {
	cfg := config.Default()
	dir := t.TempDir()

	good1 := writeTranscript(t, dir, "a.txt",
		"Speaker A: 奥歯が痛いです、冷たいものがしみます\nSpeaker B: レントゲンで虫歯を確認しましょう")
	good2 := writeTranscript(t, dir, "b.txt",
		"Speaker A: 歯茎から出血があって心配です\nSpeaker B: 歯周病の検査をしましょう")
	tooShort := writeTranscript(t, dir, "short.txt", "はい")

	sink := &memorySink{}
	batch := NewBatch(pipeline.New(cfg, nil), cfg.Worker, false, sink)

	results, err := batch.Run(context.Background(), []string{good1, good2, tooShort})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("results = %d, want 2 (short transcript skipped, not fatal)", len(results))
	}
	if len(sink.results) != 2 {
		t.Errorf("sink received %d results, want 2", len(sink.results))
	}
}

func TestBatchCancellation(t *testing.T) {
	cfg := config.Default()
	dir := t.TempDir()
	path := writeTranscript(t, dir, "a.txt",
		"Speaker A: 奥歯が痛いです今日は\nSpeaker B: 診察しましょう本日")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := NewBatch(pipeline.New(cfg, nil), cfg.Worker, true)
	if _, err := batch.Run(ctx, []string{path}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestCheckContent(t *testing.T) {
	settings := config.Default().Worker

	tests := []struct {
		name    string
		text    string
		wantErr error
	}{
		{"enough content", "奥歯が痛くてつらいです", nil},
		{"whitespace only", "   \n\t  ", ErrContentTooShort},
		{"too short", "歯が痛い", ErrContentTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckContent(tt.text, settings)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckContent(%q) = %v, want %v", tt.text, err, tt.wantErr)
			}
		})
	}
}
