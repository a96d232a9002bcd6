package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/daideguchi/dental-ai-counseling-system/internal/config"
	"github.com/daideguchi/dental-ai-counseling-system/internal/pipeline"
)

// Guard errors reported before a transcript reaches the pipeline.
var (
	ErrFileTooLarge    = errors.New("transcript exceeds size limit")
	ErrContentTooShort = errors.New("transcript has too little content")
)

// Sink receives each successfully processed result.
type Sink interface {
	Append(res *pipeline.Result) error
}

// Batch processes multiple transcript files concurrently. Per-file failures
// are logged and skipped; only cancellation aborts the batch.
type Batch struct {
	processor *pipeline.Processor
	sinks     []Sink
	settings  config.WorkerSettings
	limiter   *rate.Limiter
}

// NewBatch builds a batch runner. The limiter paces AI-bound runs; pass
// aiEnabled=false to process at full speed on the rule path only.
func NewBatch(processor *pipeline.Processor, settings config.WorkerSettings, aiEnabled bool, sinks ...Sink) *Batch {
	var limiter *rate.Limiter
	if aiEnabled && settings.AIRateLimitPerMin > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(settings.AIRateLimitPerMin)/60), 1)
	}
	return &Batch{
		processor: processor,
		sinks:     sinks,
		settings:  settings,
		limiter:   limiter,
	}
}

// Run processes every path and returns the successful results in completion
// order.
func (b *Batch) Run(ctx context.Context, paths []string) ([]*pipeline.Result, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.settings.MaxConcurrent)

	var mu sync.Mutex
	var results []*pipeline.Result

	for _, path := range paths {
		path := path
		g.Go(func() error {
			res, err := b.processFile(ctx, path)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.Error("transcript skipped", "file", path, "error", err)
				return nil
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (b *Batch) processFile(ctx context.Context, path string) (*pipeline.Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat transcript: %w", err)
	}
	if info.Size() > b.settings.MaxFileBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	if err := CheckContent(string(data), b.settings); err != nil {
		return nil, err
	}

	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	res, err := b.processor.Process(ctx, string(data), filepath.Base(path))
	if err != nil {
		return nil, err
	}

	for _, sink := range b.sinks {
		if err := sink.Append(res); err != nil {
			slog.Error("result not persisted", "file", path, "session", res.SessionID, "error", err)
		}
	}
	return res, nil
}

// CheckContent enforces the upstream input contract: bounded size and a
// minimum amount of non-whitespace content.
func CheckContent(text string, settings config.WorkerSettings) error {
	if int64(len(text)) > settings.MaxFileBytes {
		return fmt.Errorf("%w: %d bytes", ErrFileTooLarge, len(text))
	}
	runes := 0
	for _, r := range text {
		if !isSpace(r) {
			runes++
		}
		if runes >= settings.MinContentRunes {
			return nil
		}
	}
	return fmt.Errorf("%w: %d non-whitespace characters, need %d",
		ErrContentTooShort, runes, settings.MinContentRunes)
}

func isSpace(r rune) bool {
	return strings.ContainsRune(" \t\r\n　", r)
}
