// File: internal/watch/feed.go
package watch

import (
	"context"
	"fmt"
	"strings"

	"github.com/hpcloud/tail"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FeedEvent is one line of a JSONL change feed, as emitted by external
// tooling (editors, build servers) that tracks modified paths.
type FeedEvent struct {
	Path string `json:"path"`
	Op   string `json:"op,omitempty"`
}

// FollowFeed tails a JSONL change feed and invokes run for each settled
// batch of events, debounced like the filesystem watcher. It blocks until
// the context is cancelled or the feed is closed.
func FollowFeed(ctx context.Context, feedPath string, debounce *Debouncer, run Runner, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("feed")

	t, err := tail.TailFile(feedPath, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("tailing change feed: %w", err)
	}
	defer t.Stop()

	log.Info("following change feed", zap.String("feed", feedPath))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case line, ok := <-t.Lines:
			if !ok {
				return nil
			}
			if line.Err != nil {
				log.Warn("feed read error", zap.Error(line.Err))
				continue
			}
			text := strings.TrimSpace(line.Text)
			if text == "" {
				continue
			}
			var event FeedEvent
			if err := json.Unmarshal([]byte(text), &event); err != nil {
				log.Debug("skipping malformed feed line", zap.Error(err))
				continue
			}
			log.Debug("feed event", zap.String("path", event.Path))
			debounce.Touch()

		case <-debounce.C():
			if err := run(ctx); err != nil {
				log.Error("re-audit failed", zap.Error(err))
			}
		}
	}
}
