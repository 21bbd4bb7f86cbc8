package console_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-chansync/internal/logging"
	"github.com/goliatone/go-chansync/internal/logging/console"
)

func TestConsoleLogger_WritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2024, 3, 14, 15, 9, 26, 0, time.UTC)

	provider := console.NewProvider(console.Options{
		Writer:   &buf,
		TimeFunc: func() time.Time { return now },
	})

	logger := provider.GetLogger("chansync.posts")
	logger = logging.WithFields(logger, map[string]any{"module": "chansync.posts"})
	ctx := logging.ContextWithFields(context.Background(), map[string]any{
		"operation_id": "op-1",
	})
	logger = logger.WithContext(ctx)

	logger.Info("post.created", "post_id", int64(42), "title", "my channel")

	got := strings.TrimSpace(buf.String())
	want := `2024-03-14T15:09:26Z INFO post.created logger=chansync.posts module=chansync.posts operation_id=op-1 post_id=42 title="my channel"`
	if got != want {
		t.Fatalf("unexpected log entry\nwant: %s\ngot:  %s", want, got)
	}
}

func TestConsoleLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	minLevel := console.ParseLevel("info")
	provider := console.NewProvider(console.Options{
		Writer:   &buf,
		MinLevel: &minLevel,
	})

	logger := provider.GetLogger("chansync.test")
	logger.Debug("ignored.debug")
	logger.Warn("included.warn", "orphan")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected single log line, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "included.warn") || !strings.Contains(lines[0], "field_0=orphan") {
		t.Fatalf("unexpected line %s", lines[0])
	}
}
