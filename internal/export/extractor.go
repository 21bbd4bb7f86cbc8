package export

import (
	"context"
	"fmt"
	"os"

	"github.com/goliatone/go-chansync/internal/content"
	"github.com/goliatone/go-chansync/internal/logging"
	"github.com/goliatone/go-chansync/internal/posts"
	"github.com/goliatone/go-chansync/pkg/interfaces"
)

// Option customises an Extractor.
type Option func(*Extractor)

// WithDialect selects the markup entities are rendered to.
func WithDialect(dialect content.Dialect) Option {
	return func(e *Extractor) {
		e.dialect = dialect
	}
}

// WithLogger sets the extractor logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Extractor replays a channel export into posts.
type Extractor struct {
	builder *posts.Builder
	dialect content.Dialect
	logger  interfaces.Logger
}

// NewExtractor returns an extractor that seeds posts through builder.
func NewExtractor(builder *posts.Builder, opts ...Option) *Extractor {
	e := &Extractor{
		builder: builder,
		dialect: content.DialectHTML,
		logger:  logging.NoOp(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load reads, validates and decodes the export at path.
func (e *Extractor) Load(ctx context.Context, path string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("export: read %s: %w", path, err)
	}
	return Decode(raw)
}

// Extract loads the export at path and groups its records into posts.
func (e *Extractor) Extract(ctx context.Context, path string) ([]*posts.Post, error) {
	doc, err := e.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	out := e.Posts(doc)
	e.logger.Info("export.extracted", "records", len(doc.Messages), "posts", len(out))
	return out, nil
}

// Posts groups the qualifying records of doc. A record whose timestamp equals
// the previous qualifying record's belongs to the same post: its media is
// appended and its text, when present, replaces the body.
func (e *Extractor) Posts(doc *Document) []*posts.Post {
	if doc == nil {
		return nil
	}

	var (
		out      []*posts.Post
		current  *posts.Post
		lastDate Timestamp
	)
	for _, record := range doc.Messages {
		if e.skip(record) {
			continue
		}
		body := content.RenderEntities(record.TextEntities, e.dialect)
		if current == nil || record.Date != lastDate {
			current = e.builder.Seed(record.ID, int64(record.Date), body)
			out = append(out, current)
		} else if body != "" {
			e.builder.SetBody(current, body)
		}
		if source := record.MediaSource(); source != "" {
			current.AppendMedia(source, nil)
		}
		lastDate = record.Date
	}
	return out
}

// QualifyingIDs lists the ids of records that would produce or extend a post.
func (e *Extractor) QualifyingIDs(doc *Document) []int64 {
	if doc == nil {
		return nil
	}
	ids := make([]int64, 0, len(doc.Messages))
	for _, record := range doc.Messages {
		if !e.skip(record) {
			ids = append(ids, record.ID)
		}
	}
	return ids
}

func (e *Extractor) skip(record Record) bool {
	return posts.Skippable(record.MediaKind(), record.HasText(), record.Service(), record.Forwarded(), int64(record.Date))
}
