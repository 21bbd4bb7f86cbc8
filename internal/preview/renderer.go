// Package preview renders stored posts to standalone HTML so they can be
// checked before the site is rebuilt.
package preview

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	goldhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/goliatone/go-chansync/internal/posts"
	"github.com/goliatone/go-chansync/internal/runtimeconfig"
)

var (
	highlightPattern = regexp.MustCompile(`(?s)\{% highlight (\S+) %\}\n(.*?)\n\{% endhighlight %\}`)
	spoilerClass     = regexp.MustCompile(`^spoiler$`)
)

// PostLoader reads stored posts. posts.Store satisfies it.
type PostLoader interface {
	Load(id int64) (*posts.PostFile, error)
}

// Option customises a Renderer.
type Option func(*Renderer)

// WithImageBase prefixes image paths in the rendered page.
func WithImageBase(base string) Option {
	return func(r *Renderer) {
		r.imageBase = strings.TrimRight(base, "/")
	}
}

// Renderer converts post bodies to HTML with goldmark. The engine is built
// once and shared, so a Renderer is safe for concurrent use.
type Renderer struct {
	loader    PostLoader
	engine    goldmark.Markdown
	policy    *bluemonday.Policy
	imageBase string
}

// NewRenderer builds a renderer for posts read through loader.
func NewRenderer(loader PostLoader, cfg runtimeconfig.PreviewConfig, opts ...Option) *Renderer {
	r := &Renderer{
		loader: loader,
		engine: newEngine(cfg),
	}
	if cfg.Sanitize {
		r.policy = newPolicy()
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render converts a post body to an HTML fragment. Liquid highlight blocks
// are rendered as fenced code.
func (r *Renderer) Render(body []byte) ([]byte, error) {
	source := highlightPattern.ReplaceAll(body, []byte("```$1\n$2\n```"))

	var buf bytes.Buffer
	if err := r.engine.Convert(source, &buf); err != nil {
		return nil, fmt.Errorf("preview: render: %w", err)
	}
	if r.policy != nil {
		return r.policy.SanitizeBytes(buf.Bytes()), nil
	}
	return buf.Bytes(), nil
}

// RenderPost renders the stored post id as a complete page.
func (r *Renderer) RenderPost(ctx context.Context, id int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := r.loader.Load(id)
	if err != nil {
		return nil, fmt.Errorf("preview: load post %d: %w", id, err)
	}
	body, err := r.Render(file.Body)
	if err != nil {
		return nil, err
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>")
	page.WriteString(html.EscapeString(file.Title))
	page.WriteString("</title></head>\n<body>\n<article>\n")
	fmt.Fprintf(&page, "<header><h1>%s</h1><time>%s</time></header>\n",
		html.EscapeString(file.Title), html.EscapeString(file.Date))
	for _, image := range file.Images {
		fmt.Fprintf(&page, "<img src=\"%s\" alt=\"\">\n", html.EscapeString(r.imageBase+"/"+image))
	}
	page.Write(body)
	page.WriteString("</article>\n</body>\n</html>\n")
	return page.Bytes(), nil
}

func newEngine(cfg runtimeconfig.PreviewConfig) goldmark.Markdown {
	rendererOptions := []renderer.Option{}
	if cfg.HardWraps {
		rendererOptions = append(rendererOptions, goldhtml.WithHardWraps())
	}
	// Post bodies carry inline HTML (spoilers, blockquotes, links). The
	// sanitiser scrubs it when enabled.
	rendererOptions = append(rendererOptions, goldhtml.WithUnsafe())

	return goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(rendererOptions...),
	)
}

func newPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(spoilerClass).OnElements("span")
	policy.AllowElements("blockquote", "br")
	return policy
}
