package preview

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/goliatone/go-chansync/internal/posts"
	"github.com/goliatone/go-chansync/internal/runtimeconfig"
)

type mapLoader map[int64]string

func (m mapLoader) Load(id int64) (*posts.PostFile, error) {
	source, ok := m[id]
	if !ok {
		return nil, os.ErrNotExist
	}
	return posts.ParsePost([]byte(source))
}

const storedPost = "---\ntitle: \"@chan\"\ndate: 2023-11-14 22:13\nimages: [\"i/42_0.jpg\"]\n---\n\n" +
	"<b>Hello</b>  \nsee <span class=\"spoiler\">secret</span>  \n<script>alert(1)</script>\n\n" +
	"{% highlight go %}\nfmt.Println(1)\n{% endhighlight %}\n"

func TestRenderConvertsHighlightBlocks(t *testing.T) {
	r := NewRenderer(nil, runtimeconfig.PreviewConfig{})

	out, err := r.Render([]byte("{% highlight bash %}\ngo run .\n{% endhighlight %}\n"))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(string(out), `<code class="language-bash">go run .`) {
		t.Fatalf("expected fenced code output, got %q", out)
	}
}

func TestRenderPostBuildsPage(t *testing.T) {
	r := NewRenderer(mapLoader{42: storedPost}, runtimeconfig.PreviewConfig{}, WithImageBase("/site/"))

	out, err := r.RenderPost(context.Background(), 42)
	if err != nil {
		t.Fatalf("render post: %v", err)
	}
	page := string(out)
	for _, want := range []string{
		"<h1>@chan</h1>",
		"<time>2023-11-14 22:13</time>",
		`<img src="/site/i/42_0.jpg" alt="">`,
		"<b>Hello</b>",
		`<span class="spoiler">secret</span>`,
		`<code class="language-go">`,
	} {
		if !strings.Contains(page, want) {
			t.Fatalf("expected %q in page:\n%s", want, page)
		}
	}
}

func TestRenderPostSanitizes(t *testing.T) {
	r := NewRenderer(mapLoader{42: storedPost}, runtimeconfig.PreviewConfig{Sanitize: true})

	out, err := r.RenderPost(context.Background(), 42)
	if err != nil {
		t.Fatalf("render post: %v", err)
	}
	page := string(out)
	if strings.Contains(page, "<script>") {
		t.Fatalf("expected script removed, got:\n%s", page)
	}
	if !strings.Contains(page, `<span class="spoiler">secret</span>`) {
		t.Fatalf("expected spoiler span kept, got:\n%s", page)
	}
}

func TestRenderPostMissing(t *testing.T) {
	r := NewRenderer(mapLoader{}, runtimeconfig.PreviewConfig{})

	if _, err := r.RenderPost(context.Background(), 1); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
