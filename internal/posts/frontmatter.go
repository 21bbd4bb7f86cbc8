package posts

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
)

// DateLayout is the front matter date format, always rendered in UTC.
const DateLayout = "2006-01-02 15:04"

const (
	frontMatterTemplate = "---\ntitle: \"$title\"\ndate: $date\nimages: [$images]\n---\n\n"
	layoutTemplate      = "---\nlayout: $layout\n---\n\n"
)

// RenderFrontMatter renders the block prefixed to every post body. With a
// layout configured only the layout line is emitted.
func RenderFrontMatter(title string, date int64, images []string, layout string) string {
	if layout = strings.TrimSpace(layout); layout != "" {
		return strings.Replace(layoutTemplate, "$layout", layout, 1)
	}

	quoted := make([]string, 0, len(images))
	for _, image := range images {
		quoted = append(quoted, `"`+image+`"`)
	}

	replacer := strings.NewReplacer(
		"$title", escapeTitle(title),
		"$date", FormatDate(date),
		"$images", strings.Join(quoted, ", "),
	)
	return replacer.Replace(frontMatterTemplate)
}

// AddFrontMatter prefixes the post content with its front matter and appends
// a trailing newline. Media destinations must already be assigned. A post is
// framed at most once.
func AddFrontMatter(post *Post, layout string) error {
	if post == nil {
		return ErrNilPost
	}
	if post.framed {
		return fmt.Errorf("%w: post %d", ErrFrontMatterApplied, post.ID)
	}
	post.Content = RenderFrontMatter(post.Title, post.Date, post.RelDestinations(), layout) + post.Content + "\n"
	post.framed = true
	return nil
}

// FormatDate renders epoch seconds as used in front matter.
func FormatDate(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(DateLayout)
}

var titleEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeTitle(title string) string {
	return titleEscaper.Replace(title)
}

// PostFile is a post read back from disk.
type PostFile struct {
	Title  string   `yaml:"title"`
	Date   string   `yaml:"date"`
	Images []string `yaml:"images"`
	Layout string   `yaml:"layout"`
	Body   []byte   `yaml:"-"`
}

// ParsePost splits stored post source into front matter and body.
func ParsePost(source []byte) (*PostFile, error) {
	var file PostFile
	body, err := frontmatter.Parse(bytes.NewReader(source), &file)
	if err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	file.Body = body
	return &file, nil
}

// ParsePostFile reads and parses the post stored at path.
func ParsePostFile(path string) (*PostFile, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePost(source)
}
