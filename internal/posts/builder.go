package posts

import (
	"github.com/goliatone/go-chansync/internal/content"
	"github.com/goliatone/go-chansync/pkg/interfaces"
)

// Builder assembles posts from single messages and albums.
type Builder struct {
	title      content.TitlePolicy
	photoThumb int
	videoThumb int
}

// BuilderOption customises a Builder.
type BuilderOption func(*Builder)

// WithTitlePolicy replaces the default channel title.
func WithTitlePolicy(policy content.TitlePolicy) BuilderOption {
	return func(b *Builder) {
		if policy != nil {
			b.title = policy
		}
	}
}

// WithThumbnails sets the representation index requested for photos and for
// video or animation media.
func WithThumbnails(photo, video int) BuilderOption {
	return func(b *Builder) {
		b.photoThumb = photo
		b.videoThumb = video
	}
}

// NewBuilder returns a builder titling every post with channelID unless a
// title policy is supplied.
func NewBuilder(channelID string, opts ...BuilderOption) *Builder {
	b := &Builder{
		title:      content.StaticTitle(channelID),
		photoThumb: 1,
		videoThumb: 0,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Skippable reports whether a message never starts or extends a post.
func Skippable(kind interfaces.MediaKind, hasText, service, forwarded bool, date int64) bool {
	switch {
	case service, forwarded, date == 0:
		return true
	case kind != interfaces.MediaNone && !kind.Supported():
		return true
	case kind == interfaces.MediaNone && !hasText:
		return true
	default:
		return false
	}
}

// Skip applies Skippable to a live message.
func (b *Builder) Skip(msg interfaces.Message) bool {
	return Skippable(msg.Media, msg.Text != "", msg.Service, msg.Forwarded, msg.Date)
}

// Thumb returns the download hint for media of kind.
func (b *Builder) Thumb(kind interfaces.MediaKind) int {
	if kind == interfaces.MediaPhoto {
		return b.photoThumb
	}
	return b.videoThumb
}

// Seed starts a post from an already rendered body.
func (b *Builder) Seed(id, date int64, body string) *Post {
	return &Post{
		ID:      id,
		Date:    date,
		Content: body,
		Title:   b.title(body),
	}
}

// SetBody replaces the body of post and recomputes its title.
func (b *Builder) SetBody(post *Post, body string) {
	post.Content = body
	post.Title = b.title(body)
}

// Build seeds a post from the first qualifying message of a group. media is
// the downloaded attachment, if the message has one.
func (b *Builder) Build(msg interfaces.Message, media []byte) *Post {
	post := b.Seed(msg.ID, msg.Date, content.RenderHTML(msg.Text))
	if msg.Media.Supported() {
		post.AppendMedia(MediaName(msg.ID, media, msg.Media), media)
	}
	return post
}

// Extend folds a later message of the same group into post. Text replaces the
// body, media is appended.
func (b *Builder) Extend(post *Post, msg interfaces.Message, media []byte) {
	if msg.Text != "" {
		b.SetBody(post, content.RenderHTML(msg.Text))
	}
	if msg.Media.Supported() {
		post.AppendMedia(MediaName(msg.ID, media, msg.Media), media)
	}
}

// BuildGroup collapses an album into one post keyed by its first qualifying
// message. It reports false when every message was skipped.
func (b *Builder) BuildGroup(msgs []interfaces.Message, media map[int64][]byte) (*Post, bool) {
	var post *Post
	for _, msg := range msgs {
		if b.Skip(msg) {
			continue
		}
		if post == nil {
			post = b.Build(msg, media[msg.ID])
			continue
		}
		b.Extend(post, msg, media[msg.ID])
	}
	return post, post != nil
}
