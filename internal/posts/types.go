package posts

import (
	"path"
	"strings"
)

// MediaItem is one attachment of a post. Source identifies where the bytes
// come from (an export-relative path, or a synthetic name for downloaded
// media) and carries the file extension. Destination and RelDestination are
// filled by Associator.Assign.
type MediaItem struct {
	Source         string
	Buffer         []byte
	Destination    string
	RelDestination string
}

// Ext returns the extension of the item source without the dot.
func (m MediaItem) Ext() string {
	return Extension(m.Source)
}

// Post is the unit of publication: one body file plus numbered media files,
// keyed by the id of the first message of its group.
type Post struct {
	ID      int64
	Title   string
	Content string
	Date    int64
	Media   []MediaItem

	framed bool
}

// AppendMedia adds an attachment at the end of the media list.
func (p *Post) AppendMedia(source string, buffer []byte) {
	p.Media = append(p.Media, MediaItem{Source: source, Buffer: buffer})
}

// RelDestinations lists the repository-relative media paths in order.
func (p *Post) RelDestinations() []string {
	out := make([]string, 0, len(p.Media))
	for _, item := range p.Media {
		out = append(out, item.RelDestination)
	}
	return out
}

// Extension returns the final extension segment of name. Names without a dot
// yield "bin".
func Extension(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	idx := strings.LastIndex(base, ".")
	if idx < 0 || idx == len(base)-1 {
		return "bin"
	}
	return base[idx+1:]
}
