package interfaces

import (
	"context"
	"errors"
)

// ErrHistoryUnavailable is returned by sources that cannot re-fetch past
// messages.
var ErrHistoryUnavailable = errors.New("interfaces: message history unavailable")

// MediaKind classifies the attachment carried by a channel message.
type MediaKind string

const (
	MediaNone      MediaKind = ""
	MediaPhoto     MediaKind = "photo"
	MediaVideo     MediaKind = "video"
	MediaAnimation MediaKind = "animation"
	// MediaOther covers documents, polls, stickers and anything else the
	// engine does not publish.
	MediaOther MediaKind = "other"
)

// Supported reports whether posts may carry media of this kind.
func (k MediaKind) Supported() bool {
	switch k {
	case MediaPhoto, MediaVideo, MediaAnimation:
		return true
	default:
		return false
	}
}

// Message is a single channel message as delivered by a MessageSource. Text
// holds the message body already rendered to the HTML dialect understood by
// the content transformer.
type Message struct {
	ID        int64
	Date      int64
	Text      string
	Media     MediaKind
	Forwarded bool
	Service   bool
	// GroupID is the album identifier shared by messages sent together. Empty
	// for standalone messages.
	GroupID string
}

// MessageSource downloads media for messages and re-fetches historical
// messages by id.
type MessageSource interface {
	// DownloadMedia returns the media bytes of msg. thumb selects the
	// representation: for photos the thumbnail size index, for video and
	// animations the preview frame index.
	DownloadMedia(ctx context.Context, msg Message, thumb int) ([]byte, error)
	FetchMessages(ctx context.Context, ids []int64) ([]Message, error)
}

// MessageHandler receives live channel events.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg Message) error
	HandleAlbum(ctx context.Context, msgs []Message) error
	HandleEdit(ctx context.Context, msg Message) error
}

// Listener is implemented by sources that push live events.
type Listener interface {
	Listen(ctx context.Context, handler MessageHandler) error
}

// ChannelInfoSource exposes channel level metadata.
type ChannelInfoSource interface {
	SubscriberCount(ctx context.Context) (int, error)
	// Logo returns the current channel photo, or nil when none is set.
	Logo(ctx context.Context) ([]byte, error)
}

// MessageRevoker is implemented by sources that can delete channel messages.
type MessageRevoker interface {
	DeleteMessages(ctx context.Context, ids []int64) error
}
