package export

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-chansync/internal/content"
	"github.com/goliatone/go-chansync/pkg/interfaces"
)

// Document is a channel export as written by the desktop client.
type Document struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	ID       int64    `json:"id"`
	Messages []Record `json:"messages"`
}

// Record is one exported message.
type Record struct {
	ID            int64            `json:"id"`
	Type          string           `json:"type"`
	Date          Timestamp        `json:"date_unixtime"`
	TextEntities  []content.Entity `json:"text_entities"`
	Photo         string           `json:"photo,omitempty"`
	Thumbnail     string           `json:"thumbnail,omitempty"`
	MediaType     string           `json:"media_type,omitempty"`
	ForwardedFrom *string          `json:"forwarded_from,omitempty"`
}

const recordTypeService = "service"

// MediaKind classifies the attachment of the record.
func (r Record) MediaKind() interfaces.MediaKind {
	switch r.MediaType {
	case "video_file":
		return interfaces.MediaVideo
	case "animation":
		return interfaces.MediaAnimation
	case "":
		if r.Photo != "" {
			return interfaces.MediaPhoto
		}
		return interfaces.MediaNone
	default:
		return interfaces.MediaOther
	}
}

// MediaSource is the export-relative path of the image published for the
// record: the photo itself, or the preview frame of a video.
func (r Record) MediaSource() string {
	if r.Photo != "" {
		return r.Photo
	}
	return r.Thumbnail
}

// Forwarded reports whether the record was forwarded from another chat.
func (r Record) Forwarded() bool {
	return r.ForwardedFrom != nil && *r.ForwardedFrom != ""
}

// Service reports whether the record is a service message.
func (r Record) Service() bool {
	return r.Type == recordTypeService
}

// HasText reports whether any entity carries text.
func (r Record) HasText() bool {
	for _, entity := range r.TextEntities {
		if entity.Text != "" {
			return true
		}
	}
	return false
}

// Timestamp is an epoch-seconds value encoded either as a JSON string or a
// number. Zero means the record has no timestamp.
type Timestamp int64

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = 0
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		data = []byte(raw)
		if len(data) == 0 {
			*t = 0
			return nil
		}
	}
	value, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("export: invalid date_unixtime %q: %w", data, err)
	}
	*t = Timestamp(value)
	return nil
}

// Decode validates raw against the export schema and decodes it.
func Decode(raw []byte) (*Document, error) {
	if err := ValidateDocument(raw); err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("export: decode: %w", err)
	}
	return &doc, nil
}
