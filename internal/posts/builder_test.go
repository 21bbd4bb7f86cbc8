package posts

import (
	"testing"

	"github.com/goliatone/go-chansync/internal/content"
	"github.com/goliatone/go-chansync/pkg/interfaces"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 0x49, 0x48, 0x44, 0x52}

func TestBuilderSkipRules(t *testing.T) {
	b := NewBuilder("@chan")
	cases := []struct {
		name string
		msg  interfaces.Message
		skip bool
	}{
		{"text", interfaces.Message{ID: 1, Date: 10, Text: "hi"}, false},
		{"photo only", interfaces.Message{ID: 1, Date: 10, Media: interfaces.MediaPhoto}, false},
		{"animation", interfaces.Message{ID: 1, Date: 10, Media: interfaces.MediaAnimation}, false},
		{"document with caption", interfaces.Message{ID: 1, Date: 10, Text: "x", Media: interfaces.MediaOther}, true},
		{"service", interfaces.Message{ID: 1, Date: 10, Text: "joined", Service: true}, true},
		{"forwarded", interfaces.Message{ID: 1, Date: 10, Text: "fw", Forwarded: true}, true},
		{"zero date", interfaces.Message{ID: 1, Text: "old"}, true},
		{"empty", interfaces.Message{ID: 1, Date: 10}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := b.Skip(tc.msg); got != tc.skip {
				t.Fatalf("expected skip=%v, got %v", tc.skip, got)
			}
		})
	}
}

func TestBuilderBuildSingleMessage(t *testing.T) {
	b := NewBuilder("@chan")
	post := b.Build(interfaces.Message{ID: 42, Date: 1700000000, Text: "Hello\nWorld"}, nil)

	if post.ID != 42 || post.Date != 1700000000 {
		t.Fatalf("unexpected identity: %+v", post)
	}
	if post.Content != "Hello  \nWorld" {
		t.Fatalf("expected rendered body, got %q", post.Content)
	}
	if post.Title != "@chan" {
		t.Fatalf("expected channel title, got %q", post.Title)
	}
	if len(post.Media) != 0 {
		t.Fatalf("expected no media, got %d", len(post.Media))
	}
}

func TestBuilderBuildGroupAlbum(t *testing.T) {
	b := NewBuilder("@chan")
	msgs := []interfaces.Message{
		{ID: 100, Date: 1700000000, Text: "caption", Media: interfaces.MediaPhoto, GroupID: "g"},
		{ID: 101, Date: 1700000000, Media: interfaces.MediaPhoto, GroupID: "g"},
	}
	media := map[int64][]byte{100: pngHeader, 101: pngHeader}

	post, ok := b.BuildGroup(msgs, media)
	if !ok {
		t.Fatalf("expected a post")
	}
	if post.ID != 100 {
		t.Fatalf("expected id of first message, got %d", post.ID)
	}
	if len(post.Media) != 2 {
		t.Fatalf("expected 2 media items, got %d", len(post.Media))
	}
	if post.Content != "caption" {
		t.Fatalf("expected content of first message, got %q", post.Content)
	}
	if post.Media[0].Source != "100.png" || post.Media[1].Source != "101.png" {
		t.Fatalf("unexpected media sources: %q %q", post.Media[0].Source, post.Media[1].Source)
	}
}

func TestBuilderBuildGroupSeedsFromFirstQualifyingMessage(t *testing.T) {
	b := NewBuilder("@chan")
	msgs := []interfaces.Message{
		{ID: 5, Date: 10, Text: "forwarded", Forwarded: true},
		{ID: 6, Date: 10, Media: interfaces.MediaVideo},
		{ID: 7, Date: 10, Text: "later text"},
	}
	post, ok := b.BuildGroup(msgs, nil)
	if !ok {
		t.Fatalf("expected a post")
	}
	if post.ID != 6 {
		t.Fatalf("expected id 6, got %d", post.ID)
	}
	if post.Content != "later text" {
		t.Fatalf("expected text of later message, got %q", post.Content)
	}
	if len(post.Media) != 1 || post.Media[0].Source != "6.mp4" {
		t.Fatalf("expected one video item, got %+v", post.Media)
	}
}

func TestBuilderBuildGroupAllSkipped(t *testing.T) {
	b := NewBuilder("@chan")
	if _, ok := b.BuildGroup([]interfaces.Message{{ID: 1, Service: true, Date: 1}}, nil); ok {
		t.Fatalf("expected no post")
	}
}

func TestBuilderExtendRecomputesTitle(t *testing.T) {
	b := NewBuilder("@chan", WithTitlePolicy(content.AddressTitle("@chan")))
	post := b.Build(interfaces.Message{ID: 1, Date: 1, Media: interfaces.MediaPhoto}, nil)
	if post.Title != "@chan" {
		t.Fatalf("expected channel title, got %q", post.Title)
	}

	b.Extend(post, interfaces.Message{ID: 2, Date: 1, Text: "tip\n0xabc"}, nil)
	if post.Title != "@chan [0xabc]" {
		t.Fatalf("expected address title, got %q", post.Title)
	}
}

func TestBuilderThumb(t *testing.T) {
	b := NewBuilder("@chan")
	if b.Thumb(interfaces.MediaPhoto) != 1 || b.Thumb(interfaces.MediaVideo) != 0 {
		t.Fatalf("unexpected default thumbs")
	}
	b = NewBuilder("@chan", WithThumbnails(2, 1))
	if b.Thumb(interfaces.MediaPhoto) != 2 || b.Thumb(interfaces.MediaAnimation) != 1 {
		t.Fatalf("unexpected configured thumbs")
	}
}
