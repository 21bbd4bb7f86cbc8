package postscmd

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-chansync/internal/posts"
)

const (
	deletePostsMessageType     = "chansync.posts.delete"
	syncChannelInfoMessageType = "chansync.channel.sync_info"
	bootstrapMessageType       = "chansync.posts.bootstrap"
	previewPostMessageType     = "chansync.posts.preview"
)

// DeletePostsCommand removes published posts and their media.
type DeletePostsCommand struct {
	// IDs is a comma separated list of post ids.
	IDs string `json:"ids"`
	// Revoke also deletes the channel messages.
	Revoke bool `json:"revoke,omitempty"`
}

// Type implements command.Message.
func (DeletePostsCommand) Type() string { return deletePostsMessageType }

// Validate ensures every id parses before any file is touched.
func (cmd DeletePostsCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.IDs, validation.Required, validation.By(func(value any) error {
			if strings.TrimSpace(value.(string)) == "" {
				return validation.NewError("chansync.posts.delete.ids_required", "ids are required")
			}
			if _, err := posts.ParseIDs(value.(string)); err != nil {
				return validation.NewError("chansync.posts.delete.ids_invalid", err.Error())
			}
			return nil
		})),
	)
}

// SyncChannelInfoCommand refreshes channel metadata stored in the site.
type SyncChannelInfoCommand struct {
	// Logo downloads the current channel photo.
	Logo bool `json:"logo,omitempty"`
	// Stat refreshes subscriber and post counts.
	Stat bool `json:"stat,omitempty"`
}

// Type implements command.Message.
func (SyncChannelInfoCommand) Type() string { return syncChannelInfoMessageType }

// Validate requires at least one selected item.
func (cmd SyncChannelInfoCommand) Validate() error {
	if !cmd.Logo && !cmd.Stat {
		return validation.NewError("chansync.channel.sync_info.nothing_selected", "select logo, stat or both")
	}
	return nil
}

// BootstrapCommand seeds an empty site from the channel export.
type BootstrapCommand struct{}

// Type implements command.Message.
func (BootstrapCommand) Type() string { return bootstrapMessageType }

// Validate satisfies command.Message.
func (BootstrapCommand) Validate() error { return nil }

// PreviewPostCommand renders a stored post to HTML.
type PreviewPostCommand struct {
	ID int64 `json:"id"`
	// Output is the file the HTML is written to. Empty writes to the
	// handler's default writer.
	Output string `json:"output,omitempty"`
}

// Type implements command.Message.
func (PreviewPostCommand) Type() string { return previewPostMessageType }

// Validate requires a positive post id.
func (cmd PreviewPostCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.ID, validation.Required, validation.Min(int64(1))),
	)
}
