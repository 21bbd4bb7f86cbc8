package botapi

import (
	"context"
	"time"

	"github.com/goliatone/go-chansync/pkg/interfaces"
)

var allowedUpdates = []string{"channel_post", "edited_channel_post"}

// Listen long-polls for channel posts and edits until ctx is cancelled.
// Handler errors are logged and do not stop the loop. Album parts are
// collected across polls and delivered once the album is complete.
func (c *Client) Listen(ctx context.Context, handler interfaces.MessageHandler) error {
	c.logger.Info("listener.started", "channel", c.channelID)
	for {
		updates, err := c.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			c.logger.Warn("listener.poll_failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(c.retryDelay):
			}
			continue
		}
		c.dispatch(ctx, handler, updates)
		if ctx.Err() != nil {
			break
		}
	}
	c.logger.Info("listener.stopped", "channel", c.channelID)
	return nil
}

func (c *Client) poll(ctx context.Context) ([]update, error) {
	params := map[string]any{
		"offset":          c.offset,
		"timeout":         int(c.pollTimeout / time.Second),
		"allowed_updates": allowedUpdates,
	}
	var updates []update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func (c *Client) dispatch(ctx context.Context, handler interfaces.MessageHandler, updates []update) {
	if len(updates) == 0 {
		c.flush(ctx, handler)
		return
	}

	for _, u := range updates {
		if u.UpdateID >= c.offset {
			c.offset = u.UpdateID + 1
		}

		switch {
		case u.ChannelPost != nil && c.matches(u.ChannelPost.Chat):
			msg := c.convert(*u.ChannelPost)
			if msg.GroupID != "" && msg.GroupID == c.albumID {
				c.album = append(c.album, msg)
				continue
			}
			c.flush(ctx, handler)
			if msg.GroupID != "" {
				c.albumID = msg.GroupID
				c.album = []interfaces.Message{msg}
				continue
			}
			c.report("message", msg.ID, handler.HandleMessage(ctx, msg))

		case u.EditedChannelPost != nil && c.matches(u.EditedChannelPost.Chat):
			c.flush(ctx, handler)
			msg := c.convert(*u.EditedChannelPost)
			c.report("edit", msg.ID, handler.HandleEdit(ctx, msg))
		}
	}
}

func (c *Client) flush(ctx context.Context, handler interfaces.MessageHandler) {
	if len(c.album) == 0 {
		return
	}
	album := c.album
	c.album, c.albumID = nil, ""

	if len(album) == 1 {
		c.report("message", album[0].ID, handler.HandleMessage(ctx, album[0]))
		return
	}
	c.report("album", album[0].ID, handler.HandleAlbum(ctx, album))
}

func (c *Client) report(kind string, id int64, err error) {
	if err != nil {
		c.logger.Error("listener.handler_failed", "kind", kind, "message_id", id, "error", err)
	}
}
