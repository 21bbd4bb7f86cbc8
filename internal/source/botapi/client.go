// Package botapi implements the live message source on top of the Telegram
// Bot API. The bot must be an administrator of the channel it mirrors.
package botapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"github.com/goliatone/go-chansync/internal/logging"
	"github.com/goliatone/go-chansync/internal/runtimeconfig"
	"github.com/goliatone/go-chansync/pkg/interfaces"
)

var (
	// ErrAPI wraps unsuccessful Bot API responses.
	ErrAPI = errors.New("botapi: request failed")
	// ErrMediaUnknown is returned when media is requested for a message the
	// client never delivered.
	ErrMediaUnknown = errors.New("botapi: media of message unknown")
	// ErrTokenRequired is returned by New without a bot token.
	ErrTokenRequired = errors.New("botapi: token required")
)

const (
	defaultBaseURL     = "https://api.telegram.org"
	defaultPollTimeout = 30 * time.Second
	defaultRetryDelay  = 5 * time.Second
	deleteBatchSize    = 100
)

// Option customises a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetryDelay sets the pause after a failed poll.
func WithRetryDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = delay
	}
}

// Client talks to the Bot API on behalf of one channel.
type Client struct {
	http        *resty.Client
	token       string
	channelID   string
	pollTimeout time.Duration
	retryDelay  time.Duration
	logger      interfaces.Logger

	offset  int64
	album   []interfaces.Message
	albumID string

	mu    sync.Mutex
	files map[int64]mediaFiles
}

var (
	_ interfaces.MessageSource     = (*Client)(nil)
	_ interfaces.Listener          = (*Client)(nil)
	_ interfaces.ChannelInfoSource = (*Client)(nil)
	_ interfaces.MessageRevoker    = (*Client)(nil)
)

// New builds a client for channelID from the source configuration.
func New(cfg runtimeconfig.SourceConfig, channelID string, opts ...Option) (*Client, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, ErrTokenRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}

	c := &Client{
		token:       token,
		channelID:   strings.TrimSpace(channelID),
		pollTimeout: pollTimeout,
		retryDelay:  defaultRetryDelay,
		logger:      logging.NoOp(),
		files:       map[int64]mediaFiles{},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http = resty.New().
		SetBaseURL(baseURL).
		SetTimeout(pollTimeout+10*time.Second).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	return c, nil
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	req := c.http.R().SetContext(ctx)
	if params != nil {
		req.SetBody(params)
	}
	resp, err := req.Post("/bot" + c.token + "/" + method)
	if err != nil {
		return fmt.Errorf("botapi: %s: %w", method, redact(err, c.token))
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("%w: %s: status %d", ErrAPI, method, resp.StatusCode())
	}
	if !env.OK {
		return fmt.Errorf("%w: %s: %s (%d)", ErrAPI, method, env.Description, env.ErrorCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("botapi: decode %s: %w", method, err)
	}
	return nil
}

func (c *Client) download(ctx context.Context, fileID string) ([]byte, error) {
	var f file
	if err := c.call(ctx, "getFile", map[string]any{"file_id": fileID}, &f); err != nil {
		return nil, err
	}
	if f.FilePath == "" {
		return nil, fmt.Errorf("%w: getFile: empty file path", ErrAPI)
	}
	resp, err := c.http.R().SetContext(ctx).Get("/file/bot" + c.token + "/" + f.FilePath)
	if err != nil {
		return nil, fmt.Errorf("botapi: download: %w", redact(err, c.token))
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: download: status %d", ErrAPI, resp.StatusCode())
	}
	return resp.Body(), nil
}

// DownloadMedia fetches the media of a message delivered by this client.
// Photos use size thumb of the size list, clamped to the largest available.
// Videos and animations use their preview image when one exists.
func (c *Client) DownloadMedia(ctx context.Context, msg interfaces.Message, thumb int) ([]byte, error) {
	c.mu.Lock()
	files, ok := c.files[msg.ID]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrMediaUnknown, msg.ID)
	}

	var fileID string
	switch {
	case len(files.photos) > 0:
		index := min(max(thumb, 0), len(files.photos)-1)
		fileID = files.photos[index]
	case files.thumbnail != "":
		fileID = files.thumbnail
	default:
		fileID = files.file
	}
	if fileID == "" {
		return nil, fmt.Errorf("%w: %d", ErrMediaUnknown, msg.ID)
	}

	data, err := c.download(ctx, fileID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	delete(c.files, msg.ID)
	c.mu.Unlock()
	return data, nil
}

// FetchMessages is not offered by the Bot API.
func (c *Client) FetchMessages(context.Context, []int64) ([]interfaces.Message, error) {
	return nil, interfaces.ErrHistoryUnavailable
}

// SubscriberCount returns the channel member count.
func (c *Client) SubscriberCount(ctx context.Context) (int, error) {
	var count int
	if err := c.call(ctx, "getChatMemberCount", map[string]any{"chat_id": c.channelID}, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// Logo returns the full size channel photo, or nil when none is set.
func (c *Client) Logo(ctx context.Context) ([]byte, error) {
	var info chat
	if err := c.call(ctx, "getChat", map[string]any{"chat_id": c.channelID}, &info); err != nil {
		return nil, err
	}
	if info.Photo == nil || info.Photo.BigFileID == "" {
		return nil, nil
	}
	return c.download(ctx, info.Photo.BigFileID)
}

// DeleteMessages removes channel messages in batches.
func (c *Client) DeleteMessages(ctx context.Context, ids []int64) error {
	for start := 0; start < len(ids); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(ids))
		params := map[string]any{
			"chat_id":     c.channelID,
			"message_ids": ids[start:end],
		}
		if err := c.call(ctx, "deleteMessages", params, nil); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) matches(ch chat) bool {
	if strings.HasPrefix(c.channelID, "@") {
		return strings.EqualFold(strings.TrimPrefix(c.channelID, "@"), ch.Username)
	}
	return c.channelID == strconv.FormatInt(ch.ID, 10)
}

// convert maps a Bot API message to the source independent form and
// remembers its files for later download.
func (c *Client) convert(m message) interfaces.Message {
	text, entities := m.Text, m.Entities
	if text == "" {
		text, entities = m.Caption, m.CaptionEntities
	}

	msg := interfaces.Message{
		ID:        m.MessageID,
		Date:      m.Date,
		Text:      renderText(text, entities),
		Forwarded: m.forwarded(),
		Service:   m.service(),
		GroupID:   m.MediaGroupID,
	}

	var files mediaFiles
	switch {
	case len(m.Photo) > 0:
		msg.Media = interfaces.MediaPhoto
		for _, size := range m.Photo {
			files.photos = append(files.photos, size.FileID)
		}
	case m.Animation != nil:
		msg.Media = interfaces.MediaAnimation
		files.file = m.Animation.FileID
		if m.Animation.Thumbnail != nil {
			files.thumbnail = m.Animation.Thumbnail.FileID
		}
	case m.Video != nil:
		msg.Media = interfaces.MediaVideo
		files.file = m.Video.FileID
		if m.Video.Thumbnail != nil {
			files.thumbnail = m.Video.Thumbnail.FileID
		}
	case m.other():
		msg.Media = interfaces.MediaOther
	}

	if msg.Media.Supported() {
		c.mu.Lock()
		c.files[msg.ID] = files
		c.mu.Unlock()
	}
	return msg
}

func redact(err error, token string) error {
	if err == nil || token == "" {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "<token>"))
}
