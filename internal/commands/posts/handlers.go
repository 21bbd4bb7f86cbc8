package postscmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goliatone/go-chansync/internal/channelinfo"
	"github.com/goliatone/go-chansync/internal/commands"
	"github.com/goliatone/go-chansync/internal/logging"
	"github.com/goliatone/go-chansync/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

const (
	deleteOperation    = "posts.delete"
	syncInfoOperation  = "channel.sync_info"
	bootstrapOperation = "posts.bootstrap"
	previewOperation   = "posts.preview"
)

// ErrPreviewUnavailable is returned when no renderer was configured.
var ErrPreviewUnavailable = errors.New("posts command: preview unavailable")

var (
	_ command.Commander[DeletePostsCommand]     = (*DeletePostsHandler)(nil)
	_ command.Commander[SyncChannelInfoCommand] = (*SyncChannelInfoHandler)(nil)
	_ command.Commander[BootstrapCommand]       = (*BootstrapHandler)(nil)
	_ command.Commander[PreviewPostCommand]     = (*PreviewPostHandler)(nil)
	_ command.CronCommand                       = (*SyncChannelInfoHandler)(nil)
)

// Service is the part of the sync service driven by post commands.
type Service interface {
	DeletePosts(ctx context.Context, ids string, revoke bool) error
	SyncChannelInfo(ctx context.Context, flags channelinfo.Flags) error
	Bootstrap(ctx context.Context) error
}

// Renderer turns a stored post into HTML.
type Renderer interface {
	RenderPost(ctx context.Context, id int64) ([]byte, error)
}

// DeletePostsHandler removes posts through the sync service.
type DeletePostsHandler struct {
	inner *commands.Handler[DeletePostsCommand]
}

// NewDeletePostsHandler creates a delete handler bound to service.
func NewDeletePostsHandler(service Service, logger interfaces.Logger, opts ...commands.HandlerOption[DeletePostsCommand]) *DeletePostsHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg DeletePostsCommand) error {
		return service.DeletePosts(ctx, msg.IDs, msg.Revoke)
	}

	handlerOpts := []commands.HandlerOption[DeletePostsCommand]{
		commands.WithLogger[DeletePostsCommand](baseLogger),
		commands.WithOperation[DeletePostsCommand](deleteOperation),
		commands.WithMessageFields(func(msg DeletePostsCommand) map[string]any {
			fields := map[string]any{"ids": msg.IDs}
			if msg.Revoke {
				fields["revoke"] = true
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[DeletePostsCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &DeletePostsHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[DeletePostsCommand].
func (h *DeletePostsHandler) Execute(ctx context.Context, msg DeletePostsCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CLIHandler exposes the handler to CLI integrations.
func (h *DeletePostsHandler) CLIHandler() any { return h }

// CLIOptions describes the CLI metadata for post deletion.
func (h *DeletePostsHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"delete"},
		Group:       "posts",
		Description: "Delete posts by id and optionally revoke the channel messages",
	}
}

// SyncChannelInfoHandler refreshes channel metadata. It doubles as the cron
// job of the periodic refresh.
type SyncChannelInfoHandler struct {
	inner      *commands.Handler[SyncChannelInfoCommand]
	cronConfig command.HandlerConfig
	cronMsg    SyncChannelInfoCommand
}

// SyncInfoOption customises the channel info handler.
type SyncInfoOption func(*SyncChannelInfoHandler)

// SyncInfoWithCron sets the schedule and payload used by CronHandler.
func SyncInfoWithCron(cfg command.HandlerConfig, msg SyncChannelInfoCommand) SyncInfoOption {
	return func(h *SyncChannelInfoHandler) {
		h.cronConfig = cfg
		h.cronMsg = msg
	}
}

// NewSyncChannelInfoHandler creates a channel info handler bound to service.
func NewSyncChannelInfoHandler(service Service, logger interfaces.Logger, syncOpts []SyncInfoOption, opts ...commands.HandlerOption[SyncChannelInfoCommand]) *SyncChannelInfoHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg SyncChannelInfoCommand) error {
		return service.SyncChannelInfo(ctx, channelinfo.Flags{
			Logo:        msg.Logo,
			Subscribers: msg.Stat,
			Posts:       msg.Stat,
		})
	}

	handlerOpts := []commands.HandlerOption[SyncChannelInfoCommand]{
		commands.WithLogger[SyncChannelInfoCommand](baseLogger),
		commands.WithOperation[SyncChannelInfoCommand](syncInfoOperation),
		commands.WithMessageFields(func(msg SyncChannelInfoCommand) map[string]any {
			return map[string]any{"logo": msg.Logo, "stat": msg.Stat}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[SyncChannelInfoCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	h := &SyncChannelInfoHandler{
		inner:      commands.NewHandler(exec, handlerOpts...),
		cronConfig: command.HandlerConfig{Expression: "@daily"},
		cronMsg:    SyncChannelInfoCommand{Stat: true},
	}
	for _, opt := range syncOpts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Execute satisfies command.Commander[SyncChannelInfoCommand].
func (h *SyncChannelInfoHandler) Execute(ctx context.Context, msg SyncChannelInfoCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CronHandler satisfies command.CronCommand.
func (h *SyncChannelInfoHandler) CronHandler() func() error {
	return func() error {
		return h.Execute(context.Background(), h.cronMsg)
	}
}

// CronOptions satisfies command.CronCommand.
func (h *SyncChannelInfoHandler) CronOptions() command.HandlerConfig {
	return h.cronConfig
}

// CLIHandler exposes the handler to CLI integrations.
func (h *SyncChannelInfoHandler) CLIHandler() any { return h }

// CLIOptions describes the CLI metadata for the channel info refresh.
func (h *SyncChannelInfoHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"sync-info"},
		Group:       "channel",
		Description: "Refresh channel logo, subscriber and post counts",
	}
}

// BootstrapHandler seeds the site from the channel export.
type BootstrapHandler struct {
	inner *commands.Handler[BootstrapCommand]
}

// NewBootstrapHandler creates a bootstrap handler bound to service. Bootstrap
// clones and may download every post, so no timeout applies by default.
func NewBootstrapHandler(service Service, logger interfaces.Logger, opts ...commands.HandlerOption[BootstrapCommand]) *BootstrapHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, _ BootstrapCommand) error {
		return service.Bootstrap(ctx)
	}

	handlerOpts := []commands.HandlerOption[BootstrapCommand]{
		commands.WithLogger[BootstrapCommand](baseLogger),
		commands.WithOperation[BootstrapCommand](bootstrapOperation),
		commands.WithTimeout[BootstrapCommand](0),
		commands.WithTelemetry(commands.DefaultTelemetry[BootstrapCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &BootstrapHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[BootstrapCommand].
func (h *BootstrapHandler) Execute(ctx context.Context, msg BootstrapCommand) error {
	return h.inner.Execute(ctx, msg)
}

// PreviewPostHandler renders a stored post to HTML.
type PreviewPostHandler struct {
	inner *commands.Handler[PreviewPostCommand]
}

// NewPreviewPostHandler creates a preview handler. Output-less commands are
// written to out.
func NewPreviewPostHandler(renderer Renderer, out io.Writer, logger interfaces.Logger, opts ...commands.HandlerOption[PreviewPostCommand]) *PreviewPostHandler {
	baseLogger := commands.EnsureLogger(logger)
	if out == nil {
		out = io.Discard
	}

	exec := func(ctx context.Context, msg PreviewPostCommand) error {
		if renderer == nil {
			return ErrPreviewUnavailable
		}
		html, err := renderer.RenderPost(ctx, msg.ID)
		if err != nil {
			return err
		}
		if msg.Output == "" {
			_, err = out.Write(html)
			return err
		}
		if err := os.WriteFile(msg.Output, html, 0o644); err != nil {
			return fmt.Errorf("posts command: write preview: %w", err)
		}
		logging.WithFields(baseLogger, map[string]any{
			"id":     msg.ID,
			"output": msg.Output,
			"bytes":  len(html),
		}).Info("posts.command.preview.written")
		return nil
	}

	handlerOpts := []commands.HandlerOption[PreviewPostCommand]{
		commands.WithLogger[PreviewPostCommand](baseLogger),
		commands.WithOperation[PreviewPostCommand](previewOperation),
		commands.WithMessageFields(func(msg PreviewPostCommand) map[string]any {
			return map[string]any{"id": msg.ID}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[PreviewPostCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &PreviewPostHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[PreviewPostCommand].
func (h *PreviewPostHandler) Execute(ctx context.Context, msg PreviewPostCommand) error {
	return h.inner.Execute(ctx, msg)
}
