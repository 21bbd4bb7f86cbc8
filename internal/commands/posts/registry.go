package postscmd

import (
	"errors"
	"io"

	"github.com/goliatone/go-chansync/internal/commands"
	"github.com/goliatone/go-chansync/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

// CommandRegistry is the minimal registration contract expected when wiring command handlers.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// CronRegistrar matches the function signature used by go-command registries.
type CronRegistrar func(command.HandlerConfig, any) error

// HandlerSet groups the handlers produced by RegisterPostCommands.
type HandlerSet struct {
	Delete    *DeletePostsHandler
	SyncInfo  *SyncChannelInfoHandler
	Bootstrap *BootstrapHandler
	Preview   *PreviewPostHandler
}

// Option customises handler wiring during registration.
type Option func(*options)

type options struct {
	renderer      Renderer
	previewOut    io.Writer
	syncInfoOpts  []SyncInfoOption
	deleteOpts    []commands.HandlerOption[DeletePostsCommand]
	syncOpts      []commands.HandlerOption[SyncChannelInfoCommand]
	bootstrapOpts []commands.HandlerOption[BootstrapCommand]
}

// WithRenderer enables the preview command.
func WithRenderer(renderer Renderer, out io.Writer) Option {
	return func(cfg *options) {
		cfg.renderer = renderer
		cfg.previewOut = out
	}
}

// WithSyncInfoOptions forwards options to the channel info handler.
func WithSyncInfoOptions(opts ...SyncInfoOption) Option {
	return func(cfg *options) {
		cfg.syncInfoOpts = append(cfg.syncInfoOpts, opts...)
	}
}

// WithDeleteHandlerOptions forwards options to the delete handler constructor.
func WithDeleteHandlerOptions(opts ...commands.HandlerOption[DeletePostsCommand]) Option {
	return func(cfg *options) {
		cfg.deleteOpts = append(cfg.deleteOpts, opts...)
	}
}

// WithSyncHandlerOptions forwards options to the channel info handler constructor.
func WithSyncHandlerOptions(opts ...commands.HandlerOption[SyncChannelInfoCommand]) Option {
	return func(cfg *options) {
		cfg.syncOpts = append(cfg.syncOpts, opts...)
	}
}

// WithBootstrapHandlerOptions forwards options to the bootstrap handler constructor.
func WithBootstrapHandlerOptions(opts ...commands.HandlerOption[BootstrapCommand]) Option {
	return func(cfg *options) {
		cfg.bootstrapOpts = append(cfg.bootstrapOpts, opts...)
	}
}

// RegisterPostCommands builds the post handlers and registers them with reg
// when it is not nil. The preview handler is built only with a renderer.
func RegisterPostCommands(reg CommandRegistry, service Service, provider interfaces.LoggerProvider, opts ...Option) (*HandlerSet, error) {
	if service == nil {
		return nil, errors.New("posts command registration: service is nil")
	}

	cfg := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	logger := commands.CommandLogger(provider, "posts")
	set := &HandlerSet{
		Delete:    NewDeletePostsHandler(service, logger, cfg.deleteOpts...),
		SyncInfo:  NewSyncChannelInfoHandler(service, commands.CommandLogger(provider, "channel"), cfg.syncInfoOpts, cfg.syncOpts...),
		Bootstrap: NewBootstrapHandler(service, logger, cfg.bootstrapOpts...),
	}
	if cfg.renderer != nil {
		set.Preview = NewPreviewPostHandler(cfg.renderer, cfg.previewOut, logger)
	}

	if reg != nil {
		for _, handler := range set.handlers() {
			if err := reg.RegisterCommand(handler); err != nil {
				return nil, err
			}
		}
	}
	return set, nil
}

func (s *HandlerSet) handlers() []any {
	handlers := []any{s.Delete, s.SyncInfo, s.Bootstrap}
	if s.Preview != nil {
		handlers = append(handlers, s.Preview)
	}
	return handlers
}

// RegisterChannelInfoCron wires the channel info handler into a cron
// registrar using the handler's own schedule and payload.
func RegisterChannelInfoCron(reg CronRegistrar, handler *SyncChannelInfoHandler) error {
	if reg == nil || handler == nil {
		return nil
	}
	return reg(handler.CronOptions(), handler.CronHandler())
}
