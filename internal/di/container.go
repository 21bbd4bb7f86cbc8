package di

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goliatone/go-chansync/internal/channelinfo"
	postscmd "github.com/goliatone/go-chansync/internal/commands/posts"
	"github.com/goliatone/go-chansync/internal/gitrepo"
	"github.com/goliatone/go-chansync/internal/logging"
	"github.com/goliatone/go-chansync/internal/logging/console"
	"github.com/goliatone/go-chansync/internal/logging/gologger"
	"github.com/goliatone/go-chansync/internal/mirror"
	"github.com/goliatone/go-chansync/internal/preview"
	"github.com/goliatone/go-chansync/internal/runtimeconfig"
	"github.com/goliatone/go-chansync/internal/source/botapi"
	"github.com/goliatone/go-chansync/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

// ErrListenerUnavailable is returned when the configured source cannot push
// live events.
var ErrListenerUnavailable = errors.New("di: message source does not deliver live events")

// Container wires the sync engine from configuration.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider
	logger         interfaces.Logger
	repo           interfaces.Repository
	source         interfaces.MessageSource
	infoSource     interfaces.ChannelInfoSource
	previewOut     io.Writer

	service   *mirror.Service
	renderer  *preview.Renderer
	scheduler *channelinfo.Scheduler
	commands  *postscmd.HandlerSet
}

// Option customises the container.
type Option func(*Container)

// WithLoggerProvider overrides the provider selected by Logging.Provider.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

// WithRepository overrides the git repository client.
func WithRepository(repo interfaces.Repository) Option {
	return func(c *Container) {
		c.repo = repo
	}
}

// WithSource overrides the message source selected by Source.Provider. The
// source also serves channel info when it implements ChannelInfoSource.
func WithSource(source interfaces.MessageSource) Option {
	return func(c *Container) {
		c.source = source
	}
}

// WithPreviewOutput sets where previews without an output file are written.
func WithPreviewOutput(out io.Writer) Option {
	return func(c *Container) {
		c.previewOut = out
	}
}

// NewContainer validates cfg and builds every collaborator.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		Config:     cfg,
		previewOut: os.Stdout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if err := c.configureLoggerProvider(); err != nil {
		return nil, err
	}
	c.logger = logging.ModuleLogger(c.loggerProvider, "chansync")

	if c.repo == nil {
		c.repo = gitrepo.New(cfg.Git, gitrepo.WithLogger(logging.RepoLogger(c.loggerProvider)))
	}
	if err := c.configureSource(); err != nil {
		return nil, err
	}

	c.service = mirror.NewService(cfg, c.repo, c.source,
		mirror.WithLoggerProvider(c.loggerProvider),
		mirror.WithInfoSource(c.infoSource),
	)
	c.renderer = preview.NewRenderer(c.service.Store(), cfg.Preview)

	if err := c.configureCommands(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) configureLoggerProvider() error {
	if c.loggerProvider != nil {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(c.Config.Logging.Provider)) {
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     c.Config.Logging.Level,
			Format:    c.Config.Logging.Format,
			AddSource: c.Config.Logging.AddSource,
			Focus:     c.Config.Logging.Focus,
		})
		if err != nil {
			return fmt.Errorf("di: logger provider: %w", err)
		}
		c.loggerProvider = provider
	default:
		level := console.ParseLevel(c.Config.Logging.Level)
		c.loggerProvider = console.NewProvider(console.Options{MinLevel: &level})
	}
	return nil
}

func (c *Container) configureSource() error {
	if c.source == nil {
		switch strings.ToLower(strings.TrimSpace(c.Config.Source.Provider)) {
		case "botapi":
			client, err := botapi.New(c.Config.Source, c.Config.Channel.ID,
				botapi.WithLogger(logging.SourceLogger(c.loggerProvider)))
			if err != nil {
				return fmt.Errorf("di: message source: %w", err)
			}
			c.source = client
		default:
			c.logger.Info("source.disabled", "provider", c.Config.Source.Provider)
			return nil
		}
	}
	if info, ok := c.source.(interfaces.ChannelInfoSource); ok {
		c.infoSource = info
	}
	return nil
}

func (c *Container) configureCommands() error {
	cfg := c.Config.ChannelInfo
	cronMsg := postscmd.SyncChannelInfoCommand{Logo: cfg.Logo, Stat: cfg.Subscribers}

	set, err := postscmd.RegisterPostCommands(nil, c.service, c.loggerProvider,
		postscmd.WithRenderer(c.renderer, c.previewOut),
		postscmd.WithSyncInfoOptions(postscmd.SyncInfoWithCron(command.HandlerConfig{Expression: cfg.Cron}, cronMsg)),
	)
	if err != nil {
		return err
	}
	c.commands = set

	c.scheduler = channelinfo.NewScheduler(
		channelinfo.WithSchedulerLogger(logging.ChannelLogger(c.loggerProvider)),
	)
	if strings.TrimSpace(cfg.Cron) == "" || (!cfg.Logo && !cfg.Subscribers) || c.infoSource == nil {
		c.logger.Debug("scheduler.skipped", "cron", cfg.Cron)
		return nil
	}
	if err := postscmd.RegisterChannelInfoCron(c.scheduler.Register, set.SyncInfo); err != nil {
		return fmt.Errorf("di: channel info cron: %w", err)
	}
	c.logger.Info("scheduler.configured", "cron", cfg.Cron, "logo", cfg.Logo, "subscribers", cfg.Subscribers)
	return nil
}

// LoggerProvider returns the active logger provider.
func (c *Container) LoggerProvider() interfaces.LoggerProvider { return c.loggerProvider }

// Repository returns the git repository client.
func (c *Container) Repository() interfaces.Repository { return c.repo }

// Source returns the message source, nil when disabled.
func (c *Container) Source() interfaces.MessageSource { return c.source }

// Service returns the sync service.
func (c *Container) Service() *mirror.Service { return c.service }

// Renderer returns the preview renderer.
func (c *Container) Renderer() *preview.Renderer { return c.renderer }

// Scheduler returns the channel info scheduler.
func (c *Container) Scheduler() *channelinfo.Scheduler { return c.scheduler }

// Commands returns the post command handlers.
func (c *Container) Commands() *postscmd.HandlerSet { return c.commands }

// Listener returns the source as a live event listener.
func (c *Container) Listener() (interfaces.Listener, error) {
	listener, ok := c.source.(interfaces.Listener)
	if !ok {
		return nil, ErrListenerUnavailable
	}
	return listener, nil
}
