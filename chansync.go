package chansync

import (
	"context"
	"errors"

	"github.com/goliatone/go-chansync/internal/channelinfo"
	postscmd "github.com/goliatone/go-chansync/internal/commands/posts"
	"github.com/goliatone/go-chansync/internal/di"
	"github.com/goliatone/go-chansync/internal/mirror"
	"github.com/goliatone/go-chansync/internal/preview"
	"github.com/goliatone/go-chansync/pkg/interfaces"
)

// ErrListenerUnavailable is returned by Run when the configured source does
// not deliver live events.
var ErrListenerUnavailable = di.ErrListenerUnavailable

// SyncService exports the sync service that turns channel events into commits.
type SyncService = *mirror.Service

// Renderer exports the local post preview renderer.
type Renderer = *preview.Renderer

// Scheduler exports the channel info scheduler.
type Scheduler = *channelinfo.Scheduler

// Commands exports the command handler set.
type Commands = *postscmd.HandlerSet

// Module is the top level runtime façade of the sync engine.
type Module struct {
	container *di.Container
}

// New constructs a module using the provided configuration and optional DI overrides.
func New(cfg Config, opts ...di.Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Service returns the sync service.
func (m *Module) Service() SyncService {
	return m.container.Service()
}

// Renderer returns the preview renderer.
func (m *Module) Renderer() Renderer {
	return m.container.Renderer()
}

// Scheduler returns the scheduler used for channel info refreshes.
func (m *Module) Scheduler() Scheduler {
	return m.container.Scheduler()
}

// Commands returns the command handlers.
func (m *Module) Commands() Commands {
	return m.container.Commands()
}

// Run bootstraps the repository, starts the channel info schedule and
// dispatches live channel events until ctx is cancelled.
func (m *Module) Run(ctx context.Context) error {
	listener, err := m.container.Listener()
	if err != nil {
		return err
	}
	if err := m.Bootstrap(ctx); err != nil {
		return err
	}

	scheduler := m.container.Scheduler()
	scheduler.Start()
	defer func() {
		<-scheduler.Stop().Done()
	}()

	err = listener.Listen(ctx, m.container.Service())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Bootstrap clones or refreshes the repository and seeds it from the export.
func (m *Module) Bootstrap(ctx context.Context) error {
	return m.Commands().Bootstrap.Execute(ctx, postscmd.BootstrapCommand{})
}

// DeletePosts removes the comma separated post ids and, with revoke, the
// channel messages.
func (m *Module) DeletePosts(ctx context.Context, ids string, revoke bool) error {
	return m.Commands().Delete.Execute(ctx, postscmd.DeletePostsCommand{IDs: ids, Revoke: revoke})
}

// SyncInfo refreshes the logo and/or the subscriber and post counts.
func (m *Module) SyncInfo(ctx context.Context, logo, stat bool) error {
	return m.Commands().SyncInfo.Execute(ctx, postscmd.SyncChannelInfoCommand{Logo: logo, Stat: stat})
}

// Preview renders the stored post id to output, or to the configured preview
// writer when output is empty.
func (m *Module) Preview(ctx context.Context, id int64, output string) error {
	return m.Commands().Preview.Execute(ctx, postscmd.PreviewPostCommand{ID: id, Output: output})
}

// HandleMessage exposes the live message entry point for custom sources.
func (m *Module) HandleMessage(ctx context.Context, msg interfaces.Message) error {
	return m.container.Service().HandleMessage(ctx, msg)
}
