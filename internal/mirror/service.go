package mirror

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-chansync/internal/channelinfo"
	"github.com/goliatone/go-chansync/internal/content"
	"github.com/goliatone/go-chansync/internal/export"
	"github.com/goliatone/go-chansync/internal/logging"
	"github.com/goliatone/go-chansync/internal/posts"
	"github.com/goliatone/go-chansync/internal/runtimeconfig"
	"github.com/goliatone/go-chansync/pkg/interfaces"
)

var (
	// ErrSourceUnavailable is returned when an operation needs the message
	// source and none was configured.
	ErrSourceUnavailable = errors.New("mirror: message source unavailable")
	// ErrRevokeUnsupported is returned when the source cannot delete messages.
	ErrRevokeUnsupported = errors.New("mirror: message source cannot delete messages")
)

const (
	commitCreated   = "Created new post: %d"
	commitEdited    = "Edited post: %d"
	commitDeleted   = "Delete post(s): %s"
	commitBootstrap = "Add initial posts"
	commitInfo      = "Update channel info"
)

// Option customises a Service.
type Option func(*Service)

// WithLoggerProvider derives the module loggers of the service and its
// collaborators from provider.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(s *Service) {
		s.provider = provider
	}
}

// WithInfoSource sets the source of channel metadata.
func WithInfoSource(source interfaces.ChannelInfoSource) Option {
	return func(s *Service) {
		s.infoSource = source
	}
}

// WithIDGenerator overrides the operation id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// Service turns channel events into commits on the site repository. One
// operation runs at a time; each ends with a commit and a push, or with an
// error and no commit.
type Service struct {
	mu sync.Mutex

	cfg        runtimeconfig.Config
	repo       interfaces.Repository
	source     interfaces.MessageSource
	infoSource interfaces.ChannelInfoSource
	provider   interfaces.LoggerProvider
	newID      func() string

	builder   *posts.Builder
	store     *posts.Store
	extractor *export.Extractor
	info      *channelinfo.Syncer
	logger    interfaces.Logger
}

var _ interfaces.MessageHandler = (*Service)(nil)

// NewService wires the post pipeline for cfg. source may be nil, in which
// case live media downloads and online bootstrap are unavailable.
func NewService(cfg runtimeconfig.Config, repo interfaces.Repository, source interfaces.MessageSource, opts ...Option) *Service {
	s := &Service{
		cfg:    cfg,
		repo:   repo,
		source: source,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	title := content.StaticTitle(cfg.Channel.ID)
	processor := content.Processor(content.Identity)
	if cfg.Content.AddressTitle {
		title = content.AddressTitle(cfg.Channel.ID)
		processor = content.StripAddress
	}

	s.logger = logging.SyncLogger(s.provider)
	s.builder = posts.NewBuilder(cfg.Channel.ID,
		posts.WithTitlePolicy(title),
		posts.WithThumbnails(cfg.Media.PhotoThumb, cfg.Media.VideoThumb),
	)
	s.info = channelinfo.NewSyncer(cfg, repo, s.infoSource,
		channelinfo.WithLogger(logging.ChannelLogger(s.provider)),
	)
	s.store = posts.NewStore(cfg, repo,
		posts.WithProcessor(processor),
		posts.WithChangeHook(s.info.RefreshPostCount),
		posts.WithLogger(logging.PostsLogger(s.provider)),
	)
	s.extractor = export.NewExtractor(s.builder,
		export.WithLogger(logging.ExportLogger(s.provider)),
	)
	return s
}

// Store exposes the post store.
func (s *Service) Store() *posts.Store {
	return s.store
}

// HandleMessage publishes a standalone message.
func (s *Service) HandleMessage(ctx context.Context, msg interfaces.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := s.operation("message")
	if s.builder.Skip(msg) {
		logger.Debug("message.skipped", "message_id", msg.ID)
		return nil
	}

	media, err := s.download(ctx, []interfaces.Message{msg})
	if err != nil {
		return err
	}
	post := s.builder.Build(msg, media[msg.ID])
	if err := s.store.Create(ctx, post); err != nil {
		return err
	}
	return s.publish(ctx, logger, fmt.Sprintf(commitCreated, post.ID))
}

// HandleAlbum publishes a group of messages as one post. Single message
// albums are ignored; they are delivered again as standalone messages.
func (s *Service) HandleAlbum(ctx context.Context, msgs []interfaces.Message) error {
	if len(msgs) <= 1 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	logger := s.operation("album")
	post, err := s.buildGroup(ctx, msgs)
	if err != nil || post == nil {
		return err
	}
	if err := s.store.Create(ctx, post); err != nil {
		return err
	}
	return s.publish(ctx, logger, fmt.Sprintf(commitCreated, post.ID))
}

// HandleEdit applies an edited message to the post it belongs to.
func (s *Service) HandleEdit(ctx context.Context, msg interfaces.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := s.operation("edit")
	if s.builder.Skip(msg) {
		logger.Debug("message.skipped", "message_id", msg.ID)
		return nil
	}

	media, err := s.download(ctx, []interfaces.Message{msg})
	if err != nil {
		return err
	}
	post := s.builder.Build(msg, media[msg.ID])
	durable, err := s.store.Edit(ctx, post)
	if err != nil {
		return err
	}
	return s.publish(ctx, logger, fmt.Sprintf(commitEdited, durable))
}

// DeletePosts removes the posts named by the comma separated ids. With revoke
// the channel messages are deleted too, after the push succeeded.
func (s *Service) DeletePosts(ctx context.Context, ids string, revoke bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := s.operation("delete")
	parsed, err := posts.ParseIDs(ids)
	if err != nil {
		return err
	}
	var revoker interfaces.MessageRevoker
	if revoke {
		var ok bool
		if revoker, ok = s.source.(interfaces.MessageRevoker); !ok {
			return ErrRevokeUnsupported
		}
	}

	if err := s.store.Delete(ctx, ids); err != nil {
		return err
	}
	if err := s.publish(ctx, logger, fmt.Sprintf(commitDeleted, ids)); err != nil {
		return err
	}
	if revoker != nil {
		if err := revoker.DeleteMessages(ctx, parsed); err != nil {
			return fmt.Errorf("mirror: revoke messages: %w", err)
		}
		logger.Info("messages.revoked", "count", len(parsed))
	}
	return nil
}

// SyncChannelInfo refreshes channel metadata in the site and publishes it.
func (s *Service) SyncChannelInfo(ctx context.Context, flags channelinfo.Flags) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := s.operation("channel_info")
	if err := s.info.Sync(ctx, flags); err != nil {
		return err
	}
	return s.publish(ctx, logger, commitInfo)
}

// Bootstrap seeds an empty site from the channel export. It does nothing when
// the local clone already holds posts or no export file is present.
func (s *Service) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := s.operation("bootstrap")
	exists, err := s.repo.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		if err := s.repo.Pull(ctx); err != nil {
			return err
		}
	} else {
		if err := s.cfg.ValidateClone(); err != nil {
			return err
		}
		if err := s.repo.Clone(ctx); err != nil {
			return err
		}
		if err := s.repo.SetAuthor(ctx, s.cfg.Git.AuthorName, s.cfg.Git.AuthorEmail); err != nil {
			return err
		}
	}

	// A fresh clone may already carry published posts.
	inventory, err := s.store.Inventory()
	if err != nil {
		return err
	}
	if len(inventory) > 0 {
		logger.Info("bootstrap.skipped", "reason", "posts present", "posts", len(inventory))
		return nil
	}

	exportPath := filepath.Join(s.cfg.Channel.ExportedDataDir, s.cfg.Channel.ExportFile)
	if _, err := os.Stat(exportPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("bootstrap.skipped", "reason", "no export", "path", exportPath)
			return nil
		}
		return fmt.Errorf("mirror: stat export: %w", err)
	}

	seeded, err := s.seed(ctx, exportPath)
	if err != nil {
		return err
	}
	logger.Info("bootstrap.seeded", "posts", seeded)
	return s.publish(ctx, logger, commitBootstrap)
}

func (s *Service) seed(ctx context.Context, exportPath string) (int, error) {
	if s.cfg.Channel.OfflineMedia || s.source == nil {
		extracted, err := s.extractor.Extract(ctx, exportPath)
		if err != nil {
			return 0, err
		}
		return s.create(ctx, extracted)
	}

	doc, err := s.extractor.Load(ctx, exportPath)
	if err != nil {
		return 0, err
	}
	msgs, err := s.source.FetchMessages(ctx, s.extractor.QualifyingIDs(doc))
	if errors.Is(err, interfaces.ErrHistoryUnavailable) {
		s.logger.Warn("bootstrap.history_unavailable", "fallback", "export media")
		return s.create(ctx, s.extractor.Posts(doc))
	}
	if err != nil {
		return 0, fmt.Errorf("mirror: fetch messages: %w", err)
	}

	seeded := 0
	for _, group := range GroupAlbums(msgs) {
		post, err := s.buildGroup(ctx, group)
		if err != nil {
			return 0, err
		}
		if post == nil {
			continue
		}
		if err := s.store.Create(ctx, post); err != nil {
			return 0, err
		}
		seeded++
	}
	return seeded, nil
}

func (s *Service) create(ctx context.Context, batch []*posts.Post) (int, error) {
	for _, post := range batch {
		if err := s.store.Create(ctx, post); err != nil {
			return 0, err
		}
	}
	return len(batch), nil
}

func (s *Service) buildGroup(ctx context.Context, msgs []interfaces.Message) (*posts.Post, error) {
	media, err := s.download(ctx, msgs)
	if err != nil {
		return nil, err
	}
	post, ok := s.builder.BuildGroup(msgs, media)
	if !ok {
		return nil, nil
	}
	return post, nil
}

// download fetches the media of every qualifying message concurrently and
// returns once all downloads finished.
func (s *Service) download(ctx context.Context, msgs []interfaces.Message) (map[int64][]byte, error) {
	var wanted []interfaces.Message
	for _, msg := range msgs {
		if msg.Media.Supported() && !s.builder.Skip(msg) {
			wanted = append(wanted, msg)
		}
	}
	if len(wanted) == 0 {
		return nil, nil
	}
	if s.source == nil {
		return nil, ErrSourceUnavailable
	}

	buffers := make([][]byte, len(wanted))
	group, gctx := errgroup.WithContext(ctx)
	for i, msg := range wanted {
		group.Go(func() error {
			data, err := s.source.DownloadMedia(gctx, msg, s.builder.Thumb(msg.Media))
			if err != nil {
				return fmt.Errorf("mirror: download media of %d: %w", msg.ID, err)
			}
			buffers[i] = data
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	media := make(map[int64][]byte, len(wanted))
	for i, msg := range wanted {
		media[msg.ID] = buffers[i]
	}
	return media, nil
}

func (s *Service) publish(ctx context.Context, logger interfaces.Logger, message string) error {
	if err := s.repo.Commit(ctx, message); err != nil {
		return err
	}
	if err := s.repo.Push(ctx); err != nil {
		return err
	}
	logger.Info("repo.published", "message", message)
	return nil
}

func (s *Service) operation(name string) interfaces.Logger {
	return logging.WithFields(s.logger, map[string]any{
		"operation":    name,
		"operation_id": s.newID(),
	})
}

// GroupAlbums splits msgs into posts-to-be: messages sharing a group id form
// one album, every other message stands alone. Groups keep the order of their
// first message.
func GroupAlbums(msgs []interfaces.Message) [][]interfaces.Message {
	var groups [][]interfaces.Message
	index := map[string]int{}
	for _, msg := range msgs {
		if msg.GroupID == "" {
			groups = append(groups, []interfaces.Message{msg})
			continue
		}
		if i, ok := index[msg.GroupID]; ok {
			groups[i] = append(groups[i], msg)
			continue
		}
		index[msg.GroupID] = len(groups)
		groups = append(groups, []interfaces.Message{msg})
	}
	return groups
}
