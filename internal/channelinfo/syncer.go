package channelinfo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-chansync/internal/logging"
	"github.com/goliatone/go-chansync/internal/posts"
	"github.com/goliatone/go-chansync/internal/runtimeconfig"
	"github.com/goliatone/go-chansync/pkg/interfaces"
)

const (
	siteConfigFile = "_config.yml"
	logoDir        = "assets"
	logoStem       = "logo"
)

var (
	postCountPattern  = regexp.MustCompile(`num_of_posts: \d+`)
	subscriberPattern = regexp.MustCompile(`num_of_subscribers: \d+`)
)

// ErrSourceUnavailable is returned when a flag needs channel metadata but no
// source was configured.
var ErrSourceUnavailable = errors.New("channelinfo: channel info source unavailable")

// Flags selects what Sync refreshes.
type Flags struct {
	Logo        bool
	Subscribers bool
	Posts       bool
}

// Option customises a Syncer.
type Option func(*Syncer)

// WithLogger sets the syncer logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(s *Syncer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Syncer keeps the channel metadata published in the site config current.
type Syncer struct {
	repoDir  string
	postsDir string
	repo     interfaces.Repository
	source   interfaces.ChannelInfoSource
	logger   interfaces.Logger
}

// NewSyncer builds a syncer. source may be nil when only post counts are
// refreshed.
func NewSyncer(cfg runtimeconfig.Config, repo interfaces.Repository, source interfaces.ChannelInfoSource, opts ...Option) *Syncer {
	s := &Syncer{
		repoDir:  cfg.Git.RepoDir,
		postsDir: cfg.Git.PostsDir,
		repo:     repo,
		source:   source,
		logger:   logging.NoOp(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefreshPostCount updates num_of_posts. It matches posts.ChangeHook.
func (s *Syncer) RefreshPostCount(ctx context.Context) error {
	return s.Sync(ctx, Flags{Posts: true})
}

// Sync refreshes the selected metadata and stages every touched file. A site
// without _config.yml only gets its logo updated.
func (s *Syncer) Sync(ctx context.Context, flags Flags) error {
	if (flags.Logo || flags.Subscribers) && s.source == nil {
		return ErrSourceUnavailable
	}

	var staged []string
	if flags.Logo {
		rel, err := s.syncLogo(ctx)
		if err != nil {
			return err
		}
		if rel != "" {
			staged = append(staged, rel)
		}
	}

	if flags.Subscribers || flags.Posts {
		updated, err := s.syncConfig(ctx, flags)
		if err != nil {
			return err
		}
		if updated {
			staged = append(staged, siteConfigFile)
		}
	}

	if len(staged) == 0 {
		return nil
	}
	if err := s.repo.Stage(ctx, staged...); err != nil {
		return fmt.Errorf("channelinfo: stage: %w", err)
	}
	return nil
}

// CountPosts returns the number of post bodies. A missing directory counts
// as zero.
func (s *Syncer) CountPosts() (int, error) {
	entries, err := os.ReadDir(filepath.Join(s.repoDir, s.postsDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("channelinfo: read posts dir: %w", err)
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".md") {
			count++
		}
	}
	return count, nil
}

func (s *Syncer) syncConfig(ctx context.Context, flags Flags) (bool, error) {
	configPath := filepath.Join(s.repoDir, siteConfigFile)
	raw, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("channelinfo.config.missing", "path", siteConfigFile)
			return false, nil
		}
		return false, fmt.Errorf("channelinfo: read %s: %w", siteConfigFile, err)
	}
	site := string(raw)

	if flags.Subscribers {
		subscribers, err := s.source.SubscriberCount(ctx)
		if err != nil {
			return false, fmt.Errorf("channelinfo: subscriber count: %w", err)
		}
		site = subscriberPattern.ReplaceAllLiteralString(site, "num_of_subscribers: "+strconv.Itoa(subscribers))
		s.logger.Debug("channelinfo.subscribers", "count", subscribers)
	}

	if flags.Posts {
		count, err := s.CountPosts()
		if err != nil {
			return false, err
		}
		site = postCountPattern.ReplaceAllLiteralString(site, "num_of_posts: "+strconv.Itoa(count))
		s.logger.Debug("channelinfo.posts", "count", count)
	}

	if site == string(raw) {
		return false, nil
	}
	if err := os.WriteFile(configPath, []byte(site), 0o644); err != nil {
		return false, fmt.Errorf("channelinfo: write %s: %w", siteConfigFile, err)
	}
	return true, nil
}

func (s *Syncer) syncLogo(ctx context.Context) (string, error) {
	logo, err := s.source.Logo(ctx)
	if err != nil {
		return "", fmt.Errorf("channelinfo: download logo: %w", err)
	}
	if len(logo) == 0 {
		s.logger.Debug("channelinfo.logo.absent")
		return "", nil
	}

	rel := path.Join(logoDir, logoStem+"."+posts.DetectExtension(logo, interfaces.MediaPhoto))
	abs := filepath.Join(s.repoDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("channelinfo: create %s: %w", logoDir, err)
	}
	if err := os.WriteFile(abs, logo, 0o644); err != nil {
		return "", fmt.Errorf("channelinfo: write %s: %w", rel, err)
	}
	s.logger.Info("channelinfo.logo.updated", "path", rel)
	return rel, nil
}
