package runtimeconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrChannelIDRequired      = errors.New("chansync config: channel id is required")
	ErrRepoDirRequired        = errors.New("chansync config: git repo dir is required")
	ErrPostsDirRequired       = errors.New("chansync config: git posts dir is required")
	ErrPostImagesDirRequired  = errors.New("chansync config: git post images dir is required")
	ErrDirOutsideRepo         = errors.New("chansync config: directory must be relative to the repo dir")
	ErrRepoURLRequired        = errors.New("chansync config: git repo url is required to clone")
	ErrThumbIndexInvalid      = errors.New("chansync config: media thumbnail index must be zero or positive")
	ErrSourceProviderUnknown  = errors.New("chansync config: message source provider is invalid")
	ErrSourceTokenRequired    = errors.New("chansync config: message source token is required")
	ErrLoggingProviderUnknown = errors.New("chansync config: logging provider is invalid")
	ErrLoggingLevelInvalid    = errors.New("chansync config: logging level is invalid")
	ErrLoggingFormatInvalid   = errors.New("chansync config: logging format is invalid")
)

// Config is the immutable runtime configuration handed to every component at
// construction time.
type Config struct {
	Channel     ChannelConfig     `mapstructure:"channel"`
	Git         GitConfig         `mapstructure:"git"`
	Media       MediaConfig       `mapstructure:"media"`
	Content     ContentConfig     `mapstructure:"content"`
	Source      SourceConfig      `mapstructure:"source"`
	ChannelInfo ChannelInfoConfig `mapstructure:"channel_info"`
	Preview     PreviewConfig     `mapstructure:"preview"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ChannelConfig identifies the mirrored channel and its historical export.
type ChannelConfig struct {
	ID     string `mapstructure:"id"`
	Author string `mapstructure:"author"`
	// ExportedDataDir holds the channel export (result.json plus media folders).
	ExportedDataDir string `mapstructure:"exported_data_dir"`
	ExportFile      string `mapstructure:"export_file"`
	// OfflineMedia seeds media from the export directory instead of
	// downloading it again from the source.
	OfflineMedia bool `mapstructure:"offline_media"`
}

// GitConfig describes the site repository and where posts live inside it.
type GitConfig struct {
	RepoDir       string `mapstructure:"repo_dir"`
	PostsDir      string `mapstructure:"posts_dir"`
	PostImagesDir string `mapstructure:"post_images_dir"`
	PostLayout    string `mapstructure:"post_layout"`
	RepoURL       string `mapstructure:"repo_url"`
	Branch        string `mapstructure:"branch"`
	AccessToken   string `mapstructure:"access_token"`
	AuthorName    string `mapstructure:"author_name"`
	AuthorEmail   string `mapstructure:"author_email"`
}

// MediaConfig selects which representation is downloaded per media kind.
type MediaConfig struct {
	PhotoThumb int `mapstructure:"photo_thumb"`
	VideoThumb int `mapstructure:"video_thumb"`
}

// ContentConfig toggles optional content policies.
type ContentConfig struct {
	// AddressTitle derives titles from a trailing hex address and strips the
	// address from the published body.
	AddressTitle bool `mapstructure:"address_title"`
}

// SourceConfig configures the live message source.
type SourceConfig struct {
	Provider    string        `mapstructure:"provider"`
	Token       string        `mapstructure:"token"`
	BaseURL     string        `mapstructure:"base_url"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

// ChannelInfoConfig schedules the periodic channel metadata refresh.
type ChannelInfoConfig struct {
	Cron        string `mapstructure:"cron"`
	Logo        bool   `mapstructure:"logo"`
	Subscribers bool   `mapstructure:"subscribers"`
}

// PreviewConfig controls local HTML previews of stored posts.
type PreviewConfig struct {
	Sanitize  bool `mapstructure:"sanitize"`
	HardWraps bool `mapstructure:"hard_wraps"`
}

// LoggingConfig selects the logger provider.
type LoggingConfig struct {
	Provider  string   `mapstructure:"provider"`
	Level     string   `mapstructure:"level"`
	Format    string   `mapstructure:"format"`
	AddSource bool     `mapstructure:"add_source"`
	Focus     []string `mapstructure:"focus"`
}

// DefaultConfig mirrors the defaults of the original deployment.
func DefaultConfig() Config {
	return Config{
		Channel: ChannelConfig{
			ExportFile: "result.json",
		},
		Git: GitConfig{
			RepoDir:       "./microblog",
			PostsDir:      "_collection_name",
			PostImagesDir: "i",
			Branch:        "master",
		},
		Media: MediaConfig{
			PhotoThumb: 1,
			VideoThumb: 0,
		},
		Source: SourceConfig{
			Provider:    "none",
			BaseURL:     "https://api.telegram.org",
			PollTimeout: 30 * time.Second,
		},
		ChannelInfo: ChannelInfoConfig{
			Cron: "@daily",
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
	}
}

// Validate performs consistency checks. It does not touch the filesystem.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.Channel.ID) == "" {
		return ErrChannelIDRequired
	}
	if strings.TrimSpace(cfg.Git.RepoDir) == "" {
		return ErrRepoDirRequired
	}
	if strings.TrimSpace(cfg.Git.PostsDir) == "" {
		return ErrPostsDirRequired
	}
	if strings.TrimSpace(cfg.Git.PostImagesDir) == "" {
		return ErrPostImagesDirRequired
	}
	for _, dir := range []string{cfg.Git.PostsDir, cfg.Git.PostImagesDir} {
		if !isRepoRelative(dir) {
			return fmt.Errorf("%w: %s", ErrDirOutsideRepo, dir)
		}
	}
	if cfg.Media.PhotoThumb < 0 || cfg.Media.VideoThumb < 0 {
		return ErrThumbIndexInvalid
	}
	switch provider := normalize(cfg.Source.Provider); provider {
	case "", "none":
	case "botapi":
		if strings.TrimSpace(cfg.Source.Token) == "" {
			return ErrSourceTokenRequired
		}
	default:
		return fmt.Errorf("%w: %s", ErrSourceProviderUnknown, provider)
	}
	switch provider := normalize(cfg.Logging.Provider); provider {
	case "", "console":
	case "gologger":
		if format := normalize(cfg.Logging.Format); format != "" && format != "json" && format != "console" && format != "pretty" {
			return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
		}
	default:
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
	}
	switch level := normalize(cfg.Logging.Level); level {
	case "", "trace", "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
	}
	return nil
}

// ValidateClone reports whether the config can clone the repository.
func (cfg Config) ValidateClone() error {
	if strings.TrimSpace(cfg.Git.RepoURL) == "" {
		return ErrRepoURLRequired
	}
	return nil
}

func isRepoRelative(dir string) bool {
	dir = strings.TrimSpace(dir)
	if strings.HasPrefix(dir, "/") || strings.HasPrefix(dir, `\`) {
		return false
	}
	for _, segment := range strings.FieldsFunc(dir, func(r rune) bool { return r == '/' || r == '\\' }) {
		if segment == ".." {
			return false
		}
	}
	return true
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
