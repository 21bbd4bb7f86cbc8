package runtimeconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadOptions controls where Load looks for configuration.
type LoadOptions struct {
	// EnvFiles are loaded into the process environment first. Missing files
	// are ignored. Defaults to ".env".
	EnvFiles []string
	// ConfigName is the config file stem, defaults to "config".
	ConfigName string
	// ConfigPaths are searched in order for ConfigName.yaml. Defaults to ".".
	ConfigPaths []string
}

// envAliases binds the legacy deployment variables to config keys. The
// automatic CHANNEL_ID style names keep working alongside them.
var envAliases = map[string][]string{
	"channel.id":                {"TG_BOT_CHANNEL_ID"},
	"channel.author":            {"TG_BOT_CHANNEL_AUTHOR"},
	"channel.exported_data_dir": {"TG_BOT_EXPORTED_DATA_DIR"},
	"channel.offline_media":     {"TG_BOT_OFFLINE_MEDIA"},
	"git.access_token":          {"GIT_ACCESS_TOKEN"},
	"git.repo_dir":              {"GIT_REPO_DIR"},
	"git.posts_dir":             {"GIT_POSTS_DIR"},
	"git.post_images_dir":       {"GIT_POST_IMAGES_DIR"},
	"git.post_layout":           {"GIT_POST_LAYOUT"},
	"git.repo_url":              {"GIT_REPO_URL"},
	"git.branch":                {"GIT_BRANCH"},
	"git.author_name":           {"GIT_AUTHOR_NAME"},
	"git.author_email":          {"GIT_AUTHOR_EMAIL"},
	"source.token":              {"TG_BOT_TOKEN"},
}

// Load builds a Config from defaults, env files, an optional YAML file and the
// process environment, in increasing order of precedence.
func Load(opts LoadOptions) (Config, error) {
	envFiles := opts.EnvFiles
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("chansync config: load env file %s: %w", file, err)
		}
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	name := strings.TrimSpace(opts.ConfigName)
	if name == "" {
		name = "config"
	}
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	paths := opts.ConfigPaths
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key, strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)...); err != nil {
			return Config{}, fmt.Errorf("chansync config: bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("chansync config: read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("chansync config: decode: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("channel.id", cfg.Channel.ID)
	v.SetDefault("channel.author", cfg.Channel.Author)
	v.SetDefault("channel.exported_data_dir", cfg.Channel.ExportedDataDir)
	v.SetDefault("channel.export_file", cfg.Channel.ExportFile)
	v.SetDefault("channel.offline_media", cfg.Channel.OfflineMedia)

	v.SetDefault("git.repo_dir", cfg.Git.RepoDir)
	v.SetDefault("git.posts_dir", cfg.Git.PostsDir)
	v.SetDefault("git.post_images_dir", cfg.Git.PostImagesDir)
	v.SetDefault("git.post_layout", cfg.Git.PostLayout)
	v.SetDefault("git.repo_url", cfg.Git.RepoURL)
	v.SetDefault("git.branch", cfg.Git.Branch)
	v.SetDefault("git.access_token", cfg.Git.AccessToken)
	v.SetDefault("git.author_name", cfg.Git.AuthorName)
	v.SetDefault("git.author_email", cfg.Git.AuthorEmail)

	v.SetDefault("media.photo_thumb", cfg.Media.PhotoThumb)
	v.SetDefault("media.video_thumb", cfg.Media.VideoThumb)

	v.SetDefault("content.address_title", cfg.Content.AddressTitle)

	v.SetDefault("source.provider", cfg.Source.Provider)
	v.SetDefault("source.token", cfg.Source.Token)
	v.SetDefault("source.base_url", cfg.Source.BaseURL)
	v.SetDefault("source.poll_timeout", cfg.Source.PollTimeout)

	v.SetDefault("channel_info.cron", cfg.ChannelInfo.Cron)
	v.SetDefault("channel_info.logo", cfg.ChannelInfo.Logo)
	v.SetDefault("channel_info.subscribers", cfg.ChannelInfo.Subscribers)

	v.SetDefault("preview.sanitize", cfg.Preview.Sanitize)
	v.SetDefault("preview.hard_wraps", cfg.Preview.HardWraps)

	v.SetDefault("logging.provider", cfg.Logging.Provider)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.add_source", cfg.Logging.AddSource)
	v.SetDefault("logging.focus", cfg.Logging.Focus)
}
