package chansync

import "github.com/goliatone/go-chansync/internal/runtimeconfig"

var (
	ErrChannelIDRequired      = runtimeconfig.ErrChannelIDRequired
	ErrRepoDirRequired        = runtimeconfig.ErrRepoDirRequired
	ErrPostsDirRequired       = runtimeconfig.ErrPostsDirRequired
	ErrPostImagesDirRequired  = runtimeconfig.ErrPostImagesDirRequired
	ErrDirOutsideRepo         = runtimeconfig.ErrDirOutsideRepo
	ErrRepoURLRequired        = runtimeconfig.ErrRepoURLRequired
	ErrThumbIndexInvalid      = runtimeconfig.ErrThumbIndexInvalid
	ErrSourceProviderUnknown  = runtimeconfig.ErrSourceProviderUnknown
	ErrSourceTokenRequired    = runtimeconfig.ErrSourceTokenRequired
	ErrLoggingProviderUnknown = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid    = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid   = runtimeconfig.ErrLoggingFormatInvalid
)

type (
	Config            = runtimeconfig.Config
	ChannelConfig     = runtimeconfig.ChannelConfig
	GitConfig         = runtimeconfig.GitConfig
	MediaConfig       = runtimeconfig.MediaConfig
	ContentConfig     = runtimeconfig.ContentConfig
	SourceConfig      = runtimeconfig.SourceConfig
	ChannelInfoConfig = runtimeconfig.ChannelInfoConfig
	PreviewConfig     = runtimeconfig.PreviewConfig
	LoggingConfig     = runtimeconfig.LoggingConfig
	LoadOptions       = runtimeconfig.LoadOptions
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// LoadConfig reads env files, an optional config.yaml and the environment
// over the defaults.
func LoadConfig(opts LoadOptions) (Config, error) {
	return runtimeconfig.Load(opts)
}
