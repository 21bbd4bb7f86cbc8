package logging

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-chansync/pkg/interfaces"
)

const (
	rootModule    = "chansync"
	postsModule   = "chansync.posts"
	exportModule  = "chansync.export"
	repoModule    = "chansync.repo"
	channelModule = "chansync.channel"
	sourceModule  = "chansync.source"
	syncModule    = "chansync.sync"
)

const (
	fieldPostID     = "post_id"
	fieldPostAction = "post_action"
)

// ModuleLogger returns a logger scoped to module. A nil provider, or one that
// returns nil, yields the no-op logger. The module name is attached as the
// "module" field so entries can be filtered downstream.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if strings.TrimSpace(module) == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// PostsLogger scopes a logger to the post store and builder.
func PostsLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, postsModule)
}

// ExportLogger scopes a logger to export replay.
func ExportLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, exportModule)
}

// RepoLogger scopes a logger to the git client.
func RepoLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, repoModule)
}

// ChannelLogger scopes a logger to channel info sync.
func ChannelLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, channelModule)
}

// SourceLogger scopes a logger to message sources.
func SourceLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, sourceModule)
}

// SyncLogger scopes a logger to the sync service.
func SyncLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, syncModule)
}

// WithPostContext adds the post id and the action being applied to it. Zero
// ids and blank actions are left out.
func WithPostContext(logger interfaces.Logger, id int64, action string) interfaces.Logger {
	fields := map[string]any{}
	if id != 0 {
		fields[fieldPostID] = strconv.FormatInt(id, 10)
	}
	if trimmed := strings.TrimSpace(action); trimmed != "" {
		fields[fieldPostAction] = trimmed
	}
	return WithFields(logger, fields)
}
