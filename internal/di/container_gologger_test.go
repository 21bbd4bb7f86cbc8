package di

import (
	"testing"

	"github.com/goliatone/go-chansync/internal/logging/gologger"
	"github.com/goliatone/go-chansync/internal/runtimeconfig"
)

func TestConfigureLoggerProviderUsesGoLoggerAdapter(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Channel.ID = "@chan"
	cfg.Git.RepoDir = t.TempDir()
	cfg.Logging.Provider = "gologger"
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"

	container, err := NewContainer(cfg)
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}

	provider, ok := container.loggerProvider.(*gologger.Provider)
	if !ok {
		t.Fatalf("expected go-logger provider, got %T", container.loggerProvider)
	}

	logger := provider.GetLogger("chansync.test")
	if logger == nil {
		t.Fatal("expected logger from go-logger provider, got nil")
	}
}
