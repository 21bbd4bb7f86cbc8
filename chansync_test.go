package chansync_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-chansync"
	"github.com/goliatone/go-chansync/internal/di"
	"github.com/goliatone/go-chansync/internal/mirror"
	"github.com/goliatone/go-chansync/pkg/interfaces"
)

func newModule(t *testing.T, repo *memoryRepo, opts ...di.Option) (*chansync.Module, chansync.Config) {
	t.Helper()
	cfg := chansync.DefaultConfig()
	cfg.Channel.ID = "@chan"
	cfg.Channel.ExportedDataDir = t.TempDir()
	cfg.Git.RepoDir = t.TempDir()

	opts = append([]di.Option{di.WithRepository(repo)}, opts...)
	module, err := chansync.New(cfg, opts...)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return module, cfg
}

func TestModuleRunRequiresListener(t *testing.T) {
	repo := &memoryRepo{exists: true}
	module, _ := newModule(t, repo)

	if err := module.Run(context.Background()); !errors.Is(err, chansync.ErrListenerUnavailable) {
		t.Fatalf("expected ErrListenerUnavailable, got %v", err)
	}
	if repo.pulls != 0 {
		t.Fatalf("expected no bootstrap without a listener, got %d pulls", repo.pulls)
	}
}

func TestModuleRunBootstrapsAndDispatches(t *testing.T) {
	repo := &memoryRepo{exists: true}
	source := &scriptedSource{messages: []interfaces.Message{
		{ID: 5, Date: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).Unix(), Text: "hello"},
	}}
	module, cfg := newModule(t, repo, di.WithSource(source))

	if err := module.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if repo.pulls != 1 {
		t.Fatalf("expected bootstrap to pull once, got %d", repo.pulls)
	}
	body, err := os.ReadFile(filepath.Join(cfg.Git.RepoDir, cfg.Git.PostsDir, "5.md"))
	if err != nil {
		t.Fatalf("expected post body: %v", err)
	}
	if !strings.Contains(string(body), "hello") {
		t.Fatalf("expected body to contain message text, got %q", body)
	}
	if len(repo.commits) != 1 || repo.commits[0] != "Created new post: 5" {
		t.Fatalf("unexpected commits %v", repo.commits)
	}
	if repo.pushes != 1 {
		t.Fatalf("expected one push, got %d", repo.pushes)
	}
}

func TestModuleDeletePostsRevokeUnsupported(t *testing.T) {
	repo := &memoryRepo{exists: true}
	module, _ := newModule(t, repo)

	err := module.DeletePosts(context.Background(), "3", true)
	if !errors.Is(err, mirror.ErrRevokeUnsupported) {
		t.Fatalf("expected ErrRevokeUnsupported, got %v", err)
	}
	if len(repo.commits) != 0 {
		t.Fatalf("expected no commit, got %v", repo.commits)
	}
}

func TestModulePreviewWritesStoredPost(t *testing.T) {
	repo := &memoryRepo{exists: true}
	var out bytes.Buffer
	module, _ := newModule(t, repo, di.WithPreviewOutput(&out))

	ctx := context.Background()
	msg := interfaces.Message{ID: 8, Date: time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC).Unix(), Text: "<b>bold</b> text"}
	if err := module.HandleMessage(ctx, msg); err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}
	if err := module.Preview(ctx, 8, ""); err != nil {
		t.Fatalf("Preview returned error: %v", err)
	}
	if !strings.Contains(out.String(), "<b>bold</b>") {
		t.Fatalf("expected rendered bold text, got %q", out.String())
	}
}

type memoryRepo struct {
	exists  bool
	pulls   int
	pushes  int
	commits []string
}

func (r *memoryRepo) Stage(context.Context, ...string) error { return nil }
func (r *memoryRepo) Unstage(context.Context, string) error  { return nil }

func (r *memoryRepo) Commit(_ context.Context, message string) error {
	r.commits = append(r.commits, message)
	return nil
}

func (r *memoryRepo) Push(context.Context) error {
	r.pushes++
	return nil
}

func (r *memoryRepo) Pull(context.Context) error {
	r.pulls++
	return nil
}

func (r *memoryRepo) Clone(context.Context) error                     { return nil }
func (r *memoryRepo) Exists(context.Context) (bool, error)            { return r.exists, nil }
func (r *memoryRepo) SetAuthor(context.Context, string, string) error { return nil }

// scriptedSource delivers its messages once and stops listening.
type scriptedSource struct {
	messages []interfaces.Message
}

func (s *scriptedSource) DownloadMedia(context.Context, interfaces.Message, int) ([]byte, error) {
	return nil, nil
}

func (s *scriptedSource) FetchMessages(context.Context, []int64) ([]interfaces.Message, error) {
	return nil, interfaces.ErrHistoryUnavailable
}

func (s *scriptedSource) Listen(ctx context.Context, handler interfaces.MessageHandler) error {
	for _, msg := range s.messages {
		if err := handler.HandleMessage(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}
