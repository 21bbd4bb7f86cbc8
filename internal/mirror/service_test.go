package mirror

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/goliatone/go-chansync/internal/channelinfo"
	"github.com/goliatone/go-chansync/internal/posts"
	"github.com/goliatone/go-chansync/internal/runtimeconfig"
	"github.com/goliatone/go-chansync/pkg/interfaces"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 0x49, 0x48, 0x44, 0x52}

type recordingRepo struct {
	mu        sync.Mutex
	exists    bool
	staged    []string
	commits   []string
	pushes    int
	pulls     int
	clones    int
	author    string
	commitErr error
	// onClone populates the working tree like a remote with content.
	onClone func() error
}

func (r *recordingRepo) Stage(_ context.Context, paths ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staged = append(r.staged, paths...)
	return nil
}

func (r *recordingRepo) Unstage(context.Context, string) error { return nil }

func (r *recordingRepo) Commit(_ context.Context, message string) error {
	if r.commitErr != nil {
		return r.commitErr
	}
	r.commits = append(r.commits, message)
	return nil
}

func (r *recordingRepo) Push(context.Context) error {
	r.pushes++
	return nil
}

func (r *recordingRepo) Pull(context.Context) error {
	r.pulls++
	return nil
}

func (r *recordingRepo) Clone(context.Context) error {
	r.clones++
	if r.onClone != nil {
		return r.onClone()
	}
	return nil
}

func (r *recordingRepo) Exists(context.Context) (bool, error) { return r.exists, nil }

func (r *recordingRepo) SetAuthor(_ context.Context, name, email string) error {
	r.author = name + " <" + email + ">"
	return nil
}

type stubSource struct {
	mu          sync.Mutex
	media       []byte
	downloadErr error
	thumbs      map[int64]int
	history     []interfaces.Message
	fetchErr    error
	fetched     []int64
}

func (s *stubSource) DownloadMedia(_ context.Context, msg interfaces.Message, thumb int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.downloadErr != nil {
		return nil, s.downloadErr
	}
	if s.thumbs == nil {
		s.thumbs = map[int64]int{}
	}
	s.thumbs[msg.ID] = thumb
	return s.media, nil
}

func (s *stubSource) FetchMessages(_ context.Context, ids []int64) ([]interfaces.Message, error) {
	s.fetched = append(s.fetched, ids...)
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.history, nil
}

type revokingSource struct {
	stubSource
	revoked []int64
}

func (s *revokingSource) DeleteMessages(_ context.Context, ids []int64) error {
	s.revoked = append(s.revoked, ids...)
	return nil
}

func testConfig(t *testing.T) runtimeconfig.Config {
	t.Helper()
	cfg := runtimeconfig.DefaultConfig()
	cfg.Channel.ID = "@chan"
	cfg.Channel.ExportedDataDir = t.TempDir()
	cfg.Git.RepoDir = t.TempDir()
	cfg.Git.PostsDir = "_posts"
	cfg.Git.PostImagesDir = "i"
	cfg.Git.RepoURL = "https://example.com/site.git"
	cfg.Git.AuthorName = "Bot"
	cfg.Git.AuthorEmail = "bot@example.com"
	return cfg
}

func newTestService(t *testing.T, source interfaces.MessageSource) (*Service, *recordingRepo, runtimeconfig.Config) {
	t.Helper()
	cfg := testConfig(t)
	repo := &recordingRepo{exists: true}
	svc := NewService(cfg, repo, source, WithIDGenerator(func() string { return "op-1" }))
	return svc, repo, cfg
}

func postPath(cfg runtimeconfig.Config, id string) string {
	return filepath.Join(cfg.Git.RepoDir, cfg.Git.PostsDir, id+".md")
}

func TestHandleMessagePublishesPost(t *testing.T) {
	svc, repo, cfg := newTestService(t, nil)

	err := svc.HandleMessage(context.Background(), interfaces.Message{ID: 42, Date: 1700000000, Text: "Hello\nWorld"})
	if err != nil {
		t.Fatalf("handle message: %v", err)
	}

	data, err := os.ReadFile(postPath(cfg, "42"))
	if err != nil {
		t.Fatalf("read post: %v", err)
	}
	if !strings.Contains(string(data), "Hello  \nWorld") {
		t.Fatalf("expected rendered body, got %q", data)
	}
	if !slices.Equal(repo.commits, []string{"Created new post: 42"}) {
		t.Fatalf("unexpected commits %v", repo.commits)
	}
	if repo.pushes != 1 {
		t.Fatalf("expected one push, got %d", repo.pushes)
	}
}

func TestHandleMessageDownloadsMedia(t *testing.T) {
	source := &stubSource{media: pngHeader}
	svc, _, cfg := newTestService(t, source)

	msg := interfaces.Message{ID: 7, Date: 1700000000, Media: interfaces.MediaPhoto}
	if err := svc.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("handle message: %v", err)
	}

	if source.thumbs[7] != cfg.Media.PhotoThumb {
		t.Fatalf("expected photo thumb %d, got %d", cfg.Media.PhotoThumb, source.thumbs[7])
	}
	if _, err := os.Stat(filepath.Join(cfg.Git.RepoDir, "i", "7_0.png")); err != nil {
		t.Fatalf("expected media file: %v", err)
	}
}

func TestHandleMessageSkipsIneligible(t *testing.T) {
	source := &stubSource{media: pngHeader}
	svc, repo, _ := newTestService(t, source)

	cases := []interfaces.Message{
		{ID: 1, Date: 1700000000, Text: "fwd", Forwarded: true},
		{ID: 2, Date: 1700000000, Service: true},
		{ID: 3, Date: 0, Text: "undated"},
		{ID: 4, Date: 1700000000, Media: interfaces.MediaOther},
	}
	for _, msg := range cases {
		if err := svc.HandleMessage(context.Background(), msg); err != nil {
			t.Fatalf("message %d: %v", msg.ID, err)
		}
	}
	if len(repo.commits) != 0 {
		t.Fatalf("expected no commits, got %v", repo.commits)
	}
	if len(source.thumbs) != 0 {
		t.Fatalf("expected no downloads, got %v", source.thumbs)
	}
}

func TestDownloadFailureLeavesNoCommit(t *testing.T) {
	source := &stubSource{downloadErr: errors.New("network down")}
	svc, repo, cfg := newTestService(t, source)

	err := svc.HandleMessage(context.Background(), interfaces.Message{ID: 9, Date: 1700000000, Media: interfaces.MediaVideo})
	if err == nil {
		t.Fatal("expected download error")
	}
	if len(repo.commits) != 0 || len(repo.staged) != 0 {
		t.Fatalf("expected nothing staged or committed, got %v %v", repo.staged, repo.commits)
	}
	if _, err := os.Stat(postPath(cfg, "9")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no post file, got %v", err)
	}
}

func TestHandleAlbumIgnoresSingleMessage(t *testing.T) {
	source := &stubSource{media: pngHeader}
	svc, repo, _ := newTestService(t, source)

	err := svc.HandleAlbum(context.Background(), []interfaces.Message{
		{ID: 5, Date: 1700000000, Media: interfaces.MediaPhoto, GroupID: "g"},
	})
	if err != nil {
		t.Fatalf("handle album: %v", err)
	}
	if len(repo.commits) != 0 || len(source.thumbs) != 0 {
		t.Fatalf("expected album to be ignored, commits %v downloads %v", repo.commits, source.thumbs)
	}
}

func TestHandleAlbumBuildsSinglePost(t *testing.T) {
	source := &stubSource{media: pngHeader}
	svc, repo, cfg := newTestService(t, source)

	album := []interfaces.Message{
		{ID: 10, Date: 1700000000, Media: interfaces.MediaPhoto, GroupID: "g"},
		{ID: 11, Date: 1700000000, Media: interfaces.MediaPhoto, Text: "caption", GroupID: "g"},
		{ID: 12, Date: 1700000000, Media: interfaces.MediaPhoto, GroupID: "g"},
	}
	if err := svc.HandleAlbum(context.Background(), album); err != nil {
		t.Fatalf("handle album: %v", err)
	}

	file, err := posts.ParsePostFile(postPath(cfg, "10"))
	if err != nil {
		t.Fatalf("parse post: %v", err)
	}
	want := []string{"i/10_0.png", "i/10_1.png", "i/10_2.png"}
	if !slices.Equal(file.Images, want) {
		t.Fatalf("expected images %v, got %v", want, file.Images)
	}
	if !strings.Contains(string(file.Body), "caption") {
		t.Fatalf("expected caption in body, got %q", file.Body)
	}
	if !slices.Equal(repo.commits, []string{"Created new post: 10"}) {
		t.Fatalf("unexpected commits %v", repo.commits)
	}
}

func TestHandleEditTargetsNearestPost(t *testing.T) {
	svc, repo, cfg := newTestService(t, nil)
	ctx := context.Background()

	if err := svc.HandleMessage(ctx, interfaces.Message{ID: 20, Date: 1700000000, Text: "first"}); err != nil {
		t.Fatalf("handle message: %v", err)
	}
	if err := svc.HandleEdit(ctx, interfaces.Message{ID: 21, Date: 1700000000, Text: "second"}); err != nil {
		t.Fatalf("handle edit: %v", err)
	}

	data, err := os.ReadFile(postPath(cfg, "20"))
	if err != nil {
		t.Fatalf("read post: %v", err)
	}
	if !strings.Contains(string(data), "second") {
		t.Fatalf("expected edited body, got %q", data)
	}
	want := []string{"Created new post: 20", "Edited post: 20"}
	if !slices.Equal(repo.commits, want) {
		t.Fatalf("expected commits %v, got %v", want, repo.commits)
	}
}

func TestHandleEditWithoutPostsFails(t *testing.T) {
	svc, repo, _ := newTestService(t, nil)

	err := svc.HandleEdit(context.Background(), interfaces.Message{ID: 3, Date: 1700000000, Text: "x"})
	if !errors.Is(err, posts.ErrEmptyInventory) {
		t.Fatalf("expected ErrEmptyInventory, got %v", err)
	}
	if len(repo.commits) != 0 || len(repo.staged) != 0 {
		t.Fatalf("expected nothing staged or committed, got %v %v", repo.staged, repo.commits)
	}
}

func TestDeletePosts(t *testing.T) {
	source := &revokingSource{}
	svc, repo, cfg := newTestService(t, source)
	ctx := context.Background()

	for _, id := range []int64{30, 31} {
		if err := svc.HandleMessage(ctx, interfaces.Message{ID: id, Date: 1700000000, Text: "post"}); err != nil {
			t.Fatalf("handle message: %v", err)
		}
	}
	if err := svc.DeletePosts(ctx, "30,31", true); err != nil {
		t.Fatalf("delete posts: %v", err)
	}

	for _, id := range []string{"30", "31"} {
		if _, err := os.Stat(postPath(cfg, id)); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected post %s removed, got %v", id, err)
		}
	}
	if got := repo.commits[len(repo.commits)-1]; got != "Delete post(s): 30,31" {
		t.Fatalf("unexpected delete commit %q", got)
	}
	if !slices.Equal(source.revoked, []int64{30, 31}) {
		t.Fatalf("expected revoked ids, got %v", source.revoked)
	}
}

func TestDeletePostsRejectsUnsupportedRevoke(t *testing.T) {
	svc, repo, _ := newTestService(t, &stubSource{})

	err := svc.DeletePosts(context.Background(), "1", true)
	if !errors.Is(err, ErrRevokeUnsupported) {
		t.Fatalf("expected ErrRevokeUnsupported, got %v", err)
	}
	if len(repo.commits) != 0 {
		t.Fatalf("expected no commits, got %v", repo.commits)
	}
}

func TestDeletePostsRejectsInvalidIDs(t *testing.T) {
	svc, repo, _ := newTestService(t, nil)

	err := svc.DeletePosts(context.Background(), "1,abc", false)
	if !errors.Is(err, posts.ErrInvalidPostID) {
		t.Fatalf("expected ErrInvalidPostID, got %v", err)
	}
	if len(repo.commits) != 0 {
		t.Fatalf("expected no commits, got %v", repo.commits)
	}
}

func TestCommitFailureSurfaces(t *testing.T) {
	svc, repo, _ := newTestService(t, nil)
	repo.commitErr = errors.New("locked")

	err := svc.HandleMessage(context.Background(), interfaces.Message{ID: 1, Date: 1700000000, Text: "x"})
	if err == nil {
		t.Fatal("expected commit error")
	}
	if repo.pushes != 0 {
		t.Fatalf("expected no push, got %d", repo.pushes)
	}
}

func TestSyncChannelInfoRequiresSource(t *testing.T) {
	svc, repo, _ := newTestService(t, nil)

	err := svc.SyncChannelInfo(context.Background(), channelinfo.Flags{Subscribers: true})
	if !errors.Is(err, channelinfo.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
	if len(repo.commits) != 0 {
		t.Fatalf("expected no commits, got %v", repo.commits)
	}
}

func TestBootstrapSkipsPopulatedSite(t *testing.T) {
	svc, repo, cfg := newTestService(t, nil)
	writeExport(t, cfg, `{"messages":[{"id":1,"type":"message","date_unixtime":"1700000000","text_entities":[{"type":"plain","text":"hi"}]}]}`)
	if err := os.MkdirAll(filepath.Join(cfg.Git.RepoDir, "_posts"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(postPath(cfg, "99"), []byte("---\n---\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if repo.pulls != 1 {
		t.Fatalf("expected pull, got %d", repo.pulls)
	}
	if len(repo.commits) != 0 {
		t.Fatalf("expected no commits, got %v", repo.commits)
	}
}

func TestBootstrapSkipsMissingExport(t *testing.T) {
	svc, repo, _ := newTestService(t, nil)
	repo.exists = false

	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if repo.clones != 1 {
		t.Fatalf("expected clone, got %d", repo.clones)
	}
	if repo.author != "Bot <bot@example.com>" {
		t.Fatalf("unexpected author %q", repo.author)
	}
	if len(repo.commits) != 0 {
		t.Fatalf("expected no commits, got %v", repo.commits)
	}
}

func TestBootstrapSkipsClonedSiteWithPosts(t *testing.T) {
	svc, repo, cfg := newTestService(t, nil)
	repo.exists = false
	repo.onClone = func() error {
		if err := os.MkdirAll(filepath.Join(cfg.Git.RepoDir, cfg.Git.PostsDir), 0o755); err != nil {
			return err
		}
		return os.WriteFile(postPath(cfg, "5"), []byte("remote body"), 0o644)
	}
	writeExport(t, cfg, `{"messages":[{"id":5,"type":"message","date_unixtime":"1700000000","text_entities":[{"type":"plain","text":"from export"}]}]}`)

	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if repo.clones != 1 {
		t.Fatalf("expected clone, got %d", repo.clones)
	}
	if len(repo.commits) != 0 {
		t.Fatalf("expected no commits, got %v", repo.commits)
	}
	body, err := os.ReadFile(postPath(cfg, "5"))
	if err != nil {
		t.Fatalf("read post 5: %v", err)
	}
	if string(body) != "remote body" {
		t.Fatalf("expected cloned post to be kept, got %q", body)
	}
}

func TestBootstrapFromOfflineExport(t *testing.T) {
	svc, repo, cfg := newTestService(t, nil)
	repo.exists = false
	writeExport(t, cfg, `{"messages":[
		{"id":1,"type":"message","date_unixtime":"1700000000","text_entities":[{"type":"plain","text":"hi"}],"photo":"photos/a.png"},
		{"id":2,"type":"message","date_unixtime":"1700000000","text_entities":[],"photo":"photos/b.png"},
		{"id":3,"type":"message","date_unixtime":"1700000500","text_entities":[{"type":"plain","text":"later"}]}
	]}`)
	for _, name := range []string{"a.png", "b.png"} {
		path := filepath.Join(cfg.Channel.ExportedDataDir, "photos", name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, pngHeader, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	file, err := posts.ParsePostFile(postPath(cfg, "1"))
	if err != nil {
		t.Fatalf("parse post 1: %v", err)
	}
	if !slices.Equal(file.Images, []string{"i/1_0.png", "i/1_1.png"}) {
		t.Fatalf("unexpected images %v", file.Images)
	}
	if _, err := os.Stat(postPath(cfg, "3")); err != nil {
		t.Fatalf("expected post 3: %v", err)
	}
	if !slices.Equal(repo.commits, []string{"Add initial posts"}) {
		t.Fatalf("unexpected commits %v", repo.commits)
	}
}

func TestBootstrapRefetchesOnline(t *testing.T) {
	source := &stubSource{
		media: pngHeader,
		history: []interfaces.Message{
			{ID: 1, Date: 1700000000, Text: "album", Media: interfaces.MediaPhoto, GroupID: "g1"},
			{ID: 2, Date: 1700000000, Media: interfaces.MediaPhoto, GroupID: "g1"},
			{ID: 3, Date: 1700000500, Text: "solo"},
		},
	}
	svc, repo, cfg := newTestService(t, source)
	repo.exists = false
	writeExport(t, cfg, `{"messages":[
		{"id":1,"type":"message","date_unixtime":"1700000000","text_entities":[{"type":"plain","text":"album"}],"photo":"photos/a.png"},
		{"id":2,"type":"message","date_unixtime":"1700000000","text_entities":[],"photo":"photos/b.png"},
		{"id":3,"type":"message","date_unixtime":"1700000500","text_entities":[{"type":"plain","text":"solo"}]}
	]}`)

	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if !slices.Equal(source.fetched, []int64{1, 2, 3}) {
		t.Fatalf("expected fetched ids [1 2 3], got %v", source.fetched)
	}
	file, err := posts.ParsePostFile(postPath(cfg, "1"))
	if err != nil {
		t.Fatalf("parse post 1: %v", err)
	}
	if len(file.Images) != 2 {
		t.Fatalf("expected two images, got %v", file.Images)
	}
	if _, err := os.Stat(postPath(cfg, "3")); err != nil {
		t.Fatalf("expected post 3: %v", err)
	}
}

func TestBootstrapFallsBackWithoutHistory(t *testing.T) {
	source := &stubSource{fetchErr: interfaces.ErrHistoryUnavailable}
	svc, repo, cfg := newTestService(t, source)
	repo.exists = false
	writeExport(t, cfg, `{"messages":[{"id":4,"type":"message","date_unixtime":"1700000000","text_entities":[{"type":"plain","text":"hi"}]}]}`)

	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if _, err := os.Stat(postPath(cfg, "4")); err != nil {
		t.Fatalf("expected post 4 from export: %v", err)
	}
	if !slices.Equal(repo.commits, []string{"Add initial posts"}) {
		t.Fatalf("unexpected commits %v", repo.commits)
	}
}

func TestGroupAlbums(t *testing.T) {
	msgs := []interfaces.Message{
		{ID: 1, GroupID: "a"},
		{ID: 2},
		{ID: 3, GroupID: "a"},
		{ID: 4, GroupID: "b"},
	}
	groups := GroupAlbums(msgs)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	if len(groups[0]) != 2 || groups[0][1].ID != 3 {
		t.Fatalf("expected album a to hold 1 and 3, got %v", groups[0])
	}
	if groups[1][0].ID != 2 || groups[2][0].ID != 4 {
		t.Fatalf("unexpected grouping %v", groups)
	}
}

func writeExport(t *testing.T, cfg runtimeconfig.Config, body string) {
	t.Helper()
	path := filepath.Join(cfg.Channel.ExportedDataDir, cfg.Channel.ExportFile)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write export: %v", err)
	}
}
