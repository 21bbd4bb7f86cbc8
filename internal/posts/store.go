package posts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-chansync/internal/content"
	"github.com/goliatone/go-chansync/internal/logging"
	"github.com/goliatone/go-chansync/internal/runtimeconfig"
	"github.com/goliatone/go-chansync/pkg/interfaces"
)

const postExt = ".md"

// ChangeHook runs after a create or delete changed the set of posts.
type ChangeHook func(ctx context.Context) error

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithProcessor installs a processor applied to every framed post.
func WithProcessor(processor content.Processor) StoreOption {
	return func(s *Store) {
		if processor != nil {
			s.processor = processor
		}
	}
}

// WithChangeHook registers a hook invoked after creates and deletes.
func WithChangeHook(hook ChangeHook) StoreOption {
	return func(s *Store) {
		s.onChange = hook
	}
}

// WithLogger sets the store logger.
func WithLogger(logger interfaces.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store writes posts and their media into the repository working tree and
// stages every changed path. Committing is left to the caller.
type Store struct {
	repo      interfaces.Repository
	assoc     Associator
	repoDir   string
	postsDir  string
	exportDir string
	layout    string
	processor content.Processor
	onChange  ChangeHook
	logger    interfaces.Logger
}

// NewStore builds a store over the working tree described by cfg.
func NewStore(cfg runtimeconfig.Config, repo interfaces.Repository, opts ...StoreOption) *Store {
	s := &Store{
		repo:      repo,
		assoc:     NewAssociator(cfg.Git.RepoDir, cfg.Git.PostImagesDir),
		repoDir:   cfg.Git.RepoDir,
		postsDir:  cfg.Git.PostsDir,
		exportDir: cfg.Channel.ExportedDataDir,
		layout:    cfg.Git.PostLayout,
		processor: content.Identity,
		logger:    logging.NoOp(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Associator exposes the media associator used by the store.
func (s *Store) Associator() Associator {
	return s.assoc
}

// PostsDir is the absolute posts directory.
func (s *Store) PostsDir() string {
	return filepath.Join(s.repoDir, s.postsDir)
}

// Create frames post, writes its body and media and stages them. Media items
// without a buffer are copied from the export directory.
func (s *Store) Create(ctx context.Context, post *Post) error {
	if post == nil {
		return ErrNilPost
	}
	logger := logging.WithPostContext(s.logger, post.ID, "create")

	s.assoc.Assign(post)
	if err := AddFrontMatter(post, s.layout); err != nil {
		return err
	}
	post.Content = s.processor(post.Content)

	if err := s.ensureDirs(len(post.Media) > 0); err != nil {
		return err
	}

	bodyRel := s.bodyRel(post.ID)
	if err := os.WriteFile(s.abs(bodyRel), []byte(post.Content), 0o644); err != nil {
		return fmt.Errorf("posts: write %s: %w", bodyRel, err)
	}

	staged := []string{bodyRel}
	for _, item := range post.Media {
		if err := s.writeMedia(item); err != nil {
			return err
		}
		staged = append(staged, item.RelDestination)
	}

	if err := s.repo.Stage(ctx, staged...); err != nil {
		return fmt.Errorf("posts: stage post %d: %w", post.ID, err)
	}
	logger.Info("post.created", "media", len(post.Media))

	return s.changed(ctx)
}

// Edit applies an edited message to the post it belongs to and returns the
// durable id that was written. A non-empty Content rewrites the body, the
// first media item (if any) overwrites the media slot addressed by the edit.
// The stored date is kept, and the front matter is rewritten whenever a slot
// changes its file name so images never point at removed files.
func (s *Store) Edit(ctx context.Context, post *Post) (int64, error) {
	if post == nil {
		return 0, ErrNilPost
	}

	inventory, err := s.Inventory()
	if err != nil {
		return 0, err
	}
	durable, err := ResolveEditTargetID(post.ID, inventory)
	if err != nil {
		return 0, err
	}
	logger := logging.WithPostContext(s.logger, durable, "edit")

	stored, err := s.Load(durable)
	if err != nil {
		return 0, fmt.Errorf("posts: load post %d: %w", durable, err)
	}
	existing, err := s.assoc.LocateExisting(durable)
	if err != nil {
		return 0, fmt.Errorf("posts: locate media of %d: %w", durable, err)
	}
	count := max(len(existing), 1)
	slot := clampSlot(post.ID-durable, count)

	var item *MediaItem
	if len(post.Media) > 0 {
		media := post.Media[0]
		media.Destination, media.RelDestination = s.assoc.Slot(durable, slot, media.Ext())
		item = &media
	}
	renamed := item != nil && (slot >= len(existing) || existing[slot] != item.RelDestination)

	date := storedDate(stored, post.Date)
	images := s.editImages(existing, item, slot, count)

	var body string
	switch {
	case post.Content != "":
		body = s.processor(RenderFrontMatter(post.Title, date, images, s.layout) + post.Content + "\n")
	case renamed && s.layout == "":
		body = RenderFrontMatter(stored.Title, date, images, s.layout) + storedBody(stored)
	}

	var staged []string
	if body != "" {
		bodyRel := s.bodyRel(durable)
		if err := os.WriteFile(s.abs(bodyRel), []byte(body), 0o644); err != nil {
			return 0, fmt.Errorf("posts: write %s: %w", bodyRel, err)
		}
		staged = append(staged, bodyRel)
	}

	if item != nil {
		if renamed && slot < len(existing) {
			if err := s.remove(ctx, existing[slot]); err != nil {
				return 0, err
			}
		}
		if err := s.ensureDirs(true); err != nil {
			return 0, err
		}
		if err := s.writeMedia(*item); err != nil {
			return 0, err
		}
		staged = append(staged, item.RelDestination)
	}

	if len(staged) > 0 {
		if err := s.repo.Stage(ctx, staged...); err != nil {
			return 0, fmt.Errorf("posts: stage post %d: %w", durable, err)
		}
	}
	logger.Info("post.edited", "nominal_id", post.ID, "slot", slot, "body", body != "", "media", item != nil)
	return durable, nil
}

// Delete removes every post named in the comma separated ids along with its
// numbered media and records the removals. Files already gone are still unstaged.
func (s *Store) Delete(ctx context.Context, ids string) error {
	parsed, err := ParseIDs(ids)
	if err != nil {
		return err
	}

	for _, id := range parsed {
		logger := logging.WithPostContext(s.logger, id, "delete")
		media, err := s.assoc.LocateExisting(id)
		if err != nil {
			return fmt.Errorf("posts: locate media of %d: %w", id, err)
		}
		for _, rel := range append([]string{s.bodyRel(id)}, media...) {
			if err := s.remove(ctx, rel); err != nil {
				return err
			}
		}
		logger.Info("post.deleted", "media", len(media))
	}

	return s.changed(ctx)
}

// Inventory lists the ids of every post body in the posts directory.
func (s *Store) Inventory() ([]int64, error) {
	entries, err := os.ReadDir(s.PostsDir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("posts: read posts dir: %w", err)
	}

	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, postExt) {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSuffix(name, postExt), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Load reads back the stored post id.
func (s *Store) Load(id int64) (*PostFile, error) {
	return ParsePostFile(s.abs(s.bodyRel(id)))
}

// ParseIDs splits a comma separated id list. Blank entries are ignored.
func ParseIDs(ids string) ([]int64, error) {
	var out []int64
	for _, raw := range strings.Split(ids, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPostID, raw)
		}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPostID, ids)
	}
	return out, nil
}

func (s *Store) editImages(existing []string, item *MediaItem, slot, count int) []string {
	if item == nil {
		return existing
	}
	images := make([]string, count)
	copy(images, existing)
	images[slot] = item.RelDestination
	return images
}

func (s *Store) writeMedia(item MediaItem) error {
	data := item.Buffer
	if data == nil {
		if item.Source == "" {
			return fmt.Errorf("%w: %s", ErrMediaSourceMissing, item.RelDestination)
		}
		var err error
		data, err = os.ReadFile(filepath.Join(s.exportDir, filepath.FromSlash(item.Source)))
		if err != nil {
			return fmt.Errorf("posts: read media %s: %w", item.Source, err)
		}
	}
	if err := os.WriteFile(item.Destination, data, 0o644); err != nil {
		return fmt.Errorf("posts: write %s: %w", item.RelDestination, err)
	}
	return nil
}

func (s *Store) remove(ctx context.Context, rel string) error {
	// A file already gone may still be tracked, so its removal is recorded
	// either way.
	if err := os.Remove(s.abs(rel)); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("posts: remove %s: %w", rel, err)
		}
		s.logger.Debug("post.file.missing", "path", rel)
	}
	if err := s.repo.Unstage(ctx, rel); err != nil {
		return fmt.Errorf("posts: record removal of %s: %w", rel, err)
	}
	return nil
}

func (s *Store) ensureDirs(media bool) error {
	dirs := []string{s.PostsDir()}
	if media {
		dirs = append(dirs, s.assoc.Dir())
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("posts: create %s: %w", dir, err)
		}
	}
	return nil
}

func (s *Store) changed(ctx context.Context) error {
	if s.onChange == nil {
		return nil
	}
	return s.onChange(ctx)
}

func (s *Store) bodyRel(id int64) string {
	return path.Join(filepath.ToSlash(s.postsDir), strconv.FormatInt(id, 10)+postExt)
}

func (s *Store) abs(rel string) string {
	return filepath.Join(s.repoDir, filepath.FromSlash(rel))
}

// storedDate returns the epoch of the stored front matter date, or fallback
// when the post carries none.
func storedDate(file *PostFile, fallback int64) int64 {
	if file == nil || strings.TrimSpace(file.Date) == "" {
		return fallback
	}
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(file.Date))
	if err != nil {
		return fallback
	}
	return parsed.Unix()
}

func storedBody(file *PostFile) string {
	body := strings.TrimLeft(string(file.Body), "\n")
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	return body
}

func clampSlot(offset int64, count int) int {
	switch {
	case offset < 0:
		return 0
	case offset >= int64(count):
		return count - 1
	default:
		return int(offset)
	}
}
