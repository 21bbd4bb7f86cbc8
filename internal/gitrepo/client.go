package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/goliatone/go-chansync/internal/logging"
	"github.com/goliatone/go-chansync/internal/runtimeconfig"
	"github.com/goliatone/go-chansync/pkg/interfaces"
)

const (
	remoteName    = "origin"
	tokenUsername = "token"
)

var (
	// ErrRepoURLMissing is returned by Clone when no remote is configured.
	ErrRepoURLMissing = errors.New("gitrepo: repository url is not configured")
	// ErrAuthorMissing is returned by Commit when no author is known.
	ErrAuthorMissing = errors.New("gitrepo: commit author is not configured")
)

// Option customises a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the commit timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// Client implements interfaces.Repository on top of go-git. It works against
// a single branch of a single remote.
type Client struct {
	mu     sync.Mutex
	dir    string
	url    string
	branch plumbing.ReferenceName
	auth   transport.AuthMethod
	name   string
	email  string
	repo   *git.Repository
	now    func() time.Time
	logger interfaces.Logger
}

var _ interfaces.Repository = (*Client)(nil)

// New returns a client for the working directory in cfg. The access token,
// when set, authenticates over HTTP basic auth.
func New(cfg runtimeconfig.GitConfig, opts ...Option) *Client {
	c := &Client{
		dir:    cfg.RepoDir,
		url:    strings.TrimSpace(cfg.RepoURL),
		branch: plumbing.NewBranchReferenceName(branchOrDefault(cfg.Branch)),
		name:   cfg.AuthorName,
		email:  cfg.AuthorEmail,
		now:    time.Now,
		logger: logging.NoOp(),
	}
	if token := strings.TrimSpace(cfg.AccessToken); token != "" {
		c.auth = &githttp.BasicAuth{Username: tokenUsername, Password: token}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Exists reports whether the working directory holds a repository.
func (c *Client) Exists(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.open()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, git.ErrRepositoryNotExists):
		return false, nil
	default:
		return false, err
	}
}

// Clone makes a shallow single-branch clone of the remote.
func (c *Client) Clone(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.url == "" {
		return ErrRepoURLMissing
	}
	repo, err := git.PlainCloneContext(ctx, c.dir, false, &git.CloneOptions{
		URL:           c.url,
		Auth:          c.auth,
		RemoteName:    remoteName,
		ReferenceName: c.branch,
		SingleBranch:  true,
		Depth:         1,
	})
	if err != nil {
		return fmt.Errorf("gitrepo: clone %s: %w", c.url, err)
	}
	c.repo = repo
	c.logger.Info("repo.cloned", "branch", c.branch.Short())
	return nil
}

// Pull fast-forwards the working tree to the remote branch.
func (c *Client) Pull(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	wt, err := c.worktree()
	if err != nil {
		return err
	}
	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName:    remoteName,
		ReferenceName: c.branch,
		SingleBranch:  true,
		Auth:          c.auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("gitrepo: pull: %w", err)
	}
	return nil
}

// Stage adds each path to the index.
func (c *Client) Stage(ctx context.Context, paths ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	wt, err := c.worktree()
	if err != nil {
		return err
	}
	for _, path := range paths {
		if _, err := wt.Add(filepath.ToSlash(path)); err != nil {
			return fmt.Errorf("gitrepo: add %s: %w", path, err)
		}
	}
	return nil
}

// Unstage records the removal of path. Untracked paths are ignored.
func (c *Client) Unstage(ctx context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	wt, err := c.worktree()
	if err != nil {
		return err
	}
	if _, err := wt.Remove(filepath.ToSlash(path)); err != nil && !errors.Is(err, index.ErrEntryNotFound) {
		return fmt.Errorf("gitrepo: remove %s: %w", path, err)
	}
	return nil
}

// Commit records the index. A clean index is not an error.
func (c *Client) Commit(ctx context.Context, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	wt, err := c.worktree()
	if err != nil {
		return err
	}
	author, err := c.signature()
	if err != nil {
		return err
	}
	hash, err := wt.Commit(message, &git.CommitOptions{Author: author})
	if err != nil {
		if errors.Is(err, git.ErrEmptyCommit) {
			c.logger.Debug("repo.commit.empty", "message", message)
			return nil
		}
		return fmt.Errorf("gitrepo: commit: %w", err)
	}
	c.logger.Info("repo.committed", "commit", hash.String(), "message", message)
	return nil
}

// Push sends the branch to the remote.
func (c *Client) Push(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	repo, err := c.open()
	if err != nil {
		return err
	}
	spec := gitconfig.RefSpec(c.branch.String() + ":" + c.branch.String())
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []gitconfig.RefSpec{spec},
		Auth:       c.auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("gitrepo: push: %w", err)
	}
	return nil
}

// SetAuthor stores the commit author in the repository config.
func (c *Client) SetAuthor(ctx context.Context, name, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	repo, err := c.open()
	if err != nil {
		return err
	}
	cfg, err := repo.Config()
	if err != nil {
		return fmt.Errorf("gitrepo: read config: %w", err)
	}
	cfg.User.Name = name
	cfg.User.Email = email
	if err := repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("gitrepo: write config: %w", err)
	}
	c.name, c.email = name, email
	return nil
}

func (c *Client) open() (*git.Repository, error) {
	if c.repo != nil {
		return c.repo, nil
	}
	repo, err := git.PlainOpen(c.dir)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, err
		}
		return nil, fmt.Errorf("gitrepo: open %s: %w", c.dir, err)
	}
	c.repo = repo
	return repo, nil
}

func (c *Client) worktree() (*git.Worktree, error) {
	repo, err := c.open()
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("gitrepo: worktree: %w", err)
	}
	return wt, nil
}

func (c *Client) signature() (*object.Signature, error) {
	name, email := c.name, c.email
	if name == "" || email == "" {
		if cfg, err := c.repo.Config(); err == nil {
			if name == "" {
				name = cfg.User.Name
			}
			if email == "" {
				email = cfg.User.Email
			}
		}
	}
	if name == "" {
		return nil, ErrAuthorMissing
	}
	return &object.Signature{Name: name, Email: email, When: c.now()}, nil
}

func branchOrDefault(branch string) string {
	if branch = strings.TrimSpace(branch); branch == "" {
		return "master"
	}
	return branch
}
