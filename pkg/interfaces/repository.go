package interfaces

import "context"

// Repository is the version-control capability the sync engine stages post
// changes into. Paths are relative to the repository working directory.
type Repository interface {
	// Stage adds the current content of each path to the next commit.
	Stage(ctx context.Context, paths ...string) error
	// Unstage records the removal of path in the next commit. The file is
	// expected to be gone from the working tree already.
	Unstage(ctx context.Context, path string) error
	Commit(ctx context.Context, message string) error
	Push(ctx context.Context) error
	Pull(ctx context.Context) error
	Clone(ctx context.Context) error
	// Exists reports whether a local clone is present in the working directory.
	Exists(ctx context.Context) (bool, error)
	SetAuthor(ctx context.Context, name, email string) error
}
