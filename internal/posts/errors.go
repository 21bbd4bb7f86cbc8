package posts

import "errors"

var (
	// ErrEmptyInventory reports an edit against a repository that holds no posts.
	ErrEmptyInventory = errors.New("posts: no existing posts to edit")
	// ErrInvalidPostID indicates a delete request with a malformed id.
	ErrInvalidPostID = errors.New("posts: invalid post id")
	// ErrNilPost is returned when an operation receives a nil post.
	ErrNilPost = errors.New("posts: post is nil")
	// ErrFrontMatterApplied guards against templating a post twice.
	ErrFrontMatterApplied = errors.New("posts: front matter already applied")
	// ErrMediaSourceMissing reports a media item with neither a buffer nor a
	// source path to copy from.
	ErrMediaSourceMissing = errors.New("posts: media item has no data")
)
