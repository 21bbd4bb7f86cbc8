package posts

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Associator maps post media onto numbered files in the images directory.
type Associator struct {
	repoDir   string
	imagesDir string
}

// NewAssociator creates an associator for imagesDir, given relative to repoDir.
func NewAssociator(repoDir, imagesDir string) Associator {
	return Associator{repoDir: repoDir, imagesDir: imagesDir}
}

// Assign fills the destinations of every media item of post. Item i is
// written to {id}_{i}.{ext}.
func (a Associator) Assign(post *Post) {
	for i := range post.Media {
		abs, rel := a.Slot(post.ID, i, post.Media[i].Ext())
		post.Media[i].Destination = abs
		post.Media[i].RelDestination = rel
	}
}

// Slot returns the absolute and repository-relative path of a media slot.
func (a Associator) Slot(postID int64, index int, ext string) (string, string) {
	name := mediaPrefix(postID) + strconv.Itoa(index) + "." + ext
	rel := path.Join(filepath.ToSlash(a.imagesDir), name)
	return filepath.Join(a.repoDir, filepath.FromSlash(rel)), rel
}

// Abs converts a repository-relative media path to an absolute one.
func (a Associator) Abs(rel string) string {
	return filepath.Join(a.repoDir, filepath.FromSlash(rel))
}

// Dir is the absolute images directory.
func (a Associator) Dir() string {
	return filepath.Join(a.repoDir, a.imagesDir)
}

// LocateExisting lists the repository-relative paths of the media files of
// postID, ordered by slot index. A missing images directory yields none.
func (a Associator) LocateExisting(postID int64) ([]string, error) {
	entries, err := os.ReadDir(a.Dir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	prefix := mediaPrefix(postID)
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		names = append(names, entry.Name())
	}
	slices.SortFunc(names, func(x, y string) int {
		if dx, dy := slotIndex(x, prefix), slotIndex(y, prefix); dx != dy {
			return dx - dy
		}
		return strings.Compare(x, y)
	})

	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, path.Join(filepath.ToSlash(a.imagesDir), name))
	}
	return out, nil
}

func mediaPrefix(postID int64) string {
	return strconv.FormatInt(postID, 10) + "_"
}

func slotIndex(name, prefix string) int {
	rest := strings.TrimPrefix(name, prefix)
	if idx := strings.IndexByte(rest, '.'); idx >= 0 {
		rest = rest[:idx]
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}
