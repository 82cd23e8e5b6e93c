package media

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Metadata is passed to the media host alongside every upload.
type Metadata struct {
	Folder  string
	Quality string
	Format  string
	Tags    []string
}

// Host is the remote media service that turns a local reference into a
// durable URL.
type Host interface {
	Upload(ctx context.Context, localPath string, meta Metadata) (string, error)
	// Ready reports whether the host can accept uploads.
	Ready(ctx context.Context) error
}

// LooksLikeDurableURL reports whether ref is already an absolute http(s) URL.
func LooksLikeDurableURL(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// LocalResolver maps a reference such as "images/can.png" or
// "file:///srv/media/can.png" onto a readable file path. When Root is set,
// a reference must stay inside it, symlinks included.
type LocalResolver struct {
	Root string
}

// Resolve returns the path of ref and verifies it is a regular file.
func (r LocalResolver) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty reference")
	}

	path := ref
	if strings.HasPrefix(ref, "file://") {
		u, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("invalid file reference: %w", err)
		}
		path = u.Path
	} else if strings.Contains(ref, "://") {
		return "", fmt.Errorf("unsupported reference scheme")
	}

	if r.Root == "" {
		return statRegular(filepath.Clean(path))
	}

	rel, err := r.relativeToRoot(path)
	if err != nil {
		return "", err
	}
	root, err := os.OpenRoot(r.Root)
	if err != nil {
		return "", fmt.Errorf("media root unavailable: %w", err)
	}
	defer root.Close()

	// os.Root also refuses symlinks that resolve outside the root
	info, err := root.Stat(rel)
	if err != nil {
		return "", fmt.Errorf("local file not found: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", rel)
	}
	return filepath.Join(r.Root, rel), nil
}

func (r LocalResolver) relativeToRoot(path string) (string, error) {
	rel := filepath.Clean(path)
	if filepath.IsAbs(path) {
		root, err := filepath.Abs(r.Root)
		if err != nil {
			return "", fmt.Errorf("media root unavailable: %w", err)
		}
		if rel, err = filepath.Rel(root, path); err != nil {
			return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
		}
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return rel, nil
}

func statRegular(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("local file not found: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", path)
	}
	return path, nil
}
