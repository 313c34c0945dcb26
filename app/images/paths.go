package images

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

var ErrNoPath = errors.New("url has no path")

// LocalPath maps an image URL to its place in the archive: the URL path,
// query dropped, below root. The path is cleaned first so it never leaves root.
func LocalPath(root, rawURL string) (string, error) {
	rel, err := RelativePath(rawURL)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, filepath.FromSlash(rel)), nil
}

// RelativePath returns the slash-separated archive path of an image URL,
// without a leading slash.
func RelativePath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing image url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported image url scheme %q", u.Scheme)
	}

	clean := strings.TrimPrefix(path.Clean("/"+u.Path), "/")
	if clean == "" {
		return "", ErrNoPath
	}

	return clean, nil
}
