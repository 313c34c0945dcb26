package viewer

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"nuclight.org/offers-archiver/app/images"
)

const placeholderPath = "/static/placeholder.svg"

// assets resolves remote image URLs to archived copies. Only paths some
// document refers to are served, the archive root may hold other files.
type assets struct {
	root    string
	allowed map[string]struct{}
}

func newAssets(root string, docs *Documents) *assets {
	a := &assets{
		root:    root,
		allowed: make(map[string]struct{}),
	}

	for _, offer := range docs.Offers {
		a.allow(images.OfferURLs(offer))
	}

	for _, thread := range docs.Threads {
		for _, msg := range thread.Messages {
			a.allow(images.MessageURLs(msg))
		}
	}

	return a
}

func (a *assets) allow(urls []string) {
	for _, u := range urls {
		if rel, err := images.RelativePath(u); err == nil {
			a.allowed[rel] = struct{}{}
		}
	}
}

// src returns the archive URL of rawURL when the file is archived, rawURL
// itself otherwise and the placeholder when there is no URL at all.
func (a *assets) src(rawURL string) string {
	if rawURL == "" {
		return placeholderPath
	}

	if rel, ok := a.archived(rawURL); ok {
		return "/archive/" + rel
	}

	return rawURL
}

func (a *assets) archived(rawURL string) (string, bool) {
	rel, err := images.RelativePath(rawURL)
	if err != nil {
		return "", false
	}

	if _, ok := a.allowed[rel]; !ok {
		return "", false
	}

	info, err := os.Stat(a.file(rel))
	if err != nil || info.IsDir() {
		return "", false
	}

	return rel, true
}

// lookup maps a request path below /archive/ to a file on disk.
func (a *assets) lookup(rel string) (string, error) {
	if _, ok := a.allowed[rel]; !ok {
		return "", fs.ErrNotExist
	}

	path := a.file(rel)
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", errors.New("is a directory")
	}

	return path, nil
}

func (a *assets) file(rel string) string {
	return filepath.Join(a.root, filepath.FromSlash(rel))
}

// image is the data of one <img> element.
type image struct {
	Src    string
	Remote string
	Alt    string
	Class  string
}

func (a *assets) image(rawURL, alt, class string) image {
	return image{
		Src:    a.src(rawURL),
		Remote: rawURL,
		Alt:    alt,
		Class:  class,
	}
}
