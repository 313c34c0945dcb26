package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	e "nuclight.org/offers-archiver/pkg/entities"
)

// ErrNotFound is returned when a document file does not exist.
var ErrNotFound = errors.New("document not found")

func ReadOffers(path string) ([]e.Offer, error) {
	var offers []e.Offer
	if err := readDocument(path, &offers); err != nil {
		return nil, err
	}
	return offers, nil
}

func WriteOffers(path string, offers []e.Offer) error {
	if offers == nil {
		offers = []e.Offer{}
	}
	return writeDocument(path, offers)
}

func ReadThreads(path string) ([]e.Thread, error) {
	var threads []e.Thread
	if err := readDocument(path, &threads); err != nil {
		return nil, err
	}
	return threads, nil
}

func WriteThreads(path string, threads []e.Thread) error {
	if threads == nil {
		threads = []e.Thread{}
	}
	for i := range threads {
		if threads[i].Messages == nil {
			threads[i].Messages = []e.Message{}
		}
	}
	return writeDocument(path, threads)
}

func readDocument(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if err = json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	return nil
}

// writeDocument writes v as indented JSON, the whole file at once.
func writeDocument(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err = os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", path, err)
		}
	}

	tmp := path + ".tmp"
	if err = os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}

	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}

	return nil
}
