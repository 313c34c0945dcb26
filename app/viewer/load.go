package viewer

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
	"nuclight.org/offers-archiver/app/storage"
	e "nuclight.org/offers-archiver/pkg/entities"
	"nuclight.org/offers-archiver/pkg/logger"
)

// Documents are the two archive documents the viewer renders.
type Documents struct {
	Offers  []e.Offer
	Threads []e.Thread
}

// Load reads both documents concurrently. The offers document is required,
// a missing messages document only leaves every chat empty.
func Load(log logger.Logger, offersPath, messagesPath string) (*Documents, error) {
	var (
		docs Documents
		g    errgroup.Group
	)

	g.Go(func() error {
		offers, err := storage.ReadOffers(offersPath)
		if err != nil {
			return fmt.Errorf("loading offers: %w", err)
		}
		docs.Offers = offers
		return nil
	})

	g.Go(func() error {
		threads, err := storage.ReadThreads(messagesPath)
		if errors.Is(err, storage.ErrNotFound) {
			log.Warn("messages document not found, chats will be empty", "path", messagesPath)
			return nil
		}
		if err != nil {
			return fmt.Errorf("loading messages: %w", err)
		}
		docs.Threads = threads
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &docs, nil
}
