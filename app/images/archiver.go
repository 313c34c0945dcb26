package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	e "nuclight.org/offers-archiver/pkg/entities"
	"nuclight.org/offers-archiver/pkg/logger"
	"nuclight.org/offers-archiver/pkg/web"
)

const imageAccept = "image/webp,image/avif,image/jxl,image/heic,image/heic-sequence,video/*;q=0.8,image/png,image/svg+xml,image/*;q=0.8,*/*;q=0.5"

type Outcome string

const (
	OutcomeDownloaded Outcome = "downloaded"
	OutcomeExists     Outcome = "exists"
	OutcomeDuplicate  Outcome = "already_processed"
	OutcomeFailed     Outcome = "failed"
	OutcomeInvalid    Outcome = "invalid"
	OutcomeCanceled   Outcome = "canceled"
)

// Stats are the counters of one archiving pass.
type Stats struct {
	Total      int
	Downloaded int
	Skipped    int
	Failed     int
	Duplicates int
	Invalid    int
	UniqueURLs int
	Bytes      int64
}

// Archiver downloads every image referenced by offers and messages into a
// directory tree mirroring the remote URL paths. Each URL is fetched at most
// once per pass, and never when its file is already on disk, so re-runs
// only fetch what is missing. Download failures are counted, never returned.
type Archiver struct {
	// Log is a logger
	Log logger.Logger

	// Client sends the requests
	Client web.HTTPClient

	// Root is the archive directory
	Root string

	// Referer is sent with every image request, the platform origin
	Referer string

	// UserAgent is the browser identity sent with every image request
	UserAgent string

	// Delay is the pause after each successful download
	Delay web.Delay

	// Sleep waits out Delay, web.Sleep when nil
	Sleep web.Sleeper
}

// Pass is the state of one archiving run: the URLs seen so far and the
// counters. It is not safe for concurrent use.
type Pass struct {
	a     *Archiver
	seen  map[string]struct{}
	stats Stats
}

func (a *Archiver) NewPass() *Pass {
	return &Pass{
		a:    a,
		seen: make(map[string]struct{}),
	}
}

// Run archives the images of offers, then of threads, in a fresh pass.
func (a *Archiver) Run(ctx context.Context, offers []e.Offer, threads []e.Thread) Stats {
	p := a.NewPass()
	p.Offers(ctx, offers)
	p.Threads(ctx, threads)
	return p.Stats()
}

func (p *Pass) Stats() Stats {
	s := p.stats
	s.UniqueURLs = len(p.seen)
	return s
}

// Offers archives seller avatars and product photos.
func (p *Pass) Offers(ctx context.Context, offers []e.Offer) {
	p.a.Log.Info("processing offers for images", "count", len(offers))

	for _, offer := range offers {
		if p.canceled(ctx) {
			return
		}
		for _, u := range OfferURLs(offer) {
			p.Acquire(ctx, u)
		}
	}
}

// Threads archives sender avatars and file attachments of every message.
func (p *Pass) Threads(ctx context.Context, threads []e.Thread) {
	p.a.Log.Info("processing message threads for images", "count", len(threads))

	for _, thread := range threads {
		for _, msg := range thread.Messages {
			if p.canceled(ctx) {
				return
			}
			for _, u := range MessageURLs(msg) {
				p.Acquire(ctx, u)
			}
		}
	}
}

func (p *Pass) canceled(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		p.a.Log.Warn("stopping image download", "error", err)
		return true
	}
	return false
}

// Acquire makes sure rawURL is present in the archive. Empty URLs are
// ignored, nothing is counted once ctx is done.
func (p *Pass) Acquire(ctx context.Context, rawURL string) Outcome {
	if rawURL == "" {
		return ""
	}
	if ctx.Err() != nil {
		return OutcomeCanceled
	}

	p.stats.Total++
	log := p.a.Log.With("url", rawURL)

	localPath, err := LocalPath(p.a.Root, rawURL)
	if err != nil {
		log.Warn("skipping image url", "error", err)
		p.stats.Invalid++
		return OutcomeInvalid
	}

	if _, ok := p.seen[rawURL]; ok {
		p.stats.Duplicates++
		return OutcomeDuplicate
	}
	p.seen[rawURL] = struct{}{}

	if _, err = os.Stat(localPath); err == nil {
		log.Debug("image already archived", "path", localPath)
		p.stats.Skipped++
		return OutcomeExists
	} else if !errors.Is(err, fs.ErrNotExist) {
		log.Error("checking archived image", "path", localPath, "error", err)
		p.stats.Failed++
		return OutcomeFailed
	}

	n, err := p.a.download(ctx, rawURL, localPath)
	if err != nil {
		log.Error("downloading image", "error", err)
		p.stats.Failed++
		return OutcomeFailed
	}

	p.stats.Downloaded++
	p.stats.Bytes += n
	log.Info("image saved", "path", localPath, "size", humanize.Bytes(uint64(n)))

	sleep := p.a.Sleep
	if sleep == nil {
		sleep = web.Sleep
	}
	if err := sleep(ctx, p.a.Delay.Next()); err != nil {
		log.Debug("pause interrupted", "error", err)
	}

	return OutcomeDownloaded
}

func (a *Archiver) download(ctx context.Context, rawURL, localPath string) (int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("parsing url: %w", err)
	}

	req, err := web.NewGet(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	a.setImageHeaders(req, u.Hostname())

	res, err := a.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("doing request: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if !web.IsSuccess(res.StatusCode) {
		return 0, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	if err = os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return 0, fmt.Errorf("creating directory: %w", err)
	}

	// a partial file would be mistaken for an archived one on the next run
	tmp := localPath + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("creating file: %w", err)
	}

	n, err := io.Copy(out, res.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("writing file: %w", err)
	}

	if err = os.Rename(tmp, localPath); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("moving file into place: %w", err)
	}

	return n, nil
}

func (a *Archiver) setImageHeaders(req *http.Request, host string) {
	req.Host = host
	req.Header.Set("Accept", imageAccept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Priority", "u=5, i")
	req.Header.Set("Referer", a.Referer)
	req.Header.Set("Sec-Fetch-Dest", "image")
	req.Header.Set("Sec-Fetch-Mode", "no-cors")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("User-Agent", a.UserAgent)
}

// LogSummary reports the counters of a pass.
func LogSummary(log logger.Logger, s Stats) {
	log.Info("image archive summary",
		"unique_urls", s.UniqueURLs,
		"total", s.Total,
		"downloaded", s.Downloaded,
		"skipped_existing", s.Skipped,
		"already_processed", s.Duplicates,
		"failed", s.Failed,
		"invalid", s.Invalid,
		"bytes", humanize.Bytes(uint64(s.Bytes)),
	)
}
