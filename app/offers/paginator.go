package offers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	e "nuclight.org/offers-archiver/pkg/entities"
	"nuclight.org/offers-archiver/pkg/logger"
	"nuclight.org/offers-archiver/pkg/web"
)

const (
	offersPath = "/ds/offer/1.0/me/"

	// WatermarkLayout matches the platform's ISO-8601 timestamps.
	WatermarkLayout = "2006-01-02T15:04:05.000Z"
)

// StopReason explains why pagination ended.
type StopReason string

const (
	StopEmptyPage        StopReason = "empty_page"
	StopShortPage        StopReason = "short_page"
	StopMissingWatermark StopReason = "missing_watermark"
	StopRequestFailed    StopReason = "request_failed"
	StopMalformed        StopReason = "malformed_envelope"
)

// Paginator walks the offers endpoint backwards in time. Each request asks
// for PageSize offers created before the watermark, the next watermark is
// the last offer's latest_price_created. A failed or malformed page ends the
// walk, the offers collected so far are still returned. There are no
// retries.
type Paginator struct {
	// Log is a logger
	Log logger.Logger

	// Client sends the requests
	Client web.HTTPClient

	// Session carries platform credentials and headers
	Session web.Session

	// BaseURL overrides the platform origin, used by tests
	BaseURL string

	// PageSize is the count requested per page
	PageSize int

	// Now returns the starting watermark time, time.Now when nil
	Now func() time.Time
}

// Result is the outcome of one pagination walk.
type Result struct {
	Offers  []e.Offer
	Pages   int
	Reasons []StopReason
}

type envelope struct {
	Data *struct {
		Offers json.RawMessage `json:"offers"`
	} `json:"data"`
}

var errMalformed = errors.New("response has no offers array")

// FetchAll runs the pagination loop until a stopping condition fires.
func (p *Paginator) FetchAll(ctx context.Context) Result {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	watermark := now().UTC().Format(WatermarkLayout)
	log := p.Log.With("page_size", p.PageSize)
	log.Info("starting offers fetch", "watermark", watermark)

	var res Result
	for len(res.Reasons) == 0 {
		res.Pages++
		plog := log.With("page", res.Pages)

		page, err := p.fetchPage(ctx, watermark)
		if err != nil {
			var statusErr *web.StatusError
			switch {
			case errors.As(err, &statusErr):
				plog.Error("offers request failed", "status", statusErr.StatusCode, "body", statusErr.Snippet)
				res.Reasons = append(res.Reasons, StopRequestFailed)
			case errors.Is(err, errMalformed):
				plog.Error("unexpected offers response structure", "error", err)
				res.Reasons = append(res.Reasons, StopMalformed)
			default:
				plog.Error("fetching offers page", "error", err)
				res.Reasons = append(res.Reasons, StopRequestFailed)
			}
			break
		}

		plog.Info("offers page fetched", "count", len(page))

		if len(page) == 0 {
			plog.Info("received 0 offers, stopping")
			res.Reasons = append(res.Reasons, StopEmptyPage)
		} else {
			res.Offers = append(res.Offers, page...)

			next := page[len(page)-1].LatestPriceCreated.String()
			if next == "" {
				plog.Warn("last offer has no latest_price_created, stopping")
				res.Reasons = append(res.Reasons, StopMissingWatermark)
			} else {
				watermark = next
				plog.Debug("watermark advanced", "watermark", watermark)
			}
		}

		if len(page) < p.PageSize {
			plog.Info("short page, stopping", "count", len(page))
			res.Reasons = append(res.Reasons, StopShortPage)
		}
	}

	log.Info("offers fetch finished", "total", len(res.Offers), "pages", res.Pages, "reasons", res.Reasons)

	return res
}

func (p *Paginator) fetchPage(ctx context.Context, watermark string) ([]e.Offer, error) {
	base := p.BaseURL
	if base == "" {
		base = p.Session.Origin()
	}

	u, err := url.Parse(base + offersPath)
	if err != nil {
		return nil, fmt.Errorf("parsing offers url: %w", err)
	}

	q := u.Query()
	q.Set("_path", "/1.0/me/")
	q.Set("l", "en")
	q.Set("type", "all")
	q.Set("count", strconv.Itoa(p.PageSize))
	q.Set("latest_price_created", watermark)
	u.RawQuery = q.Encode()

	req, err := web.NewGet(ctx, u.String())
	if err != nil {
		return nil, err
	}
	p.Session.SetPlatformHeaders(req)

	var env envelope
	if err = web.DoJSON(p.Client, req, &env); err != nil {
		return nil, err
	}

	if env.Data == nil {
		return nil, fmt.Errorf("%w: missing data", errMalformed)
	}

	raw := bytes.TrimSpace(env.Data.Offers)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, errMalformed
	}

	var page []e.Offer
	if err = json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformed, err)
	}

	return page, nil
}
