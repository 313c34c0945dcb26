package messaging

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	e "nuclight.org/offers-archiver/pkg/entities"
	"nuclight.org/offers-archiver/pkg/logger"
	"nuclight.org/offers-archiver/pkg/web"
)

const (
	tokenPath = "/ds/api/1.0/chat/token/?_path=%2F1.0%2Fchat%2Ftoken%2F&l=en"

	// DefaultAPIBase is the backend URL pattern, %s is the tenant address.
	DefaultAPIBase = "https://api-%s.sendbird.com"

	sdkVersion = "4.17.3"
)

var ErrTokenMissing = errors.New("token not found in response")

// Bridge moves chat history from the messaging backend into threads keyed by
// offer. The platform session is exchanged once for a backend access token,
// then every offer channel is fetched in turn with a randomized pause in
// between. A failing channel becomes an empty thread, only a failed token
// exchange stops the run.
type Bridge struct {
	// Log is a logger
	Log logger.Logger

	// Client sends the requests
	Client web.HTTPClient

	// Session carries platform credentials and headers
	Session web.Session

	// SessionKey is the messaging backend session key
	SessionKey string

	// BaseURL overrides the platform origin, used by tests
	BaseURL string

	// APIBase is the backend URL pattern, DefaultAPIBase when empty
	APIBase string

	// Delay is the pause between two channel fetches
	Delay web.Delay

	// Sleep waits out Delay, web.Sleep when nil
	Sleep web.Sleeper

	// Now stamps backend requests, time.Now when nil
	Now func() time.Time
}

// Stats counts the outcome of a FetchAll pass.
type Stats struct {
	Offers   int
	Fetched  int
	Failed   int
	Skipped  int
	Messages int
}

// ChannelPage is one page of channel history as returned by the backend.
type ChannelPage struct {
	Messages []e.Message `json:"messages"`
	HasNext  bool        `json:"has_next"`
}

type tokenEnvelope struct {
	Data *struct {
		Token string `json:"token"`
	} `json:"data"`
}

// Run exchanges the token and fetches all channels. The returned error is
// fatal for the run.
func (b *Bridge) Run(ctx context.Context, offers []e.Offer) ([]e.Thread, Stats, error) {
	token, err := b.ExchangeToken(ctx)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("exchanging token: %w", err)
	}

	threads, stats := b.FetchAll(ctx, token, offers)
	return threads, stats, nil
}

// ExchangeToken trades the platform session for a backend access token.
func (b *Bridge) ExchangeToken(ctx context.Context) (string, error) {
	req, err := web.NewGet(ctx, b.platformBase()+tokenPath)
	if err != nil {
		return "", err
	}
	b.Session.SetPlatformHeaders(req)

	b.Log.Info("requesting messaging token")

	var env tokenEnvelope
	if err = web.DoJSON(b.Client, req, &env); err != nil {
		return "", err
	}

	if env.Data == nil || env.Data.Token == "" {
		return "", ErrTokenMissing
	}

	b.Log.Info("messaging token retrieved")
	return env.Data.Token, nil
}

// FetchAll fetches one thread per offer with a channel identifier, in offer
// order. Offers without a channel are skipped and get no thread.
func (b *Bridge) FetchAll(ctx context.Context, token string, offers []e.Offer) ([]e.Thread, Stats) {
	sleep := b.Sleep
	if sleep == nil {
		sleep = web.Sleep
	}

	stats := Stats{Offers: len(offers)}
	threads := make([]e.Thread, 0, len(offers))

	for i, offer := range offers {
		log := b.Log.With("offer_id", offer.ID, "n", i+1, "of", len(offers))

		channel := offer.ChannelURL.String()
		if channel == "" {
			log.Warn("offer has no channel_url, skipping")
			stats.Skipped++
			continue
		}

		thread := e.Thread{OfferID: offer.ID, Messages: []e.Message{}}

		page, err := b.FetchChannel(ctx, token, channel)
		if err != nil {
			log.Error("fetching channel messages", "channel", channel, "error", err)
			stats.Failed++
		} else {
			if page.Messages != nil {
				thread.Messages = page.Messages
			}
			thread.HasNext = page.HasNext
			stats.Fetched++
			stats.Messages += len(thread.Messages)
			log.Info("channel messages fetched", "count", len(thread.Messages), "has_next", thread.HasNext)
		}

		threads = append(threads, thread)

		if i == len(offers)-1 {
			break
		}

		d := b.Delay.Next()
		log.Debug("waiting before next channel", "delay", d)
		if err = sleep(ctx, d); err != nil {
			log.Warn("stopping channel fetch", "error", err)
			break
		}
	}

	b.Log.Info("channel fetch finished",
		"offers", stats.Offers,
		"fetched", stats.Fetched,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
		"messages", stats.Messages,
	)

	return threads, stats
}

// FetchChannel retrieves the latest page of a channel's history.
func (b *Bridge) FetchChannel(ctx context.Context, token, channelURL string) (*ChannelPage, error) {
	tenant, err := ParseTenant(channelURL)
	if err != nil {
		return nil, err
	}

	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	ts := strconv.FormatInt(now().UnixMilli(), 10)

	req, err := web.NewGet(ctx, b.channelURL(tenant, channelURL, ts))
	if err != nil {
		return nil, err
	}
	b.setBackendHeaders(req, tenant, token, ts)

	var page ChannelPage
	if err = web.DoJSON(b.Client, req, &page); err != nil {
		return nil, err
	}

	return &page, nil
}

func (b *Bridge) channelURL(tenant Tenant, channelURL, ts string) string {
	pattern := b.APIBase
	if pattern == "" {
		pattern = DefaultAPIBase
	}

	query := []string{
		"is_sdk=true",
		"include=true",
		"reverse=true",
		"message_ts=" + ts,
		"message_type",
		"include_reply_type=none",
		"with_sorted_meta_array=true",
		"include_reactions_summary=true",
		"include_thread_info=true",
		"include_parent_message_info=true",
		"show_subchannel_message_only=false",
		"include_poll_details=true",
		"checking_has_next=true",
		"checking_continuous_messages=false",
		"sdk_source=external_collection",
	}

	return fmt.Sprintf(pattern, tenant.Address) +
		"/v3/group_channels/" + url.PathEscape(channelURL) + "/messages?" + strings.Join(query, "&")
}

func (b *Bridge) setBackendHeaders(req *http.Request, tenant Tenant, token, ts string) {
	ua := b.Session.UserAgent
	origin := b.Session.Origin()

	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Access-Token", token)
	req.Header.Set("App-Id", tenant.AppID)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Origin", origin)
	req.Header.Set("Referer", origin+"/")
	req.Header.Set("Request-Sent-Timestamp", ts)
	req.Header.Set("SB-SDK-User-Agent", "main_sdk_info=chat/js/"+sdkVersion+"&device_os_platform=web&os_version="+ua)
	req.Header.Set("SB-User-Agent", "JS/c"+sdkVersion+"///oweb")
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("SendBird", "JS,"+ua+","+sdkVersion+","+tenant.AppID)
	req.Header.Set("Session-Key", b.SessionKey)
	req.Header.Set("User-Agent", ua)
}

func (b *Bridge) platformBase() string {
	if b.BaseURL != "" {
		return b.BaseURL
	}
	return b.Session.Origin()
}
