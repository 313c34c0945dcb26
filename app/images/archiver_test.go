package images

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	e "nuclight.org/offers-archiver/pkg/entities"
	"nuclight.org/offers-archiver/pkg/logger"
	"nuclight.org/offers-archiver/pkg/web"
)

type imageServer struct {
	*httptest.Server
	hits    map[string]int
	queries map[string]string
}

func newImageServer(t *testing.T) *imageServer {
	s := &imageServer{hits: make(map[string]int), queries: make(map[string]string)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits[r.URL.Path]++
		s.queries[r.URL.Path] = r.URL.RawQuery

		u, _ := url.Parse(s.URL)
		assert.Equal(t, u.Hostname(), r.Host)

		assert.Equal(t, "image", r.Header.Get("Sec-Fetch-Dest"))
		assert.Equal(t, "https://www.carousell.sg", r.Header.Get("Referer"))
		assert.Equal(t, "UA", r.Header.Get("User-Agent"))

		if r.URL.Path == "/broken.jpg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		io.WriteString(w, "img:"+r.URL.Path)
	}))
	t.Cleanup(s.Close)
	return s
}

func newArchiver(t *testing.T, server *imageServer, sleeps *[]time.Duration) *Archiver {
	return &Archiver{
		Log:       logger.Discard(),
		Client:    server.Client(),
		Root:      t.TempDir(),
		Referer:   "https://www.carousell.sg",
		UserAgent: "UA",
		Delay:     web.Delay{Min: 200 * time.Millisecond, Max: 800 * time.Millisecond, Rand: func() float64 { return 1 }},
		Sleep: func(_ context.Context, d time.Duration) error {
			*sleeps = append(*sleeps, d)
			return nil
		},
	}
}

func decode[T any](t *testing.T, src string) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal([]byte(src), &out))
	return out
}

func TestLocalPath(t *testing.T) {
	p, err := LocalPath("archive", "https://media.example.com/photos/a/b.jpg?w=200")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("archive", "photos", "a", "b.jpg"), p)

	p, err = LocalPath("archive", "https://media.example.com/../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("archive", "etc", "passwd"), p)

	_, err = LocalPath("archive", "https://media.example.com/")
	require.ErrorIs(t, err, ErrNoPath)

	_, err = LocalPath("archive", "data:image/png;base64,AAAA")
	require.Error(t, err)

	_, err = LocalPath("archive", "::not a url")
	require.Error(t, err)
}

func TestRunDiscoversAndDeduplicates(t *testing.T) {
	server := newImageServer(t)
	var sleeps []time.Duration
	a := newArchiver(t, server, &sleeps)

	offers := decode[[]e.Offer](t, `[
		{"id":1,"user":{"profile":{"image_url":"`+server.URL+`/avatars/seller.jpg"}},"product":{"primary_photo_url":"`+server.URL+`/photos/p1.jpg"}},
		{"id":2,"user":{"profile":{"image_url":"`+server.URL+`/avatars/seller.jpg"}},"product":{"primary_photo_url":"`+server.URL+`/broken.jpg"}}
	]`)
	threads := decode[[]e.Thread](t, `[
		{"offer_id":1,"messages":[
			{"user":{"user_id":"7","profile_url":"`+server.URL+`/static/default.png"},"type":"MESG","created_at":1},
			{"user":{"user_id":"8","profile_url":"`+server.URL+`/avatars/buyer.jpg"},"type":"FILE","created_at":2,
			 "file":{"url":"`+server.URL+`/files/f1.jpg"},
			 "files":[{"url":"`+server.URL+`/files/f1.jpg"},{"url":"`+server.URL+`/files/f2.jpg"}]},
			{"type":"MESG","file":{"url":"`+server.URL+`/files/ignored.jpg"}}
		],"has_next":false}
	]`)

	stats := a.Run(context.Background(), offers, threads)

	assert.Equal(t, Stats{
		Total:      8,
		Downloaded: 5,
		Failed:     1,
		Duplicates: 2,
		UniqueURLs: 6,
		Bytes:      stats.Bytes,
	}, stats)
	assert.Positive(t, stats.Bytes)

	assert.Equal(t, 1, server.hits["/avatars/seller.jpg"])
	assert.Equal(t, 1, server.hits["/files/f1.jpg"])
	assert.Zero(t, server.hits["/static/default.png"])
	assert.Zero(t, server.hits["/files/ignored.jpg"])

	data, err := os.ReadFile(filepath.Join(a.Root, "photos", "p1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "img:/photos/p1.jpg", string(data))

	_, err = os.Stat(filepath.Join(a.Root, "broken.jpg"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	// one pause per successful download, at the upper bound
	assert.Len(t, sleeps, 5)
	for _, d := range sleeps {
		assert.Equal(t, 800*time.Millisecond, d)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	server := newImageServer(t)
	var sleeps []time.Duration
	a := newArchiver(t, server, &sleeps)

	offers := decode[[]e.Offer](t, `[{"id":1,"product":{"primary_photo_url":"`+server.URL+`/photos/p1.jpg?size=large"}}]`)

	first := a.Run(context.Background(), offers, nil)
	assert.Equal(t, 1, first.Downloaded)

	second := a.Run(context.Background(), offers, nil)
	assert.Equal(t, 0, second.Downloaded)
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, 1, second.UniqueURLs)

	assert.Equal(t, 1, server.hits["/photos/p1.jpg"])
	assert.Equal(t, "size=large", server.queries["/photos/p1.jpg"])
	assert.Len(t, sleeps, 1)
}

func TestAcquireInvalidURL(t *testing.T) {
	server := newImageServer(t)
	var sleeps []time.Duration
	p := newArchiver(t, server, &sleeps).NewPass()

	assert.Equal(t, Outcome(""), p.Acquire(context.Background(), ""))
	assert.Equal(t, OutcomeInvalid, p.Acquire(context.Background(), "not-a-url"))
	assert.Equal(t, OutcomeInvalid, p.Acquire(context.Background(), server.URL))

	stats := p.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Invalid)
	assert.Zero(t, stats.UniqueURLs)
	assert.Empty(t, server.hits)
}

func TestPassStopsWhenCanceled(t *testing.T) {
	server := newImageServer(t)
	var sleeps []time.Duration
	a := newArchiver(t, server, &sleeps)

	ctx, cancel := context.WithCancel(context.Background())
	a.Sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	offers := decode[[]e.Offer](t, `[
		{"id":1,"product":{"primary_photo_url":"`+server.URL+`/photos/p1.jpg"}},
		{"id":2,"product":{"primary_photo_url":"`+server.URL+`/photos/p2.jpg"}}
	]`)
	threads := decode[[]e.Thread](t, `[{"offer_id":1,"messages":[{"user":{"user_id":"8","profile_url":"`+server.URL+`/avatars/b.jpg"}}]}]`)

	stats := a.Run(ctx, offers, threads)

	assert.Equal(t, Stats{Total: 1, Downloaded: 1, UniqueURLs: 1, Bytes: stats.Bytes}, stats)
	assert.Equal(t, 1, server.hits["/photos/p1.jpg"])
	assert.Zero(t, server.hits["/photos/p2.jpg"])
	assert.Zero(t, server.hits["/avatars/b.jpg"])

	p := a.NewPass()
	assert.Equal(t, OutcomeCanceled, p.Acquire(ctx, server.URL+"/photos/p2.jpg"))
	assert.Zero(t, p.Stats().Total)
}
