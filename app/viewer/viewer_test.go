package viewer

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nuclight.org/offers-archiver/pkg/logger"
)

const (
	offersDoc = `[
  {"id":1,"user":{"username":"seller","profile":{"image_url":"https://media.example.com/avatars/s.jpg"}},
   "latest_price_message":"Deal","latest_price_created":"2024-03-10T08:05:00Z",
   "product":{"title":"Lamp","primary_photo_url":"https://media.example.com/photos/p1.jpg?w=640","price_formatted":"20","currency_symbol":"$"}},
  {"id":2,"user":{"username":"other"},"product":{"title":"<b>Chair</b>"}}
]`
	messagesDoc = `[
  {"offer_id":1,"messages":[
    {"user":{"user_id":"me"},"created_at":1710057600000,"message":"hello"},
    {"user":{"user_id":"seller"},"created_at":1710061200000,"message":"hi back"},
    {"user":{"user_id":"seller"},"message":"broken"}
  ],"has_next":false},
  {"offer_id":2,"messages":[{"user":{"user_id":"me"},"created_at":1710057600000,"message":"<script>x</script>"}],"has_next":false}
]`
)

type fixture struct {
	root   string
	server *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	root := t.TempDir()
	write := func(rel, content string) {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}

	write("offers.json", offersDoc)
	write("offers_all_messages.json", messagesDoc)
	write("photos/p1.jpg", "jpeg bytes")
	write("config.json", `{"cookie":"secret"}`)

	docs, err := Load(logger.Discard(), filepath.Join(root, "offers.json"), filepath.Join(root, "offers_all_messages.json"))
	require.NoError(t, err)

	server, err := New(Options{
		Log:       logger.Discard(),
		Documents: docs,
		ImageRoot: root,
		Location:  time.UTC,
		Now:       func() time.Time { return time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	return &fixture{root: root, server: server}
}

func (f *fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func document(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	return doc
}

func TestIndexRedirectsToFirstChat(t *testing.T) {
	rec := newFixture(t).get(t, "/")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/chats/1", rec.Header().Get("Location"))
}

func TestChatPage(t *testing.T) {
	rec := newFixture(t).get(t, "/chats/1")
	require.Equal(t, http.StatusOK, rec.Code)

	doc := document(t, rec)

	previews := doc.Find(".chat-preview")
	assert.Equal(t, 2, previews.Length())
	assert.Equal(t, "1", doc.Find(".chat-preview.active").AttrOr("data-offer-id", ""))
	assert.Equal(t, "Deal", strings.TrimSpace(previews.First().Find(".message-preview").Text()))
	assert.Equal(t, "8:05 AM", strings.TrimSpace(previews.First().Find(".chat-timestamp").Text()))
	assert.Equal(t, "No messages yet", strings.TrimSpace(previews.Eq(1).Find(".message-preview").Text()))

	details := doc.Find("#item-details-container")
	assert.Equal(t, "Lamp", details.Find("h2").Text())
	assert.Equal(t, "$20", details.Find(".price").Text())
	assert.Equal(t, "Location not specified", details.Find(".location").Text())
	assert.Equal(t, "Lamp", details.Find(".description p").Text())

	// archived locally
	assert.Equal(t, "/archive/photos/p1.jpg", details.Find(".item-image").AttrOr("src", ""))
	assert.Equal(t, "https://media.example.com/photos/p1.jpg?w=640", details.Find(".item-image").AttrOr("data-remote", ""))

	// not archived, remote first
	assert.Equal(t, "https://media.example.com/avatars/s.jpg", details.Find(".small-avatar").AttrOr("src", ""))

	messages := doc.Find("#messages-container .message")
	require.Equal(t, 2, messages.Length())
	assert.True(t, messages.Eq(0).HasClass("sent"))
	assert.Equal(t, "hello", messages.Eq(0).Find(".message-bubble").Text())
	assert.True(t, messages.Eq(1).HasClass("received"))
	assert.Equal(t, "9:00 AM", messages.Eq(1).Find(".message-timestamp").Text())

	assert.Equal(t, 1, doc.Find(".date-separator").Length())
	assert.Equal(t, "Sunday, 10 March 2024", doc.Find(".date-separator").Text())
}

func TestChatPageEscapesContent(t *testing.T) {
	rec := newFixture(t).get(t, "/chats/2")
	require.Equal(t, http.StatusOK, rec.Code)

	doc := document(t, rec)

	assert.Equal(t, "<b>Chair</b>", doc.Find("#item-details-container h2").Text())
	assert.Zero(t, doc.Find("#item-details-container h2 b").Length())
	assert.Equal(t, "<script>x</script>", doc.Find(".message-bubble").Text())

	// no photo at all
	assert.Equal(t, placeholderPath, doc.Find(".item-image").AttrOr("src", ""))
}

func TestUnknownChat(t *testing.T) {
	f := newFixture(t)

	for _, target := range []string{"/chats/99", "/chats/abc"} {
		rec := f.get(t, target)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.Contains(t, document(t, rec).Find(".error").Text(), "Could not load chat details.", target)
	}
}

func TestArchiveServesReferencedFilesOnly(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/archive/photos/p1.jpg")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jpeg bytes", rec.Body.String())

	assert.Equal(t, http.StatusNotFound, f.get(t, "/archive/config.json").Code)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/archive/avatars/s.jpg").Code)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/archive/photos").Code)
}

func TestStaticPlaceholder(t *testing.T) {
	rec := newFixture(t).get(t, placeholderPath)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<svg")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	offersPath := filepath.Join(dir, "offers.json")
	require.NoError(t, os.WriteFile(offersPath, []byte(offersDoc), 0644))

	docs, err := Load(logger.Discard(), offersPath, filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Len(t, docs.Offers, 2)
	assert.Empty(t, docs.Threads)

	_, err = Load(logger.Discard(), filepath.Join(dir, "missing.json"), offersPath)
	require.Error(t, err)
}

func TestIndexWithoutOffers(t *testing.T) {
	server, err := New(Options{Log: logger.Discard(), Documents: &Documents{}, ImageRoot: t.TempDir()})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No chats found.")
}
