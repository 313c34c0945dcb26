package viewer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"nuclight.org/offers-archiver/app/reconcile"
	"nuclight.org/offers-archiver/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Server renders the archive as a chat client: the chat list, the details
// of the selected listing and its messages grouped by day.
type Server struct {
	echo   *echo.Echo
	log    logger.Logger
	index  *reconcile.Index
	assets *assets
	now    func() time.Time
}

// Options configure a Server.
type Options struct {
	// Log is a logger
	Log logger.Logger

	// Documents are the loaded offers and messages
	Documents *Documents

	// ImageRoot is the image archive directory
	ImageRoot string

	// Location groups messages by local date, time.Local when nil
	Location *time.Location

	// Now anchors chat list timestamps, time.Now when nil
	Now func() time.Time
}

func New(opts Options) (*Server, error) {
	r, err := newRenderer()
	if err != nil {
		return nil, err
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = r

	s := &Server{
		echo:   e,
		log:    opts.Log,
		index:  reconcile.New(opts.Documents.Offers, opts.Documents.Threads, opts.Location),
		assets: newAssets(opts.ImageRoot, opts.Documents),
		now:    now,
	}

	if me, ok := s.index.Me(); ok {
		s.log.Info("account owner inferred", "user_id", me)
	} else {
		s.log.Info("no user appears in more than one chat, every message is shown as received")
	}
	if n := s.index.SkippedThreads(); n > 0 {
		s.log.Warn("skipped invalid message threads", "count", n)
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.log.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	s.echo.GET("/", s.handleIndex)
	s.echo.GET("/chats/:id", s.handleChat)
	s.echo.GET("/archive/*", s.handleArchive)
	s.echo.StaticFS("/static", staticFiles())
}

// Handler exposes the routes, for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(addr)
	}()

	s.log.Info("viewer listening", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	return nil
}

func (s *Server) handleIndex(c echo.Context) error {
	offers := s.index.Offers()
	if len(offers) == 0 {
		return c.Render(http.StatusOK, "page.html", page{})
	}
	return c.Redirect(http.StatusFound, "/chats/"+strconv.FormatInt(offers[0].ID, 10))
}

func (s *Server) handleChat(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return s.notFound(c, 0)
	}

	chat, ok := s.index.Chat(id)
	if !ok {
		return s.notFound(c, id)
	}

	if chat.Malformed > 0 {
		s.log.Debug("skipped malformed messages", "offer_id", id, "count", chat.Malformed)
	}

	return c.Render(http.StatusOK, "page.html", page{
		Chats:    s.chatLinks(id),
		Selected: s.chatView(chat),
	})
}

func (s *Server) notFound(c echo.Context, id int64) error {
	return c.Render(http.StatusNotFound, "page.html", page{
		Chats: s.chatLinks(id),
		Error: "Could not load chat details.",
	})
}

func (s *Server) handleArchive(c echo.Context) error {
	raw, err := url.PathUnescape(c.Param("*"))
	if err != nil {
		return echo.ErrNotFound
	}

	rel := strings.TrimPrefix(path.Clean("/"+raw), "/")
	file, err := s.assets.lookup(rel)
	if err != nil {
		return echo.ErrNotFound
	}

	return c.File(file)
}
