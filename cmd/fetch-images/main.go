package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"nuclight.org/offers-archiver/app/images"
	"nuclight.org/offers-archiver/app/storage"
	"nuclight.org/offers-archiver/pkg/config"
	"nuclight.org/offers-archiver/pkg/logger"
	"nuclight.org/offers-archiver/pkg/region"
	"nuclight.org/offers-archiver/pkg/web"
)

var opts struct {
	Config string `long:"config" env:"ARCHIVER_CONFIG" default:"config.json" description:"path to the JSON config file"`

	Args struct {
		Offers   string `positional-arg-name:"offers" description:"offers document, outputOffers from config when omitted"`
		Messages string `positional-arg-name:"messages" description:"messages document, outputMessages from config when omitted"`
	} `positional-args:"yes"`
}

var Revision = "dev"

func main() {
	_, err := flags.Parse(&opts)
	if err != nil {
		os.Exit(1)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		logger.Fatal(logger.NewLogger(false), "loading config", err)
	}

	log := logger.NewLogger(cfg.Debug)
	log.Info("starting image download", "revision", Revision)

	if err = logger.SetupSentry(cfg.SentryDSN, Revision); err != nil {
		log.Warn("error reporting disabled", "error", err)
	}

	if err = cfg.Validate(false); err != nil {
		logger.Fatal(log, "validating config", err)
	}

	host, err := region.Resolve(cfg.CountryCode)
	if err != nil {
		logger.Fatal(log, "resolving region", err)
	}

	offersPath, messagesPath := cfg.OutputOffers, cfg.OutputMessages
	if opts.Args.Offers != "" {
		offersPath = opts.Args.Offers
	}
	if opts.Args.Messages != "" {
		messagesPath = opts.Args.Messages
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	minDelay, maxDelay := cfg.ImageDelay()
	archiver := &images.Archiver{
		Log:       log,
		Client:    &http.Client{Timeout: cfg.RequestTimeout()},
		Root:      cfg.ImageRoot,
		Referer:   web.Session{Host: host}.Origin() + "/",
		UserAgent: cfg.UserAgent,
		Delay:     web.Delay{Min: minDelay, Max: maxDelay},
	}
	pass := archiver.NewPass()

	offers, err := storage.ReadOffers(offersPath)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		log.Warn("offers document not found, skipping", "path", offersPath)
	case err != nil:
		logger.Fatal(log, "reading offers document", err)
	default:
		pass.Offers(ctx, offers)
	}

	threads, err := storage.ReadThreads(messagesPath)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		log.Warn("messages document not found, skipping", "path", messagesPath)
	case err != nil:
		logger.Fatal(log, "reading messages document", err)
	default:
		pass.Threads(ctx, threads)
	}

	images.LogSummary(log, pass.Stats())
}
