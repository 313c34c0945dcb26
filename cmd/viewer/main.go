package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"nuclight.org/offers-archiver/app/viewer"
	"nuclight.org/offers-archiver/pkg/config"
	"nuclight.org/offers-archiver/pkg/logger"
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
	log.Info("starting viewer", "revision", Revision)

	if err = logger.SetupSentry(cfg.SentryDSN, Revision); err != nil {
		log.Warn("error reporting disabled", "error", err)
	}

	offersPath, messagesPath := cfg.OutputOffers, cfg.OutputMessages
	if opts.Args.Offers != "" {
		offersPath = opts.Args.Offers
	}
	if opts.Args.Messages != "" {
		messagesPath = opts.Args.Messages
	}

	docs, err := viewer.Load(log, offersPath, messagesPath)
	if err != nil {
		logger.Fatal(log, "loading documents", err)
	}
	log.Info("documents loaded", "offers", len(docs.Offers), "threads", len(docs.Threads))

	server, err := viewer.New(viewer.Options{
		Log:       log,
		Documents: docs,
		ImageRoot: cfg.ImageRoot,
	})
	if err != nil {
		logger.Fatal(log, "creating viewer", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = server.Run(ctx, cfg.ViewerAddr); err != nil {
		logger.Fatal(log, "running viewer", err)
	}

	log.Info("viewer stopped")
}
