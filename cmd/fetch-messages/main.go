package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"nuclight.org/offers-archiver/app/messaging"
	"nuclight.org/offers-archiver/app/storage"
	"nuclight.org/offers-archiver/pkg/config"
	"nuclight.org/offers-archiver/pkg/logger"
	"nuclight.org/offers-archiver/pkg/region"
	"nuclight.org/offers-archiver/pkg/web"
)

var opts struct {
	Config string `long:"config" env:"ARCHIVER_CONFIG" default:"config.json" description:"path to the JSON config file"`

	Args struct {
		Input  string `positional-arg-name:"offers" description:"offers document to read, outputOffers from config when omitted"`
		Output string `positional-arg-name:"output" description:"messages document to write, outputMessages from config when omitted"`
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
	log.Info("starting messages fetch", "revision", Revision)

	if err = logger.SetupSentry(cfg.SentryDSN, Revision); err != nil {
		log.Warn("error reporting disabled", "error", err)
	}

	if err = cfg.Validate(true); err != nil {
		logger.Fatal(log, "validating config", err)
	}

	host, err := region.Resolve(cfg.CountryCode)
	if err != nil {
		logger.Fatal(log, "resolving region", err)
	}

	input, output := cfg.OutputOffers, cfg.OutputMessages
	if opts.Args.Input != "" {
		input = opts.Args.Input
	}
	if opts.Args.Output != "" {
		output = opts.Args.Output
	}

	offers, err := storage.ReadOffers(input)
	if err != nil {
		logger.Fatal(log, "reading offers document", err)
	}
	log.Info("offers loaded", "path", input, "count", len(offers))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	minDelay, maxDelay := cfg.MessageDelay()
	bridge := &messaging.Bridge{
		Log:    log.With("host", host),
		Client: &http.Client{Timeout: cfg.RequestTimeout()},
		Session: web.Session{
			Host:      host,
			Cookie:    cfg.Cookie,
			CSRFToken: cfg.CSRFToken,
			UserAgent: cfg.UserAgent,
		},
		SessionKey: cfg.SessionKey,
		Delay:      web.Delay{Min: minDelay, Max: maxDelay},
	}

	threads, stats, err := bridge.Run(ctx, offers)
	if err != nil {
		logger.Fatal(log, "fetching messages", err)
	}

	if err = storage.WriteThreads(output, threads); err != nil {
		logger.Fatal(log, "writing messages document", err)
	}

	log.Info("messages saved", "path", output, "threads", len(threads), "messages", stats.Messages, "failed", stats.Failed)
}
