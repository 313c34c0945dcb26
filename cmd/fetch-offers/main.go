package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"nuclight.org/offers-archiver/app/offers"
	"nuclight.org/offers-archiver/app/storage"
	"nuclight.org/offers-archiver/pkg/config"
	"nuclight.org/offers-archiver/pkg/logger"
	"nuclight.org/offers-archiver/pkg/region"
	"nuclight.org/offers-archiver/pkg/web"
)

var opts struct {
	Config string `long:"config" env:"ARCHIVER_CONFIG" default:"config.json" description:"path to the JSON config file"`

	Args struct {
		Output string `positional-arg-name:"output" description:"offers document to write, outputOffers from config when omitted"`
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
	log.Info("starting offers fetch", "revision", Revision)

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

	output := cfg.OutputOffers
	if opts.Args.Output != "" {
		output = opts.Args.Output
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	paginator := &offers.Paginator{
		Log:    log.With("host", host),
		Client: &http.Client{Timeout: cfg.RequestTimeout()},
		Session: web.Session{
			Host:      host,
			Cookie:    cfg.Cookie,
			CSRFToken: cfg.CSRFToken,
			UserAgent: cfg.UserAgent,
		},
		PageSize: cfg.PageCount,
	}

	res := paginator.FetchAll(ctx)
	if len(res.Offers) == 0 {
		log.Warn("no offers collected, nothing written", "path", output)
		return
	}

	if err = storage.WriteOffers(output, res.Offers); err != nil {
		logger.Fatal(log, "writing offers document", err)
	}

	log.Info("offers saved", "path", output, "count", len(res.Offers), "pages", res.Pages)
}
