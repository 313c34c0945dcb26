package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/corpix/uarand"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	PlaceholderCookie    = "[YOUR_COOKIE_HERE]"
	PlaceholderCSRFToken = "[YOUR_CSRF_TOKEN_HERE]"

	envPrefix = "ARCHIVER_"
)

var (
	ErrPlaceholderCredentials = errors.New("cookie and csrfToken still hold placeholder values")
	ErrMissingSessionKey      = errors.New("sessionKey is required for fetching messages")
)

// Config is the archiver configuration, shared by every command.
type Config struct {
	Cookie      string `koanf:"cookie"`
	CSRFToken   string `koanf:"csrfToken"`
	CountryCode string `koanf:"countryCode"`
	UserAgent   string `koanf:"userAgent"`
	PageCount   int    `koanf:"pageCount"`
	SessionKey  string `koanf:"sessionKey"`

	OutputOffers   string `koanf:"outputOffers"`
	OutputMessages string `koanf:"outputMessages"`
	ImageRoot      string `koanf:"imageRoot"`

	MessageDelayMinMs int `koanf:"messageDelayMinMs"`
	MessageDelayMaxMs int `koanf:"messageDelayMaxMs"`
	ImageDelayMinMs   int `koanf:"imageDelayMinMs"`
	ImageDelayMaxMs   int `koanf:"imageDelayMaxMs"`
	RequestTimeoutSec int `koanf:"requestTimeoutSec"`

	ViewerAddr string `koanf:"viewerAddr"`
	SentryDSN  string `koanf:"sentryDsn"`
	Debug      bool   `koanf:"debug"`
}

var defaults = map[string]any{
	"countryCode":       "SG",
	"pageCount":         20,
	"outputOffers":      "offers.json",
	"outputMessages":    "offers_all_messages.json",
	"imageRoot":         ".",
	"messageDelayMinMs": 800,
	"messageDelayMaxMs": 1900,
	"imageDelayMinMs":   200,
	"imageDelayMaxMs":   800,
	"requestTimeoutSec": 30,
	"viewerAddr":        ":8080",
}

// environment variable suffix -> config key
var envKeys = map[string]string{
	"COOKIE":               "cookie",
	"CSRF_TOKEN":           "csrfToken",
	"COUNTRY_CODE":         "countryCode",
	"USER_AGENT":           "userAgent",
	"PAGE_COUNT":           "pageCount",
	"SESSION_KEY":          "sessionKey",
	"OUTPUT_OFFERS":        "outputOffers",
	"OUTPUT_MESSAGES":      "outputMessages",
	"IMAGE_ROOT":           "imageRoot",
	"MESSAGE_DELAY_MIN_MS": "messageDelayMinMs",
	"MESSAGE_DELAY_MAX_MS": "messageDelayMaxMs",
	"IMAGE_DELAY_MIN_MS":   "imageDelayMinMs",
	"IMAGE_DELAY_MAX_MS":   "imageDelayMaxMs",
	"REQUEST_TIMEOUT_SEC":  "requestTimeoutSec",
	"VIEWER_ADDR":          "viewerAddr",
	"SENTRY_DSN":           "sentryDsn",
	"DEBUG":                "debug",
}

// Load reads defaults, then the JSON file at path (skipped when path is
// empty), then ARCHIVER_* environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return envKeys[strings.TrimPrefix(s, envPrefix)]
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = uarand.GetRandom()
	}

	return &cfg, nil
}

// Validate checks the credentials before any network call is made.
// requireSessionKey is set by commands talking to the messaging backend.
func (c *Config) Validate(requireSessionKey bool) error {
	if c.Cookie == PlaceholderCookie || c.CSRFToken == PlaceholderCSRFToken {
		return ErrPlaceholderCredentials
	}

	if requireSessionKey && c.SessionKey == "" {
		return ErrMissingSessionKey
	}

	if c.PageCount <= 0 {
		return fmt.Errorf("pageCount must be positive, got %d", c.PageCount)
	}

	if c.MessageDelayMinMs < 0 || c.MessageDelayMinMs > c.MessageDelayMaxMs {
		return fmt.Errorf("invalid message delay bounds %d..%d ms", c.MessageDelayMinMs, c.MessageDelayMaxMs)
	}

	if c.ImageDelayMinMs < 0 || c.ImageDelayMinMs > c.ImageDelayMaxMs {
		return fmt.Errorf("invalid image delay bounds %d..%d ms", c.ImageDelayMinMs, c.ImageDelayMaxMs)
	}

	return nil
}

func (c *Config) MessageDelay() (time.Duration, time.Duration) {
	return ms(c.MessageDelayMinMs), ms(c.MessageDelayMaxMs)
}

func (c *Config) ImageDelay() (time.Duration, time.Duration) {
	return ms(c.ImageDelayMinMs), ms(c.ImageDelayMaxMs)
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
