package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"cookie": "c=1",
		"csrfToken": "tok",
		"countryCode": "my",
		"userAgent": "Mozilla/5.0 test",
		"pageCount": 5,
		"sessionKey": "sk",
		"outputOffers": "o.json"
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "c=1", cfg.Cookie)
	assert.Equal(t, "tok", cfg.CSRFToken)
	assert.Equal(t, "my", cfg.CountryCode)
	assert.Equal(t, "Mozilla/5.0 test", cfg.UserAgent)
	assert.Equal(t, 5, cfg.PageCount)
	assert.Equal(t, "o.json", cfg.OutputOffers)
	assert.Equal(t, "offers_all_messages.json", cfg.OutputMessages)

	lo, hi := cfg.MessageDelay()
	assert.Equal(t, 800*time.Millisecond, lo)
	assert.Equal(t, 1900*time.Millisecond, hi)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())

	require.NoError(t, cfg.Validate(true))
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `{"cookie": "c=1", "csrfToken": "tok", "pageCount": 5}`)

	t.Setenv("ARCHIVER_PAGE_COUNT", "50")
	t.Setenv("ARCHIVER_CSRF_TOKEN", "from-env")
	t.Setenv("ARCHIVER_UNKNOWN_THING", "ignored")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.PageCount)
	assert.Equal(t, "from-env", cfg.CSRFToken)
	assert.NotEmpty(t, cfg.UserAgent)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Cookie:            "c",
			CSRFToken:         "t",
			PageCount:         20,
			MessageDelayMinMs: 1,
			MessageDelayMaxMs: 2,
			ImageDelayMinMs:   1,
			ImageDelayMaxMs:   2,
		}
	}

	require.NoError(t, base().Validate(false))

	cfg := base()
	cfg.Cookie = PlaceholderCookie
	require.ErrorIs(t, cfg.Validate(false), ErrPlaceholderCredentials)

	cfg = base()
	cfg.CSRFToken = PlaceholderCSRFToken
	require.ErrorIs(t, cfg.Validate(false), ErrPlaceholderCredentials)

	cfg = base()
	require.ErrorIs(t, cfg.Validate(true), ErrMissingSessionKey)

	cfg = base()
	cfg.PageCount = 0
	require.Error(t, cfg.Validate(false))

	cfg = base()
	cfg.ImageDelayMinMs = 5
	require.Error(t, cfg.Validate(false))
}
