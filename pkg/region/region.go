package region

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultCode is used when no region code is configured.
const DefaultCode = "SG"

var ErrUnknownRegion = errors.New("unknown region code")

var domains = map[string]string{
	"AU": "au.carousell.com",
	"CA": "ca.carousell.com",
	"HK": "www.carousell.com.hk",
	"ID": "id.carousell.com",
	"MY": "www.carousell.com.my",
	"NZ": "nz.carousell.com",
	"PH": "www.carousell.ph",
	"SG": "www.carousell.sg",
	"TW": "tw.carousell.com",
}

// Resolve maps a two-letter region code to the platform hostname. The code is
// case-insensitive and falls back to DefaultCode when empty.
func Resolve(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = DefaultCode
	}

	domain, ok := domains[code]
	if !ok {
		return "", fmt.Errorf("%w %q, valid codes are %s", ErrUnknownRegion, code, strings.Join(Codes(), ", "))
	}

	return domain, nil
}

// Codes returns all known region codes in alphabetical order.
func Codes() []string {
	codes := make([]string, 0, len(domains))
	for code := range domains {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
