package messaging

import (
	"fmt"
	"strings"
)

const tenantSegments = 5

// Tenant is the messaging backend application a channel belongs to.
type Tenant struct {
	// AppID is the application id as written in the channel identifier
	AppID string

	// Address is the case-folded AppID used in the backend hostname
	Address string
}

// ParseTenant takes the first five hyphen-delimited segments of a channel
// identifier, which spell the backend application UUID.
func ParseTenant(channelURL string) (Tenant, error) {
	parts := strings.Split(channelURL, "-")
	if len(parts) < tenantSegments {
		return Tenant{}, fmt.Errorf("channel %q has %d segments, want at least %d", channelURL, len(parts), tenantSegments)
	}

	appID := strings.Join(parts[:tenantSegments], "-")
	return Tenant{
		AppID:   appID,
		Address: strings.ToLower(appID),
	}, nil
}
