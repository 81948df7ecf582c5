package geoip

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"cryoner-gateway/config"

	"github.com/rs/zerolog"
)

// unknownCountry is returned whenever a lookup cannot be completed.
const unknownCountry = "Unknown"

const maxResponseBytes = 256

// IPAPILocator implements ports.GeoLocator against the ipapi.co plain-text
// country endpoint. Lookups never fail a request; anything unresolvable
// comes back as "Unknown".
type IPAPILocator struct {
	enabled bool
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewIPAPILocator creates a locator for the configured endpoint.
func NewIPAPILocator(cfg config.GeoConfig, log zerolog.Logger) *IPAPILocator {
	return &IPAPILocator{
		enabled: cfg.Enabled,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

// Country resolves the caller IP to a country name.
func (l *IPAPILocator) Country(ctx context.Context, ip string) string {
	if !l.enabled || !isPublicIP(ip) {
		return unknownCountry
	}

	country, err := l.lookup(ctx, ip)
	if err != nil {
		l.log.Debug().Err(err).Str("ip", ip).Msg("geo lookup failed")
		return unknownCountry
	}
	return country
}

func (l *IPAPILocator) lookup(ctx context.Context, ip string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/country_name/", l.baseURL, ip)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("building geo request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching geo data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geo service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("reading geo response: %w", err)
	}

	country := strings.TrimSpace(string(body))
	if country == "" || country == "Undefined" {
		return "", fmt.Errorf("geo service returned no country")
	}
	return country, nil
}

// isPublicIP filters addresses no geo service can resolve.
func isPublicIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return !parsed.IsLoopback() && !parsed.IsPrivate() && !parsed.IsUnspecified()
}
