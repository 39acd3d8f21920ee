package repository

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ca-srg/relaunch/domain"
	"github.com/ca-srg/relaunch/domain/entity"
	"github.com/ca-srg/relaunch/domain/repository"
	"github.com/ca-srg/relaunch/infrastructure/auth"
	"github.com/ca-srg/relaunch/infrastructure/config"
)

// HTTPManifestProbe fetches the release manifest over HTTP(S)
type HTTPManifestProbe struct {
	url      string
	channel  string
	maxBytes int
	client   *http.Client
	now      func() time.Time
}

var _ repository.UpdateProbe = (*HTTPManifestProbe)(nil)

// NewHTTPManifestProbe creates an HTTP probe. When Google authentication is
// configured the client attaches OAuth2 bearer tokens to every request.
func NewHTTPManifestProbe(ctx context.Context, probeCfg *config.ProbeConfig, channel string) (*HTTPManifestProbe, error) {
	if probeCfg == nil || probeCfg.ManifestURL == "" {
		return nil, domain.ErrInvalidInput("manifest_url", "cannot be empty for the http probe")
	}

	timeout := time.Duration(probeCfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	if probeCfg.GoogleAuth || probeCfg.GoogleCredentialsPath != "" || probeCfg.GoogleCredentialsJSON != "" {
		authenticator, err := auth.NewGoogleAuthenticator(probeCfg.GoogleCredentialsJSON, probeCfg.GoogleCredentialsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create google authenticator: %w", err)
		}
		client = authenticator.HTTPClient(ctx, timeout)
	}

	return newHTTPManifestProbe(probeCfg.ManifestURL, channel, probeCfg.MaxManifestBytes, client), nil
}

func newHTTPManifestProbe(url, channel string, maxBytes int, client *http.Client) *HTTPManifestProbe {
	return &HTTPManifestProbe{
		url:      url,
		channel:  channel,
		maxBytes: maxBytes,
		client:   client,
		now:      time.Now,
	}
}

// Source returns the manifest URL
func (p *HTTPManifestProbe) Source() string {
	return p.url
}

// Check downloads the manifest and compares its version with currentVersion
func (p *HTTPManifestProbe) Check(ctx context.Context, currentVersion string) (*entity.ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, domain.ErrProbeWithCause(p.url, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "relaunch/"+currentVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, domain.ErrProbeWithCause(p.url, fmt.Errorf("failed to fetch manifest: %w", err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.ErrProbe(p.url, fmt.Sprintf("unexpected status code %d", resp.StatusCode)).
			WithDetails("statusCode", resp.StatusCode)
	}

	data, err := readManifest(p.url, resp.Body, p.maxBytes)
	if err != nil {
		return nil, err
	}
	return decodeManifest(p.url, data, currentVersion, p.channel, p.now())
}
