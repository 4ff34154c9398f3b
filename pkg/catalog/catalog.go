// Package catalog fetches installer manifests and asset URLs from the
// remote repository. Manifests live at {base}/{category}/{name}.yml and
// icons at {base}/data/{manifest}/{icon}.
package catalog

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/usecellar/cellar/pkg/errors"
	"github.com/usecellar/cellar/pkg/logging"
	"github.com/usecellar/cellar/pkg/types"
)

// ConnectivityChecker reports whether the catalog is reachable at all.
// The fetcher probes it before every request so an offline machine gets
// an immediate unavailable result instead of a slow transport error.
type ConnectivityChecker interface {
	Online() bool
}

// DialChecker probes connectivity with a TCP dial to a well-known host.
type DialChecker struct {
	// Host is the address dialed, host:port
	Host string

	// Timeout bounds the dial
	Timeout time.Duration
}

// Online dials the probe host and reports success.
func (c *DialChecker) Online() bool {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	conn, err := net.DialTimeout("tcp", c.Host, timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// alwaysOnline is the fallback when no checker is supplied.
type alwaysOnline struct{}

func (alwaysOnline) Online() bool { return true }

// Options configures a catalog client.
type Options struct {
	// BaseURL is the installer repository root
	BaseURL string

	// HTTPClient overrides the default client, mainly for tests
	HTTPClient *http.Client

	// Checker overrides the connectivity probe; nil means always online
	Checker ConnectivityChecker
}

// Client fetches installer manifests from the remote catalog.
type Client struct {
	baseURL    string
	httpClient *http.Client
	checker    ConnectivityChecker
}

// New creates a catalog client.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	checker := opts.Checker
	if checker == nil {
		checker = alwaysOnline{}
	}
	return &Client{
		baseURL:    opts.BaseURL,
		httpClient: httpClient,
		checker:    checker,
	}
}

// ManifestURL returns the location of an installer manifest.
func (c *Client) ManifestURL(name, category string) string {
	return fmt.Sprintf("%s/%s/%s.yml", c.baseURL, category, name)
}

// IconURL returns the location of an icon published with a manifest.
func (c *Client) IconURL(manifestName, icon string) string {
	return fmt.Sprintf("%s/data/%s/%s", c.baseURL, manifestName, icon)
}

// Fetch retrieves and decodes the manifest for the given installer.
// All failure modes come back as coded errors, never panics: offline
// yields CONNECTIVITY_UNAVAILABLE without touching the network, a
// missing or errored response yields MANIFEST_NOT_FOUND, and an
// undecodable body yields MANIFEST_MALFORMED.
func (c *Client) Fetch(ctx context.Context, name, category string) (*types.Manifest, error) {
	body, err := c.fetchBody(ctx, name, category)
	if err != nil {
		return nil, err
	}

	var manifest types.Manifest
	if err := yaml.Unmarshal(body, &manifest); err != nil {
		logger := logging.GetLogger("catalog")
		logger.Error().Err(err).Str("installer", name).Msg("Cannot decode manifest")
		return nil, errors.Wrapf(err, errors.ErrManifestMalformed,
			"manifest for %s is not valid YAML", name)
	}

	return &manifest, nil
}

// FetchRaw retrieves the manifest's serialized form unparsed, for
// display or caching; it bypasses schema validation entirely.
func (c *Client) FetchRaw(ctx context.Context, name, category string) (string, error) {
	body, err := c.fetchBody(ctx, name, category)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) fetchBody(ctx context.Context, name, category string) ([]byte, error) {
	logger := logging.GetLogger("catalog")

	if !c.checker.Online() {
		logger.Warn().Str("installer", name).Msg("No connectivity, skipping manifest fetch")
		return nil, errors.New(errors.ErrConnectivity, "catalog is unreachable")
	}

	url := c.ManifestURL(name, category)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "invalid manifest URL %s", url)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error().Err(err).Str("installer", name).Msg("Cannot fetch manifest")
		return nil, errors.Wrapf(err, errors.ErrManifestNotFound,
			"cannot fetch manifest for %s", name)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Error().Int("status", resp.StatusCode).Str("installer", name).Msg("Cannot fetch manifest")
		return nil, errors.Newf(errors.ErrManifestNotFound,
			"manifest for %s returned status %d", name, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error().Err(err).Str("installer", name).Msg("Cannot read manifest body")
		return nil, errors.Wrapf(err, errors.ErrManifestNotFound,
			"cannot read manifest for %s", name)
	}

	logger.Debug().Str("installer", name).Str("category", category).Msg("Fetched manifest")
	return body, nil
}
