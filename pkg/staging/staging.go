// Package staging downloads auxiliary assets (icons, installer
// payloads) into a per-kind cache with skip-if-present semantics and
// optional sha256 verification.
package staging

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/usecellar/cellar/pkg/errors"
	"github.com/usecellar/cellar/pkg/logging"
)

// Well-known asset kinds. Any string works; these are the ones the
// installer engine uses.
const (
	KindInstaller = "installer"
	KindIcon      = "icon"
	KindComponent = "component"
)

// Request describes one asset to ensure locally.
type Request struct {
	// Kind selects the staging subdirectory
	Kind string

	// URL is the remote location of the asset
	URL string

	// FileName is the local name the asset is downloaded under
	FileName string

	// Rename optionally renames the asset after download
	Rename string

	// Checksum is an optional sha256 hex digest the bytes must match
	Checksum string
}

// destName returns the final local file name for the request.
func (r *Request) destName() string {
	if r.Rename != "" {
		return r.Rename
	}
	return r.FileName
}

// Stager ensures assets are present in the local staging area.
//
// Concurrent EnsureAsset calls for the same destination are not
// serialized here; callers must not race on one path. The installer
// engine's sequential step execution satisfies that.
type Stager struct {
	root   string
	client *http.Client
}

// Options configures a Stager.
type Options struct {
	// Root is the staging root directory; per-kind subdirectories are
	// created beneath it on demand
	Root string

	// HTTPClient overrides the default download client
	HTTPClient *http.Client
}

// New creates a Stager rooted at opts.Root.
func New(opts Options) *Stager {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	return &Stager{root: opts.Root, client: client}
}

// Path returns the local destination the request resolves to, whether
// or not the asset exists yet.
func (s *Stager) Path(req Request) string {
	return filepath.Join(s.root, req.Kind, req.destName())
}

// EnsureAsset makes the requested asset available locally and returns
// its path. An asset already present at the destination is trusted
// as-is: no network call, no staleness check. A checksum mismatch
// removes the partial download so no later call mistakes it for a
// valid asset.
func (s *Stager) EnsureAsset(ctx context.Context, req Request) (string, error) {
	logger := logging.GetLogger("staging")

	if req.FileName == "" && req.Rename == "" {
		return "", errors.New(errors.ErrInvalidInput, "asset request needs a file name")
	}

	kindDir := filepath.Join(s.root, req.Kind)
	if err := os.MkdirAll(kindDir, 0755); err != nil {
		return "", errors.Wrapf(err, errors.ErrDirCreate, "cannot create staging directory %s", kindDir)
	}

	dest := filepath.Join(kindDir, req.destName())
	if _, err := os.Stat(dest); err == nil {
		logger.Debug().Str("path", dest).Msg("Asset already staged, skipping download")
		return dest, nil
	}

	if err := s.download(ctx, req, dest); err != nil {
		return "", err
	}

	logger.Info().Str("url", req.URL).Str("path", dest).Msg("Staged asset")
	return dest, nil
}

func (s *Stager) download(ctx context.Context, req Request, dest string) error {
	logger := logging.GetLogger("staging")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInvalidInput, "invalid asset URL %s", req.URL)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		logger.Error().Err(err).Str("url", req.URL).Msg("Asset download failed")
		return errors.Wrapf(err, errors.ErrAssetDownload, "cannot download %s", req.URL)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Error().Int("status", resp.StatusCode).Str("url", req.URL).Msg("Asset download failed")
		return errors.Newf(errors.ErrAssetDownload, "download of %s returned status %d", req.URL, resp.StatusCode)
	}

	partial := dest + ".partial"
	file, err := os.Create(partial)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileCreate, "cannot create %s", partial)
	}

	// Hash while writing so verification never re-reads the file.
	hasher := sha256.New()
	_, err = io.Copy(io.MultiWriter(file, hasher), resp.Body)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(partial)
		return errors.Wrapf(err, errors.ErrAssetDownload, "download of %s interrupted", req.URL)
	}

	if req.Checksum != "" {
		actual := hex.EncodeToString(hasher.Sum(nil))
		if actual != req.Checksum {
			_ = os.Remove(partial)
			logger.Error().
				Str("url", req.URL).
				Str("expected", req.Checksum).
				Str("actual", actual).
				Msg("Checksum mismatch, discarding download")
			return errors.New(errors.ErrChecksumMismatch, "downloaded bytes do not match declared checksum").
				WithDetail("expected", req.Checksum).
				WithDetail("actual", actual)
		}
	}

	if err := os.Rename(partial, dest); err != nil {
		_ = os.Remove(partial)
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot finalize %s", dest)
	}
	return nil
}
