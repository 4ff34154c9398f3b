// Package components installs compatibility components (dxvk, vkd3d
// builds) by staging a release archive and extracting it into the
// components directory.
package components

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mholt/archiver"

	"github.com/usecellar/cellar/pkg/errors"
	"github.com/usecellar/cellar/pkg/logging"
	"github.com/usecellar/cellar/pkg/staging"
)

// Pinned component releases. Bumped together with the component
// repository contents.
const (
	DxvkVersion  = "2.3.1"
	Vkd3dVersion = "2.12"
)

// Spec describes one installable component release.
type Spec struct {
	// Name is the component identifier and install directory name
	Name string

	// URL is the release archive location
	URL string

	// FileName is the local archive name
	FileName string

	// Checksum is an optional sha256 for the archive
	Checksum string
}

// DxvkSpec returns the pinned dxvk release hosted on the component
// repository.
func DxvkSpec(repoURL string) Spec {
	return Spec{
		Name:     "dxvk-" + DxvkVersion,
		URL:      fmt.Sprintf("%s/dxvk/dxvk-%s.tar.gz", repoURL, DxvkVersion),
		FileName: fmt.Sprintf("dxvk-%s.tar.gz", DxvkVersion),
	}
}

// Vkd3dSpec returns the pinned vkd3d release hosted on the component
// repository.
func Vkd3dSpec(repoURL string) Spec {
	return Spec{
		Name:     "vkd3d-" + Vkd3dVersion,
		URL:      fmt.Sprintf("%s/vkd3d/vkd3d-%s.tar.gz", repoURL, Vkd3dVersion),
		FileName: fmt.Sprintf("vkd3d-%s.tar.gz", Vkd3dVersion),
	}
}

// AssetStager is the slice of the staging API the installer needs.
type AssetStager interface {
	EnsureAsset(ctx context.Context, req staging.Request) (string, error)
}

// Installer stages and extracts component archives.
type Installer struct {
	stager AssetStager
	dir    string
}

// New creates a component installer extracting into dir.
func New(stager AssetStager, dir string) *Installer {
	return &Installer{stager: stager, dir: dir}
}

// Path returns where the component ends up once installed.
func (i *Installer) Path(spec Spec) string {
	return filepath.Join(i.dir, spec.Name)
}

// Install makes the component available locally and returns its
// directory. A component already extracted is trusted as-is.
func (i *Installer) Install(ctx context.Context, spec Spec) (string, error) {
	logger := logging.GetLogger("components")

	dest := i.Path(spec)
	if _, err := os.Stat(dest); err == nil {
		logger.Debug().Str("component", spec.Name).Msg("Component already installed")
		return dest, nil
	}

	archivePath, err := i.stager.EnsureAsset(ctx, staging.Request{
		Kind:     staging.KindComponent,
		URL:      spec.URL,
		FileName: spec.FileName,
		Checksum: spec.Checksum,
	})
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrComponent, "cannot stage component %s", spec.Name)
	}

	if err := os.MkdirAll(i.dir, 0755); err != nil {
		return "", errors.Wrapf(err, errors.ErrDirCreate, "cannot create %s", i.dir)
	}

	if err := archiver.Unarchive(archivePath, dest); err != nil {
		// A half-extracted component must not be mistaken for a good one.
		_ = os.RemoveAll(dest)
		return "", errors.Wrapf(err, errors.ErrComponent, "cannot extract component %s", spec.Name)
	}

	logger.Info().Str("component", spec.Name).Str("path", dest).Msg("Installed component")
	return dest, nil
}
