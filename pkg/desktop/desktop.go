// Package desktop publishes launcher entries for installed
// applications: a uniquely named .desktop file pointing back at the
// environment, plus an entry in the cellar applications menu.
package desktop

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/usecellar/cellar/pkg/errors"
	"github.com/usecellar/cellar/pkg/logging"
	"github.com/usecellar/cellar/pkg/types"
)

// DefaultIcon is used when a manifest declares no icon of its own.
const DefaultIcon = "io.usecellar.cellar"

// Publisher writes desktop entries for installed executables.
type Publisher struct {
	appsDir    string
	menuPath   string
	manager    types.EnvironmentManager
	sandboxed  bool
	updateMenu bool
	nowFn      func() time.Time
}

// Options configures a Publisher.
type Options struct {
	// ApplicationsDir is where .desktop files are written
	ApplicationsDir string

	// MenuPath is the cellar menu file; empty disables menu updates
	MenuPath string

	// Manager resolves environment directories
	Manager types.EnvironmentManager

	// Sandboxed skips publishing entirely; callers detect the packaging
	// sandbox (e.g. a FLATPAK_ID marker) and pass the result in so the
	// publisher stays testable
	Sandboxed bool

	// UpdateMenu toggles maintenance of the menu file
	UpdateMenu bool

	// Now overrides the timestamp source, for tests
	Now func() time.Time
}

// New creates a Publisher.
func New(opts Options) *Publisher {
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Publisher{
		appsDir:    opts.ApplicationsDir,
		menuPath:   opts.MenuPath,
		manager:    opts.Manager,
		sandboxed:  opts.Sandboxed,
		updateMenu: opts.UpdateMenu && opts.MenuPath != "",
		nowFn:      nowFn,
	}
}

// Publish writes a launcher entry for the installed executable and
// returns its path. Inside a packaging sandbox it returns ("", nil)
// without touching the filesystem. The write is all-or-nothing: the
// entry appears under its final name only after its content is fully
// on disk, so the desktop shell never sees a partial file.
func (p *Publisher) Publish(env *types.EnvironmentConfig, manifest *types.Manifest, executable types.ExecutableSpec) (string, error) {
	logger := logging.GetLogger("desktop")

	if p.sandboxed {
		logger.Debug().Msg("Sandboxed packaging context, skipping desktop entry")
		return "", nil
	}

	if err := os.MkdirAll(p.appsDir, 0755); err != nil {
		return "", errors.Wrapf(err, errors.ErrDirCreate, "cannot create %s", p.appsDir)
	}

	// Timestamped name keeps repeated installs from colliding.
	entryName := fmt.Sprintf("%s--%s--%d.desktop", env.Name, manifest.Name, p.nowFn().Unix())
	entryPath := filepath.Join(p.appsDir, entryName)

	if err := p.writeEntry(entryPath, env, manifest, executable); err != nil {
		return "", err
	}

	if p.updateMenu {
		if err := UpdateMenu(p.menuPath, entryName); err != nil {
			// The entry itself is live; a menu failure is not fatal.
			logger.Warn().Err(err).Str("menu", p.menuPath).Msg("Could not update applications menu")
		}
	}

	logger.Info().Str("entry", entryPath).Msg("Published desktop entry")
	return entryPath, nil
}

func (p *Publisher) writeEntry(entryPath string, env *types.EnvironmentConfig, manifest *types.Manifest, executable types.ExecutableSpec) error {
	tmp, err := os.CreateTemp(p.appsDir, ".entry-*")
	if err != nil {
		return errors.Wrap(err, errors.ErrFileCreate, "cannot create temporary entry file")
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		// A failure mid-write must not leave anything visible.
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.WriteString(p.entryContent(env, manifest, executable)); err != nil {
		return errors.Wrap(err, errors.ErrEntryWrite, "cannot write desktop entry")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.ErrEntryWrite, "cannot finalize desktop entry")
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return errors.Wrap(err, errors.ErrEntryWrite, "cannot set entry permissions")
	}
	if err := os.Rename(tmpPath, entryPath); err != nil {
		return errors.Wrap(err, errors.ErrEntryWrite, "cannot publish desktop entry")
	}
	committed = true
	return nil
}

// entryContent renders the .desktop body.
func (p *Publisher) entryContent(env *types.EnvironmentConfig, manifest *types.Manifest, executable types.ExecutableSpec) string {
	envDir := p.manager.EnvironmentPath(env)
	exePath := filepath.Join(envDir, "drive_c", executable.Path, executable.File)

	displayName := executable.Name
	if displayName == "" {
		displayName = manifest.Name
	}

	icon := DefaultIcon
	if executable.Icon != "" {
		icon = filepath.Join(envDir, "icons", executable.Icon)
	}

	content := "[Desktop Entry]\n"
	content += fmt.Sprintf("Name=%s\n", displayName)
	content += fmt.Sprintf("Exec=cellar -e '%s' -b '%s'\n", exePath, env.Name)
	content += "Type=Application\n"
	content += "Terminal=false\n"
	content += "Categories=Application;\n"
	content += fmt.Sprintf("Icon=%s\n", icon)
	content += fmt.Sprintf("Comment=%s\n", manifest.Description)
	content += "Actions=Configure;\n"
	content += "\n"
	content += "[Desktop Action Configure]\n"
	content += "Name=Configure in cellar\n"
	content += fmt.Sprintf("Exec=cellar -b '%s'\n", env.Name)
	return content
}
