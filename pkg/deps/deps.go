// Package deps submits missing-dependency installs to the environment
// manager. Already-installed dependencies are never resubmitted.
package deps

import (
	"context"

	"github.com/usecellar/cellar/pkg/logging"
	"github.com/usecellar/cellar/pkg/types"
)

// Installer triggers installs for the dependencies an installer
// manifest declares.
type Installer struct {
	manager types.EnvironmentManager
	catalog types.DependencyCatalog
}

// New creates a dependency installer.
func New(manager types.EnvironmentManager, catalog types.DependencyCatalog) *Installer {
	return &Installer{manager: manager, catalog: catalog}
}

// InstallMissing submits one async install per dependency not already
// present in the environment. It returns the submission tickets so
// callers may await completion; it does not wait itself, and it does
// not verify success. Unknown ids are logged and skipped.
func (i *Installer) InstallMissing(ctx context.Context, env *types.EnvironmentConfig, ids []string) []*types.DependencyTicket {
	logger := logging.GetLogger("deps")
	var tickets []*types.DependencyTicket

	for _, id := range ids {
		if env.HasDependency(id) {
			logger.Debug().Str("dependency", id).Msg("Dependency already installed, skipping")
			continue
		}

		descriptor, ok := i.catalog.Lookup(id)
		if !ok {
			logger.Warn().Str("dependency", id).Msg("Dependency not in supported catalog, skipping")
			continue
		}

		logger.Info().Str("dependency", id).Str("environment", env.Name).Msg("Submitting dependency install")
		tickets = append(tickets, i.manager.AsyncInstallDependency(ctx, env, id, descriptor))
	}

	return tickets
}

// Await blocks until every ticket resolves or the context is done, and
// returns the ids that failed. Callers that want the original
// fire-and-forget behavior simply don't call it.
func Await(ctx context.Context, tickets []*types.DependencyTicket) []string {
	var failed []string
	for _, ticket := range tickets {
		select {
		case <-ticket.Done():
			if ticket.Err() != nil {
				failed = append(failed, ticket.ID)
			}
		case <-ctx.Done():
			return failed
		}
	}
	return failed
}
