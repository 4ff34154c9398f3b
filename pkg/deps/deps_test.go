package deps_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/usecellar/cellar/pkg/deps"
	"github.com/usecellar/cellar/pkg/errors"
	"github.com/usecellar/cellar/pkg/testutil"
	"github.com/usecellar/cellar/pkg/types"
)

func supportedCatalog() testutil.StaticCatalog {
	return testutil.StaticCatalog{
		"corefonts":    {Description: "Microsoft core fonts", Category: "fonts"},
		"vcredist2019": {Description: "Visual C++ 2019 runtime", Category: "runtimes"},
		"dotnet48":     {Description: ".NET Framework 4.8", Category: "runtimes"},
	}
}

func TestInstallMissing_SkipsInstalled(t *testing.T) {
	manager := testutil.NewMockEnvironmentManager()
	installer := deps.New(manager, supportedCatalog())

	env := &types.EnvironmentConfig{
		Name:                  "gaming",
		InstalledDependencies: []string{"corefonts"},
	}

	tickets := installer.InstallMissing(context.Background(), env, []string{"corefonts", "vcredist2019"})

	assert.Equal(t, []string{"vcredist2019"}, manager.Submissions,
		"already-installed dependency must never be resubmitted")
	require.Len(t, tickets, 1)
	assert.Equal(t, "vcredist2019", tickets[0].ID)
}

func TestInstallMissing_AllInstalledSubmitsNothing(t *testing.T) {
	manager := testutil.NewMockEnvironmentManager()
	installer := deps.New(manager, supportedCatalog())

	env := &types.EnvironmentConfig{
		InstalledDependencies: []string{"corefonts", "vcredist2019"},
	}

	tickets := installer.InstallMissing(context.Background(), env, []string{"corefonts", "vcredist2019"})
	assert.Empty(t, tickets)
	assert.Empty(t, manager.Submissions)
}

func TestInstallMissing_UnknownIdSkipped(t *testing.T) {
	manager := testutil.NewMockEnvironmentManager()
	installer := deps.New(manager, supportedCatalog())

	env := &types.EnvironmentConfig{Name: "gaming"}
	tickets := installer.InstallMissing(context.Background(), env, []string{"no-such-dep", "dotnet48"})

	assert.Equal(t, []string{"dotnet48"}, manager.Submissions)
	require.Len(t, tickets, 1)
}

func TestInstallMissing_PreservesDeclarationOrder(t *testing.T) {
	manager := testutil.NewMockEnvironmentManager()
	installer := deps.New(manager, supportedCatalog())

	env := &types.EnvironmentConfig{}
	installer.InstallMissing(context.Background(), env, []string{"dotnet48", "corefonts", "vcredist2019"})

	assert.Equal(t, []string{"dotnet48", "corefonts", "vcredist2019"}, manager.Submissions)
}

func TestAwait_CollectsFailures(t *testing.T) {
	manager := testutil.NewMockEnvironmentManager()
	manager.ResolveErr = errors.New(errors.ErrDependency, "install failed")
	installer := deps.New(manager, supportedCatalog())

	env := &types.EnvironmentConfig{}
	tickets := installer.InstallMissing(context.Background(), env, []string{"corefonts"})

	failed := deps.Await(context.Background(), tickets)
	assert.Equal(t, []string{"corefonts"}, failed)
}

func TestAwait_NoFailures(t *testing.T) {
	manager := testutil.NewMockEnvironmentManager()
	installer := deps.New(manager, supportedCatalog())

	env := &types.EnvironmentConfig{}
	tickets := installer.InstallMissing(context.Background(), env, []string{"corefonts", "dotnet48"})

	assert.Empty(t, deps.Await(context.Background(), tickets))
}
