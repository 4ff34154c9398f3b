package main

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/usecellar/cellar/pkg/catalog"
	"github.com/usecellar/cellar/pkg/components"
	"github.com/usecellar/cellar/pkg/config"
	"github.com/usecellar/cellar/pkg/deps"
	"github.com/usecellar/cellar/pkg/desktop"
	"github.com/usecellar/cellar/pkg/envman"
	"github.com/usecellar/cellar/pkg/installer"
	"github.com/usecellar/cellar/pkg/launcher"
	"github.com/usecellar/cellar/pkg/params"
	"github.com/usecellar/cellar/pkg/paths"
	"github.com/usecellar/cellar/pkg/staging"
	"github.com/usecellar/cellar/pkg/steps"
)

// engine bundles the wired-up application services the commands use.
type engine struct {
	cfg          *config.Config
	paths        paths.Paths
	catalog      *catalog.Client
	manager      *envman.Manager
	launcher     *launcher.ExecLauncher
	orchestrator *installer.Orchestrator
}

// newEngine loads configuration and wires the services together.
// The step runner is installed on the manager after construction
// because it launches processes through the manager itself.
func newEngine() (*engine, error) {
	p := paths.New()

	cfg, err := config.Load(p.ConfigFilePath())
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.DownloadTimeout()}

	cat := catalog.New(catalog.Options{
		BaseURL:    cfg.Repositories.Installers,
		HTTPClient: httpClient,
		Checker: &catalog.DialChecker{
			Host:    cfg.Network.ProbeHost,
			Timeout: cfg.ProbeTimeout(),
		},
	})

	stager := staging.New(staging.Options{
		Root:       p.StagingDir(),
		HTTPClient: httpClient,
	})

	manager := envman.New(envman.Options{
		Paths:          p,
		Components:     components.New(stager, p.ComponentsDir()),
		ComponentsRepo: cfg.Repositories.Components,
	})

	launch := launcher.New(launcher.Options{Manager: manager})

	executor := steps.New(steps.Options{
		Stager:     stager,
		Launcher:   launch,
		Strictness: cfg.Install.Strictness,
	})
	manager.SetRunner(executor)

	depIndex, err := envman.LoadDependencyIndex(filepath.Join(p.ConfigDir(), "dependencies.yml"))
	if err != nil {
		return nil, err
	}

	var publisher *desktop.Publisher
	if cfg.Desktop.PublishEntries {
		publisher = desktop.New(desktop.Options{
			ApplicationsDir: p.ApplicationsDir(),
			MenuPath:        p.MenuFilePath(),
			Manager:         manager,
			Sandboxed:       os.Getenv("FLATPAK_ID") != "",
			UpdateMenu:      cfg.Desktop.UpdateMenu,
		})
	}

	orch := installer.New(installer.Options{
		Catalog:    cat,
		Stager:     stager,
		Steps:      executor,
		Deps:       deps.New(manager, depIndex),
		Params:     params.New(manager),
		Desktop:    publisher,
		Manager:    manager,
		Strictness: cfg.Install.Strictness,
	})

	return &engine{
		cfg:          cfg,
		paths:        p,
		catalog:      cat,
		manager:      manager,
		launcher:     launch,
		orchestrator: orch,
	}, nil
}
