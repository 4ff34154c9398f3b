// Package launcher runs executables inside an environment's context by
// invoking the compatibility runner as an external process.
package launcher

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/usecellar/cellar/pkg/errors"
	"github.com/usecellar/cellar/pkg/logging"
	"github.com/usecellar/cellar/pkg/types"
)

// DefaultRunner is the compatibility runner binary used when none is
// configured.
const DefaultRunner = "wine"

// ExecLauncher implements types.ProcessLauncher with os/exec.
type ExecLauncher struct {
	runnerBin string
	manager   types.EnvironmentManager
	logger    zerolog.Logger
}

// Options configures an ExecLauncher.
type Options struct {
	// RunnerBin is the compatibility runner executable
	RunnerBin string

	// Manager resolves environment directories for the runner prefix
	Manager types.EnvironmentManager
}

// New creates an ExecLauncher.
func New(opts Options) *ExecLauncher {
	runnerBin := opts.RunnerBin
	if runnerBin == "" {
		runnerBin = DefaultRunner
	}
	return &ExecLauncher{
		runnerBin: runnerBin,
		manager:   opts.Manager,
		logger:    logging.GetLogger("launcher"),
	}
}

// RunExecutable runs filePath through the compatibility runner inside
// the environment and blocks until the process exits. A non-zero exit
// comes back as a PROCESS_LAUNCH coded error; there is no retry.
func (l *ExecLauncher) RunExecutable(ctx context.Context, config *types.EnvironmentConfig, filePath string, arguments string, environment map[string]string) error {
	args := append([]string{filePath}, splitArguments(arguments)...)

	l.logger.Info().
		Str("environment", config.Name).
		Str("file", filePath).
		Str("arguments", arguments).
		Msg("Launching executable")

	cmd := exec.CommandContext(ctx, l.runnerBin, args...)

	cmd.Env = os.Environ()
	cmd.Env = append(cmd.Env, fmt.Sprintf("WINEPREFIX=%s", l.manager.EnvironmentPath(config)))
	for key, value := range environment {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if stdout.Len() > 0 {
		l.logger.Debug().Str("output", stdout.String()).Msg("Runner stdout")
	}
	if stderr.Len() > 0 {
		l.logger.Debug().Str("output", stderr.String()).Msg("Runner stderr")
	}

	if err != nil {
		l.logger.Error().
			Err(err).
			Str("file", filePath).
			Str("stderr", stderr.String()).
			Msg("Executable failed")
		return errors.Wrapf(err, errors.ErrProcessLaunch,
			"failed to run %s", filePath).
			WithDetail("stderr", stderr.String())
	}
	return nil
}

// splitArguments splits a manifest argument string on whitespace while
// keeping quoted sections intact, so values like
// `--install-dir "C:\Program Files"` survive as one argument. Quotes
// delimit, they are not part of the argument.
func splitArguments(arguments string) []string {
	var (
		args    []string
		current strings.Builder
		quote   rune
		pending bool
	)

	flush := func() {
		if pending {
			args = append(args, current.String())
			current.Reset()
			pending = false
		}
	}

	for _, r := range arguments {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			pending = true
		case r == ' ' || r == '\t':
			flush()
		default:
			current.WriteRune(r)
			pending = true
		}
	}
	flush()
	return args
}
