// Package cli wires the aastools commands: it parses flags, loads the config,
// runs the parser, validator or compiler, and maps failures to exit codes.
package cli

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ernie/aastools/internal/config"
	"github.com/ernie/aastools/internal/history"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

func failure(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	return &ExitError{Code: 1, Message: err.Error()}
}

// app is the state shared by every command of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	cfgPath   string
	logLevel  string
	noHistory bool

	cfg   *config.Config
	log   zerolog.Logger
	color bool
}

// Execute runs the command line in args and returns an *ExitError for any
// failure that should end the process with a non-zero status.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(&app{stdout: stdout, stderr: stderr})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		return failure(err)
	}
	return nil
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "aastools",
		Short:         "Inspect Quake III BSP maps and validate Q3Rally AAS files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", config.DefaultPath, "path to the YAML config file")
	flags.StringVar(&a.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	flags.BoolVar(&a.noHistory, "no-history", false, "do not record this run in the history database")

	root.AddCommand(
		newInfoCommand(a),
		newValidateCommand(a),
		newCompileCommand(a),
		newMapsCommand(a),
		newHistoryCommand(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return usageError(err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	log, err := newLogger(a.stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return usageError(err)
	}

	a.cfg = cfg
	a.log = log
	a.color = isTerminal(a.stdout)
	a.log.Debug().Str("config", a.cfgPath).Msg("config loaded")
	return nil
}

// argsOrUsage turns cobra argument errors into usage exit codes.
func argsOrUsage(v cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := v(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

// remember writes the config back so the next run can omit the paths just
// used. Failure is logged and otherwise ignored.
func (a *app) remember() {
	if err := a.cfg.Save(a.cfgPath); err != nil {
		a.log.Warn().Err(err).Msg("could not save config")
	}
}

// record appends a run to the history database when history is enabled.
func (a *app) record(ctx context.Context, e history.Entry) {
	if a.noHistory || !a.cfg.History.Enabled {
		return
	}
	store, err := history.Open(ctx, a.cfg.History.Path, a.log)
	if err != nil {
		a.log.Warn().Err(err).Msg("history unavailable")
		return
	}
	defer store.Close()

	if _, err := store.Record(ctx, e); err != nil {
		a.log.Warn().Err(err).Msg("could not record run")
	}
}

// pick returns the positional argument if given, otherwise the remembered
// path, otherwise a usage error naming what is missing.
func pick(args []string, remembered, what string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if remembered != "" {
		return remembered, nil
	}
	return "", &ExitError{Code: 2, Message: "no " + what + " given and none remembered in config"}
}
