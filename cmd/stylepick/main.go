package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"stylepick/internal/config"
	"stylepick/internal/state"
	"stylepick/pkg/stylepick"
)

// Set at build time
var (
	version = "dev"
	gitHash = "unknown"
)

// initializeAppContext prepares application context before command execution but
// after command line has been parsed
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	if cmd.NArg() == 0 {
		// nothing to do, just return
		return ctx, nil
	}

	env := state.EnvFromContext(ctx)

	configFile := cmd.String("config")
	if env.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if cmd.Bool("debug") {
		env.Cfg.Logging.ConsoleLogger.Level = "debug"
	}
	if f := cmd.String("format"); f != "" {
		env.Cfg.Output.Format = f
	}
	if env.Log, err = env.Cfg.Logging.Prepare(); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.RedirectStdLog()
	env.Editor = stylepick.New(env.Cfg, env.Log)

	env.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", version), zap.String("runtime", runtime.Version()), zap.String("hash", gitHash))
	if len(configFile) == 0 {
		env.Log.Debug("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	env.RestoreStdLog()
	return nil
}

// Errors from subcommands are regular errors, this is called before the
// application context is destroyed so they can be logged.
var errWasHandled bool

func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	env := state.EnvFromContext(ctx)
	if env.Cfg != nil && env.Cfg.Logging.ConsoleLogger.Level != "none" {
		env.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return err
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:            config.AppName,
		Usage:           "shows and edits CSS rules applying to a single HTML element",
		Version:         version + " (" + runtime.Version() + ") : " + gitHash,
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log debug messages to console"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "output `FORMAT` (text, json, yaml), overrides configuration"},
		},
		Commands: []*cli.Command{
			{
				Name:         "elements",
				Usage:        "Lists elements of HTML file with their indexes",
				OnUsageError: usageErrorHandler,
				Action:       listElements,
				ArgsUsage:    "FILE.html",
			},
			{
				Name:         "rules",
				Usage:        "Prints stylesheet rules applying to an element",
				OnUsageError: usageErrorHandler,
				Action:       showRules,
				ArgsUsage:    "FILE.html INDEX",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "generation", Aliases: []string{"g"}, Usage: "reject INDEX unless document is still at `ID` (as printed by elements)"},
					&cli.StringSliceFlag{Name: "css", Usage: "use stylesheet `FILE` instead of discovering them, may be repeated"},
				},
			},
			{
				Name:         "apply",
				Usage:        "Merges edited rules back into stylesheets",
				OnUsageError: usageErrorHandler,
				Action:       applyRules,
				ArgsUsage:    "FILE.html EDITED.css",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "dry-run", Aliases: []string{"n"}, Usage: "print merged stylesheets instead of writing them"},
					&cli.StringSliceFlag{Name: "css", Usage: "merge into stylesheet `FILE` instead of discovering them, may be repeated"},
				},
				CustomHelpTemplate: fmt.Sprintf(`%s
EDITED.css:
    file with edited rules, "-" reads them from STDIN

Rules are matched to existing ones by their selectors. A rule with the same
selectors is replaced in place, any other rule is appended. Changing selectors
of a rule therefore adds a new rule and leaves the old one in place.
`, cli.CommandHelpTemplate),
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	var err error
	// NOTE: os.Exit is called at the end of main to set exit code, make sure
	// there are no other deffered functions after that
	defer func() {
		stop()
		if err != nil {
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = newApp().Run(ctx, os.Args)
}
