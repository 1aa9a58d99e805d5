package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/raildispatch/internal/config"
	"github.com/tonimelisma/raildispatch/internal/obslog"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath  string
	flagLayoutFile  string
	flagTrainLog    string
	flagDispatchLog string
	flagRestart     bool
	flagDebug       bool
	flagQuiet       bool
)

// skipConfigAnnotation marks commands that handle config loading themselves.
const skipConfigAnnotation = "skipConfig"

// CLIContext bundles resolved config and logger, built once in
// PersistentPreRunE. Holder and LevelVar exist so serve can reload the
// config file and adjust the live log level on SIGHUP; other subcommands
// construct a CLIContext the same way but never reload.
type CLIContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Holder   *config.Holder
	LevelVar *slog.LevelVar
}

type cliContextKey struct{}

func cliContextFrom(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		return nil
	}

	return cc
}

func mustCLIContext(ctx context.Context) *CLIContext {
	cc := cliContextFrom(ctx)
	if cc == nil {
		panic("BUG: CLIContext not found in context — command must not skip config loading")
	}

	return cc
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "raildispatchd",
		Short:         "Distributed train dispatching coordination core",
		Long:          "Hosts the broker: layout graph, capacity manager, action state machine, and event-sourced persistence for a model-railway operating session.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipConfigAnnotation] == "true" {
				return nil
			}

			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path (TOML)")
	cmd.PersistentFlags().StringVar(&flagLayoutFile, "layout", "", "layout/timetable YAML fixture path")
	cmd.PersistentFlags().StringVar(&flagTrainLog, "train-events", "", "train-events CSV path")
	cmd.PersistentFlags().StringVar(&flagDispatchLog, "dispatch-events", "", "dispatch-events CSV path")
	cmd.PersistentFlags().BoolVar(&flagRestart, "restart", false, "restore state from the event logs before serving")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.MarkFlagsMutuallyExclusive("debug", "quiet")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newReplayCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the file -> env ->
// CLI-flag layers and stores the result in the command's context for use by
// subcommands.
func loadConfig(cmd *cobra.Command) error {
	bootstrap := obslog.Build(config.LoggingConfig{Level: "warn", Format: "text"})

	env := config.ReadEnvOverrides()
	configPath := config.ResolveConfigPath(env, flagConfigPath)

	cfg, err := config.LoadOrDefault(configPath, bootstrap)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg = env.Apply(cfg)

	cli := config.CLIOverrides{
		LayoutFile:         flagLayoutFile,
		TrainEventsFile:    flagTrainLog,
		DispatchEventsFile: flagDispatchLog,
		Restart:            flagRestart,
		RestartSet:         cmd.Flags().Changed("restart"),
		Debug:              flagDebug,
		Quiet:              flagQuiet,
	}

	cfg = cli.Apply(cfg)

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	levelVar := obslog.NewLevelVar(cfg.Logging)
	logger := obslog.BuildDynamic(cfg.Logging, levelVar)
	cc := &CLIContext{
		Cfg:      cfg,
		Logger:   logger,
		Holder:   config.NewHolder(cfg, configPath),
		LevelVar: levelVar,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

	return nil
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
