package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/npratt/mindmesh/internal/config"
)

var version = "dev"

// app carries what every command shares: the viper instance flags are bound
// to and the stderr logger.
type app struct {
	v        *viper.Viper
	logLevel *slog.LevelVar
	logger   *slog.Logger
}

func newApp() *app {
	logLevel := &slog.LevelVar{}
	v := viper.New()
	v.SetEnvPrefix("MINDMESH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	return &app{
		v:        v,
		logLevel: logLevel,
		logger:   newLogger(os.Stderr, logLevel),
	}
}

// bindFlags binds every flag of fs into viper under its own name.
func (a *app) bindFlags(fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = a.v.BindPFlag(f.Name, f)
	})
}

// loadConfig loads the layered config, applies the global flag overrides
// and resolves relative paths against the project root. Command-specific
// overrides are applied by each command.
func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if a.v.GetBool(FlagVerbose) {
		a.logLevel.Set(slog.LevelDebug)
		a.logger.Debug("verbose logging enabled")
	}

	cfg, err := config.LoadConfig(a.v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cmd.Flags().Changed(FlagLogFile) {
		cfg.Paths.Log = a.v.GetString(FlagLogFile)
	}
	if cmd.Flags().Changed(FlagStateFile) {
		cfg.Paths.State = a.v.GetString(FlagStateFile)
	}
	if cmd.Flags().Changed(FlagActivityFile) {
		cfg.Paths.Activity = a.v.GetString(FlagActivityFile)
	}

	cfg.Paths, err = cfg.Paths.Resolve(config.FindProjectRoot(""))
	if err != nil {
		return nil, fmt.Errorf("resolve paths: %w", err)
	}
	return cfg, nil
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mindmesh",
		Short: "Terminal mind map editor",
		Long: `mindmesh edits mind maps in the terminal: a tree of text nodes on an
infinite canvas that can be panned, zoomed and rearranged with the mouse.

Documents are stored as JSON, YAML, TOML or SQLite, chosen by file extension.`,
		SilenceUsage: true,
		// Flags are bound per invocation so subcommands sharing a flag
		// name each read their own.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.bindFlags(cmd.Flags())
		},
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().Bool(FlagVerbose, false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().String(FlagConfig, "", "Config file path (default: .mindmesh/config.yaml)")
	rootCmd.PersistentFlags().String(FlagLogFile, "", "Debug log file path")
	rootCmd.PersistentFlags().String(FlagStateFile, "", "Session state file path")
	rootCmd.PersistentFlags().String(FlagActivityFile, "", "Activity log file path")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mindmesh %s\n", version)
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			data, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(newEditCmd(a))
	rootCmd.AddCommand(newNewCmd(a))
	rootCmd.AddCommand(newTreeCmd(a))
	rootCmd.AddCommand(newValidateCmd(a))
	rootCmd.AddCommand(newConvertCmd(a))
	rootCmd.AddCommand(newLogCmd(a))

	return rootCmd
}

func main() {
	a := newApp()

	// .env is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		a.logger.Warn("failed to load .env", "error", err)
	}

	if err := newRootCmd(a).ExecuteContext(context.Background()); err != nil {
		a.logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
