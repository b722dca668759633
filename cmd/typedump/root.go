package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/typedmem/heap"
	"github.com/wippyai/typedmem/instance"
)

// app carries the state shared by all subcommands.
type app struct {
	cfg        *config
	log        *zap.Logger
	configPath string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "typedump",
		Short: "Inspect, copy and reclaim typed instances",
		Long: `typedump builds instances of schema types in a heap, renders them in the
classic dump notation, deep-copies them and verifies that reclaiming
leaves no allocation behind.

Schemas are TOML files or wasm-tools WIT JSON. Value documents are TOML
or CBOR files of the form {type = "Name", values = [...]}.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default: ./typedump.yaml)")
	flags.String("model", "", "data model override: lp64 or ilp32")
	flags.String("log-level", defaultLogLevel, "log level: debug, info, warn, error")
	flags.String("backend", backendArena, "heap backend: arena or wazero")

	root.AddCommand(
		newTypesCmd(a),
		newDumpCmd(a),
		newCopyCmd(a),
		newBrowseCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configPath, cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	instance.SetLogger(log)
	heap.SetLogger(log)
	return nil
}

// newLogger builds a console logger on stderr at level. Debug uses the
// development encoder.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}
