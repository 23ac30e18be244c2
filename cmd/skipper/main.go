// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

// Package main is the entrypoint for skipper, a command line frontend for
// the deployment SPI: it deploys, scales and tears down apps and launches
// tasks against the Kubernetes or the local process backend.
package main

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"go.opendefense.cloud/skipper/pkg/config"
	"go.opendefense.cloud/skipper/pkg/observability"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// rootOptions carry the global flags shared by every subcommand.
type rootOptions struct {
	configFile string
	platform   string
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg := config.DefaultConfig()
	if o.configFile != "" {
		var err error
		cfg, err = config.LoadConfig(o.configFile)
		if err != nil {
			return cfg, err
		}
	}
	cfg = cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "skipper",
		Short: "Skipper - deploy apps and launch tasks across runtimes",
		Long: `Skipper deploys long-running applications and launches short-lived tasks
through one uniform contract, against a Kubernetes cluster or plain local
processes.

Deployment properties (deployer.* and deployer.kubernetes.* keys) shape how
an app lands on the platform; app properties are passed through to the
application itself.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Path to configuration file")
	cmd.PersistentFlags().StringVarP(&opts.platform, "platform", "p", "kubernetes", "Target platform (kubernetes or local)")

	cmd.AddCommand(newDeployCommand(opts))
	cmd.AddCommand(newUndeployCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))
	cmd.AddCommand(newScaleCommand(opts))
	cmd.AddCommand(newLogsCommand(opts))
	cmd.AddCommand(newLaunchCommand(opts))
	cmd.AddCommand(newCancelCommand(opts))
	cmd.AddCommand(newVersionCommand())
	cmd.AddCommand(newValidateCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("skipper %s\n", version)
			fmt.Printf("  commit:  %s\n", commit)
			fmt.Printf("  built:   %s\n", buildTime)
		},
	}
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(args[0])
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("validating config: %w", err)
			}

			fmt.Println("Configuration is valid")
			fmt.Printf("  Namespace: %s\n", cfg.Kubernetes.Namespace)
			fmt.Printf("  Poll interval: %s\n", cfg.StatusPollInterval.Duration())
			fmt.Printf("  Poll attempts: %d\n", cfg.StatusPollAttempts)
			return nil
		},
	}
}

func newLogger(cfg config.Config) (logr.Logger, error) {
	return observability.NewLogger(observability.LoggerConfig{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Encoding:    cfg.Logging.Format,
	})
}
