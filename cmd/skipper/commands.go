// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	api "go.opendefense.cloud/skipper/api/deployer"
	"go.opendefense.cloud/skipper/pkg/config"
	"go.opendefense.cloud/skipper/pkg/deployer"
	"go.opendefense.cloud/skipper/pkg/observability"
)

// appOptions carry the request-shaping flags shared by deploy and launch.
type appOptions struct {
	image       string
	file        string
	appProps    []string
	deployProps []string
	cliArgs     []string
	wait        bool
}

func (o *appOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.image, "image", "", "Container image to deploy (Kubernetes platform)")
	cmd.Flags().StringVar(&o.file, "file", "", "Local executable to run (local platform)")
	cmd.Flags().StringArrayVar(&o.appProps, "app-prop", nil, "App property KEY=VALUE, repeatable")
	cmd.Flags().StringArrayVar(&o.deployProps, "deploy-prop", nil, "Deployment property KEY=VALUE, repeatable")
	cmd.Flags().StringArrayVar(&o.cliArgs, "arg", nil, "Command line argument for the app, repeatable")
	cmd.Flags().BoolVar(&o.wait, "wait", false, "Wait until the operation reaches a terminal state")
}

func (o *appOptions) buildRequest(name string) (api.AppDeploymentRequest, error) {
	var resource api.Resource
	switch {
	case o.image != "" && o.file != "":
		return api.AppDeploymentRequest{}, fmt.Errorf("--image and --file are mutually exclusive")
	case o.image != "":
		resource = api.NewDockerResource(o.image)
	case o.file != "":
		resource = api.NewFileResource(o.file)
	default:
		return api.AppDeploymentRequest{}, fmt.Errorf("one of --image or --file is required")
	}

	appProps, err := parsePairs(o.appProps)
	if err != nil {
		return api.AppDeploymentRequest{}, fmt.Errorf("parsing --app-prop: %w", err)
	}
	deployProps, err := parsePairs(o.deployProps)
	if err != nil {
		return api.AppDeploymentRequest{}, fmt.Errorf("parsing --deploy-prop: %w", err)
	}

	return api.NewAppDeploymentRequestWithArgs(
		api.NewAppDefinition(name, appProps),
		resource,
		deployProps,
		o.cliArgs,
	), nil
}

func parsePairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("entry %q is not in KEY=VALUE form", pair)
		}
		out[key] = value
	}
	return out, nil
}

// withBackends loads config, builds the logger and backends and runs fn.
// The logger rides on the context so the backends log with the
// invocation's settings.
func withBackends(opts *rootOptions, fn func(ctx context.Context, env *commandEnv) error) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	b, err := newBackends(opts.platform, cfg, log)
	if err != nil {
		return err
	}
	ctx := observability.ContextWithLogger(context.Background(), log)
	return fn(ctx, &commandEnv{cfg: cfg, log: log, backends: b})
}

// commandEnv is the assembled runtime of one CLI invocation.
type commandEnv struct {
	cfg      config.Config
	log      logr.Logger
	backends *backends
}

func newDeployCommand(opts *rootOptions) *cobra.Command {
	appOpts := &appOptions{}
	cmd := &cobra.Command{
		Use:   "deploy [app-name]",
		Short: "Deploy a long-running application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackends(opts, func(ctx context.Context, env *commandEnv) error {
				request, err := appOpts.buildRequest(args[0])
				if err != nil {
					return err
				}
				id, err := env.backends.deployer.Deploy(ctx, request)
				if err != nil {
					return err
				}
				fmt.Printf("Deployed %s\n", id)

				if appOpts.wait {
					state, err := deployer.PollAppStatus(ctx, env.log, env.cfg.StatusPollInterval.Duration(), uint64(env.cfg.StatusPollAttempts),
						func(ctx context.Context) (api.AppStatus, error) {
							return env.backends.deployer.Status(ctx, id)
						})
					if err != nil {
						return err
					}
					fmt.Printf("State: %s\n", state)
				}
				return nil
			})
		},
	}
	appOpts.addFlags(cmd)
	return cmd
}

func newUndeployCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "undeploy [deployment-id]",
		Short: "Remove a deployed application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackends(opts, func(ctx context.Context, env *commandEnv) error {
				if err := env.backends.deployer.Undeploy(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("Undeployed %s\n", args[0])
				return nil
			})
		},
	}
}

func newStatusCommand(opts *rootOptions) *cobra.Command {
	var task bool
	cmd := &cobra.Command{
		Use:   "status [id]",
		Short: "Show the live state of a deployment or task execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackends(opts, func(ctx context.Context, env *commandEnv) error {
				if task {
					status, err := env.backends.launcher.Status(ctx, args[0])
					if err != nil {
						return err
					}
					fmt.Printf("%s: %s\n", status.ID, status.State)
					printAttributes(status.Attributes)
					return nil
				}

				status, err := env.backends.deployer.Status(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("%s: %s\n", status.DeploymentID, status.State())
				ids := make([]string, 0, len(status.Instances))
				for id := range status.Instances {
					ids = append(ids, id)
				}
				sort.Strings(ids)
				for _, id := range ids {
					inst := status.Instances[id]
					fmt.Printf("  %s: %s\n", inst.ID, inst.State)
					printAttributes(inst.Attributes)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&task, "task", false, "Query a task execution instead of an app deployment")
	return cmd
}

func printAttributes(attrs map[string]string) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("    %s=%s\n", k, attrs[k])
	}
}

func newScaleCommand(opts *rootOptions) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "scale [deployment-id]",
		Short: "Scale a deployed application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackends(opts, func(ctx context.Context, env *commandEnv) error {
				if err := env.backends.deployer.Scale(ctx, api.AppScaleRequest{DeploymentID: args[0], Count: count}); err != nil {
					return err
				}
				fmt.Printf("Scaled %s to %d\n", args[0], count)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&count, "count", 1, "Desired instance count")
	_ = cmd.MarkFlagRequired("count")
	return cmd
}

func newLogsCommand(opts *rootOptions) *cobra.Command {
	var task bool
	cmd := &cobra.Command{
		Use:   "logs [id]",
		Short: "Print a bounded tail of an app's or task's logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackends(opts, func(ctx context.Context, env *commandEnv) error {
				var logOutput string
				var err error
				if task {
					logOutput, err = env.backends.launcher.Log(ctx, args[0])
				} else {
					logOutput, err = env.backends.deployer.Log(ctx, args[0])
				}
				if err != nil {
					return err
				}
				fmt.Print(logOutput)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&task, "task", false, "Read a task execution's logs")
	return cmd
}

func newLaunchCommand(opts *rootOptions) *cobra.Command {
	appOpts := &appOptions{}
	cmd := &cobra.Command{
		Use:   "launch [task-name]",
		Short: "Launch a short-lived task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackends(opts, func(ctx context.Context, env *commandEnv) error {
				request, err := appOpts.buildRequest(args[0])
				if err != nil {
					return err
				}
				id, err := env.backends.launcher.Launch(ctx, request)
				if err != nil {
					return err
				}
				fmt.Printf("Launched %s\n", id)

				if appOpts.wait {
					state, err := deployer.PollTaskStatus(ctx, env.log, env.cfg.StatusPollInterval.Duration(), uint64(env.cfg.StatusPollAttempts),
						func(ctx context.Context) (api.TaskStatus, error) {
							return env.backends.launcher.Status(ctx, id)
						})
					if err != nil {
						return err
					}
					fmt.Printf("State: %s\n", state)
				}
				return nil
			})
		},
	}
	appOpts.addFlags(cmd)
	return cmd
}

func newCancelCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [task-id]",
		Short: "Cancel a running task execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackends(opts, func(ctx context.Context, env *commandEnv) error {
				if err := env.backends.launcher.Cancel(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("Cancelled %s\n", args[0])
				return nil
			})
		},
	}
}
