// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/go-logr/logr"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	api "go.opendefense.cloud/skipper/api/deployer"
	"go.opendefense.cloud/skipper/pkg/config"
	k8sbackend "go.opendefense.cloud/skipper/pkg/kubernetes"
	"go.opendefense.cloud/skipper/pkg/local"
)

// backends bundles the deployer and launcher for one platform.
type backends struct {
	deployer api.AppDeployer
	launcher api.TaskLauncher
}

// newBackends constructs the SPI implementations for the selected platform.
func newBackends(platform string, cfg config.Config, log logr.Logger) (*backends, error) {
	switch platform {
	case "kubernetes":
		return newKubernetesBackends(cfg, log)
	case "local":
		props := local.DefaultDeployerProperties()
		return &backends{
			deployer: local.NewAppDeployer(props, log),
			launcher: local.NewTaskLauncher(props, log),
		}, nil
	default:
		return nil, fmt.Errorf("unknown platform %q: must be kubernetes or local", platform)
	}
}

func newKubernetesBackends(cfg config.Config, log logr.Logger) (*backends, error) {
	restConfig, err := clusterConfig(cfg.Kubernetes)
	if err != nil {
		return nil, err
	}
	client, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("creating Kubernetes client: %w", err)
	}

	props, err := deployerProperties(cfg)
	if err != nil {
		return nil, err
	}
	return &backends{
		deployer: k8sbackend.NewAppDeployer(client, props, log),
		launcher: k8sbackend.NewTaskLauncher(client, props, log),
	}, nil
}

func clusterConfig(cfg config.KubernetesConfig) (*rest.Config, error) {
	if cfg.InCluster {
		restConfig, err := rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("loading in-cluster config: %w", err)
		}
		return restConfig, nil
	}

	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if cfg.KubeConfig != "" {
		loadingRules.ExplicitPath = cfg.KubeConfig
	}
	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		loadingRules, &clientcmd.ConfigOverrides{},
	).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("loading kubeconfig: %w", err)
	}
	return restConfig, nil
}

// deployerProperties loads the global deployer defaults, overlaying the
// configured namespace.
func deployerProperties(cfg config.Config) (*k8sbackend.DeployerProperties, error) {
	props := k8sbackend.DefaultDeployerProperties()
	if cfg.DeployerPropertiesFile != "" {
		var err error
		props, err = k8sbackend.LoadDeployerProperties(cfg.DeployerPropertiesFile)
		if err != nil {
			return nil, err
		}
	}
	if cfg.Kubernetes.Namespace != "" {
		props.Namespace = cfg.Kubernetes.Namespace
	}
	return props, nil
}
