// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

// Package deployer defines the deployment SPI contract: the request and
// status types exchanged with a backend, the state enumerations, and the
// AppDeployer/TaskLauncher interfaces every runtime backend implements.
package deployer

import "maps"

// AppDefinition is the symbolic name of an application together with its
// app-level properties (the properties the application itself consumes, as
// opposed to properties that instruct the deployer).
type AppDefinition struct {
	name       string
	properties map[string]string
}

// NewAppDefinition creates an immutable AppDefinition. The properties map is
// copied so later mutation by the caller cannot leak into the definition.
func NewAppDefinition(name string, properties map[string]string) AppDefinition {
	return AppDefinition{
		name:       name,
		properties: maps.Clone(properties),
	}
}

// Name returns the symbolic application name.
func (d AppDefinition) Name() string {
	return d.name
}

// Properties returns a copy of the app-level properties. Never nil.
func (d AppDefinition) Properties() map[string]string {
	if d.properties == nil {
		return map[string]string{}
	}
	return maps.Clone(d.properties)
}

// AppDeploymentRequest is one request to deploy an application or launch a
// task. It is a value created once per call and never mutated afterwards.
type AppDeploymentRequest struct {
	definition           AppDefinition
	resource             Resource
	deploymentProperties map[string]string
	commandLineArgs      []string
}

// NewAppDeploymentRequest creates a request without command line arguments.
func NewAppDeploymentRequest(definition AppDefinition, resource Resource, deploymentProperties map[string]string) AppDeploymentRequest {
	return NewAppDeploymentRequestWithArgs(definition, resource, deploymentProperties, nil)
}

// NewAppDeploymentRequestWithArgs creates a request with ordered command line
// arguments. Maps and slices are copied.
func NewAppDeploymentRequestWithArgs(definition AppDefinition, resource Resource, deploymentProperties map[string]string, commandLineArgs []string) AppDeploymentRequest {
	var args []string
	if len(commandLineArgs) > 0 {
		args = make([]string, len(commandLineArgs))
		copy(args, commandLineArgs)
	}
	return AppDeploymentRequest{
		definition:           definition,
		resource:             resource,
		deploymentProperties: maps.Clone(deploymentProperties),
		commandLineArgs:      args,
	}
}

// Definition returns the application definition.
func (r AppDeploymentRequest) Definition() AppDefinition {
	return r.definition
}

// Resource returns the artifact reference to deploy.
func (r AppDeploymentRequest) Resource() Resource {
	return r.resource
}

// DeploymentProperties returns a copy of the deployer-directed properties.
// Never nil.
func (r AppDeploymentRequest) DeploymentProperties() map[string]string {
	if r.deploymentProperties == nil {
		return map[string]string{}
	}
	return maps.Clone(r.deploymentProperties)
}

// CommandLineArgs returns a copy of the ordered command line arguments.
func (r AppDeploymentRequest) CommandLineArgs() []string {
	if len(r.commandLineArgs) == 0 {
		return nil
	}
	args := make([]string, len(r.commandLineArgs))
	copy(args, r.commandLineArgs)
	return args
}

// AppScaleRequest asks a backend to scale a deployed application to a target
// instance count.
type AppScaleRequest struct {
	// DeploymentID identifies the deployment to scale.
	DeploymentID string
	// Count is the desired number of instances.
	Count int
	// Properties may carry backend-specific scale hints.
	Properties map[string]string
}
