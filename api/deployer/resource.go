// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package deployer

import (
	"fmt"
	"strings"
)

// Resource is an opaque artifact reference. How a resource is resolved
// (registry, repository, local file) is outside the SPI; backends only pass
// the reference through to the platform.
type Resource interface {
	// URI returns the artifact URI, e.g. "docker:ghcr.io/acme/app:1.2.3"
	// or "file:///opt/apps/app.jar".
	URI() (string, error)
	// File returns a local filesystem path for the artifact, if it has one.
	File() (string, error)
}

// DockerResource references a container image. It carries no local file.
type DockerResource struct {
	image string
}

// NewDockerResource creates a DockerResource from an image reference, with or
// without the "docker:" scheme prefix.
func NewDockerResource(image string) DockerResource {
	return DockerResource{image: strings.TrimPrefix(image, "docker:")}
}

// Image returns the bare image reference without the scheme.
func (r DockerResource) Image() string {
	return r.image
}

// URI returns the image reference in "docker:" URI form.
func (r DockerResource) URI() (string, error) {
	return "docker:" + r.image, nil
}

// File returns an error: container images have no local file representation.
func (r DockerResource) File() (string, error) {
	return "", fmt.Errorf("docker resource %q has no local file", r.image)
}

// FileResource references an artifact on the local filesystem.
type FileResource struct {
	path string
}

// NewFileResource creates a FileResource for the given path.
func NewFileResource(path string) FileResource {
	return FileResource{path: path}
}

// URI returns the path in "file://" URI form.
func (r FileResource) URI() (string, error) {
	return "file://" + r.path, nil
}

// File returns the local path.
func (r FileResource) File() (string, error) {
	return r.path, nil
}
