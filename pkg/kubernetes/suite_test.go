// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestKubernetesBackend(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Kubernetes Backend Suite")
}
