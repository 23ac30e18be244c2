// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package kubernetes

// PropertyPrefix is the stable prefix of every Kubernetes-scoped deployment
// property key. The dotted keys underneath it form the wire contract with
// callers and must stay stable, including the per-aspect aliases.
const PropertyPrefix = "deployer.kubernetes"

func propertyKey(aspect string) string {
	return PropertyPrefix + "." + aspect
}

// Request-scoped aspect keys (full key is PropertyPrefix + "." + name).
var (
	keyVolumes                  = propertyKey("volumes")
	keyVolumeMounts             = propertyKey("volumeMounts")
	keyTolerations              = propertyKey("tolerations")
	keyNodeAffinity             = propertyKey("affinity.nodeAffinity")
	keyPodAffinity              = propertyKey("affinity.podAffinity")
	keyPodAntiAffinity          = propertyKey("affinity.podAntiAffinity")
	keyPodSecurityContext       = propertyKey("podSecurityContext")
	keyContainerSecurityContext = propertyKey("containerSecurityContext")
	keyImagePullPolicy          = propertyKey("imagePullPolicy")
	keyImagePullSecret          = propertyKey("imagePullSecret")
	keyImagePullSecrets         = propertyKey("imagePullSecrets")
	keyServiceAccountName       = propertyKey("deploymentServiceAccountName")
	keyEntryPointStyle          = propertyKey("entryPointStyle")
	keyRestartPolicy            = propertyKey("restartPolicy")
	keyGracePeriod              = propertyKey("terminationGracePeriodSeconds")
	keyHostNetwork              = propertyKey("hostNetwork")
	keyPriorityClassName        = propertyKey("priorityClassName")
	keyShareProcessNamespace    = propertyKey("shareProcessNamespace")
	keyEnvironmentVariables     = propertyKey("environmentVariables")
	keySecretKeyRefs            = propertyKey("secretKeyRefs")
	keyConfigMapKeyRefs         = propertyKey("configMapKeyRefs")
	keySecretRefs               = propertyKey("secretRefs")
	keyConfigMapRefs            = propertyKey("configMapRefs")
	keyInitContainer            = propertyKey("initContainer")
	keyInitContainers           = propertyKey("initContainers")
	keyAdditionalContainers     = propertyKey("containers")
	keyPostStartCommand         = propertyKey("lifecycle.postStart.exec.command")
	keyPreStopCommand           = propertyKey("lifecycle.preStop.exec.command")
	keyDeploymentLabels         = propertyKey("deploymentLabels")
	keyPodAnnotations           = propertyKey("podAnnotations")
	keyServiceAnnotations       = propertyKey("serviceAnnotations")
	keyJobAnnotations           = propertyKey("jobAnnotations")
	keyGPUVendor                = propertyKey("limits.gpuVendor")
	keyGPUCount                 = propertyKey("limits.gpuCount")
	keyContainerPorts           = propertyKey("containerPorts")
	keyCreateJob                = propertyKey("createJob")
	keyBackoffLimit             = propertyKey("backoffLimit")
	keyTTLSecondsAfterFinished  = propertyKey("ttlSecondsAfterFinished")
	keyTaskServiceAccountName   = propertyKey("taskServiceAccountName")

	keyStatefulSetInitContainerImage = propertyKey("statefulSetInitContainerImageName")
	keyVolumeClaimStorage            = propertyKey("statefulSet.volumeClaimTemplate.storage")
	keyVolumeClaimStorageClassName   = propertyKey("statefulSet.volumeClaimTemplate.storageClassName")
)

// nodeSelectorKeys are the accepted spellings for the node selector aspect,
// tried strictly in this order; the first non-blank value wins. The list is
// deliberately explicit so the alias set stays auditable.
var nodeSelectorKeys = []string{
	propertyKey("deployment.nodeSelector"),
	propertyKey("deployment.node-selector"),
	propertyKey("deploymentNodeSelector"),
	propertyKey("deployment.nodeselector"),
}

// limitKeys and requestKeys enumerate the resource names addressable under
// limits.* and requests.*.
var (
	resourceNames = []string{"cpu", "memory", "ephemeral-storage", "hugepages-2Mi", "hugepages-1Gi"}
)

func limitKey(resourceName string) string {
	return propertyKey("limits." + resourceName)
}

func requestKey(resourceName string) string {
	return propertyKey("requests." + resourceName)
}
