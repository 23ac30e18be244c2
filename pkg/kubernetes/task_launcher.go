// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

package kubernetes

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/client-go/kubernetes"

	api "go.opendefense.cloud/skipper/api/deployer"
	skipperdeployer "go.opendefense.cloud/skipper/pkg/deployer"
	"go.opendefense.cloud/skipper/pkg/observability"
)

// TaskLauncher implements the task launching SPI against one Kubernetes
// namespace. Each launch creates a batch Job, or a bare pod when job
// creation is disabled, under a fresh execution id; the task's app name is
// carried on every object so all executions of one task remain addressable
// together.
type TaskLauncher struct {
	client  kubernetes.Interface
	props   *DeployerProperties
	builder *SpecBuilder
	resolve *Resolver
	log     logr.Logger
}

var _ api.TaskLauncher = (*TaskLauncher)(nil)

// logger prefers a caller-scoped logger from the context over the one the
// launcher was constructed with.
func (l *TaskLauncher) logger(ctx context.Context) logr.Logger {
	return observability.LoggerFromContextOrDefault(ctx, l.log)
}

// NewTaskLauncher creates a TaskLauncher over the given clientset and global
// properties.
func NewTaskLauncher(client kubernetes.Interface, props *DeployerProperties, log logr.Logger) *TaskLauncher {
	factory := NewContainerFactory(props)
	return &TaskLauncher{
		client:  client,
		props:   props,
		builder: NewSpecBuilder(props, factory),
		resolve: NewResolver(props, log),
		log:     log,
	}
}

// Launch submits one task execution. It fails with a StateError when the
// concurrency cap is reached and with a StateError when the resolved restart
// policy is Always, which a finite job cannot honor.
func (l *TaskLauncher) Launch(ctx context.Context, request api.AppDeploymentRequest) (string, error) {
	taskName := skipperdeployer.SanitizeName(request.Definition().Name())
	id := skipperdeployer.TaskExecutionID(request.Definition().Name())
	log := l.logger(ctx).WithValues("taskId", id)

	running, err := l.CurrentExecutionCount(ctx)
	if err != nil {
		return "", err
	}
	if maximum := l.MaximumConcurrentTasks(); running >= maximum {
		return "", api.NewStateError(id, fmt.Sprintf("cannot launch task, %d executions running at maximum %d", running, maximum))
	}

	resolved, err := l.resolve.Resolve(request)
	if err != nil {
		return "", err
	}
	createJob, backoffLimit, ttl, err := l.resolveJobSettings(request.DeploymentProperties())
	if err != nil {
		return "", err
	}
	if createJob && resolved.RestartPolicy == corev1.RestartPolicyAlways {
		return "", api.NewStateError(id, "restart policy Always is incompatible with a finite task job")
	}

	serviceAccount := l.taskServiceAccountName(request.DeploymentProperties())
	podSpec, err := l.builder.BuildPodSpec(request, resolved, serviceAccount)
	if err != nil {
		return "", err
	}

	if createJob {
		job := l.builder.BuildJob(id, taskName, resolved, podSpec, backoffLimit, ttl)
		if _, err := l.client.BatchV1().Jobs(l.props.Namespace).Create(ctx, job, metav1.CreateOptions{}); err != nil {
			log.Error(err, "creating job")
			return "", fmt.Errorf("creating job for %s: %w", id, err)
		}
	} else {
		pod := l.builder.BuildTaskPod(id, taskName, resolved, podSpec)
		if _, err := l.client.CoreV1().Pods(l.props.Namespace).Create(ctx, pod, metav1.CreateOptions{}); err != nil {
			log.Error(err, "creating pod")
			return "", fmt.Errorf("creating pod for %s: %w", id, err)
		}
	}

	log.Info("launched task", "job", createJob)
	return id, nil
}

func (l *TaskLauncher) taskServiceAccountName(props map[string]string) string {
	if v, ok := props[keyTaskServiceAccountName]; ok && strings.TrimSpace(v) != "" {
		return v
	}
	return l.props.TaskServiceAccountName
}

// resolveJobSettings reads the job-shaping properties off the request with
// the global properties as fallback.
func (l *TaskLauncher) resolveJobSettings(props map[string]string) (createJob bool, backoffLimit, ttl *int32, err error) {
	createJob = l.props.CreateJob
	if raw, ok := props[keyCreateJob]; ok && strings.TrimSpace(raw) != "" {
		createJob, err = strconv.ParseBool(raw)
		if err != nil {
			return false, nil, nil, api.WrapConfigurationError(keyCreateJob, raw, "must be a boolean", err)
		}
	}
	backoffLimit = l.props.BackoffLimit
	if raw, ok := props[keyBackoffLimit]; ok && strings.TrimSpace(raw) != "" {
		limit, convErr := strconv.ParseInt(raw, 10, 32)
		if convErr != nil {
			return false, nil, nil, api.WrapConfigurationError(keyBackoffLimit, raw, "must be an integer", convErr)
		}
		value := int32(limit)
		backoffLimit = &value
	}
	ttl = l.props.TTLSecondsAfterFinished
	if raw, ok := props[keyTTLSecondsAfterFinished]; ok && strings.TrimSpace(raw) != "" {
		seconds, convErr := strconv.ParseInt(raw, 10, 32)
		if convErr != nil {
			return false, nil, nil, api.WrapConfigurationError(keyTTLSecondsAfterFinished, raw, "must be an integer number of seconds", convErr)
		}
		value := int32(seconds)
		ttl = &value
	}
	return createJob, backoffLimit, ttl, nil
}

// Cancel stops a running execution by removing its objects. Cancelling an
// execution that no longer exists is not an error.
func (l *TaskLauncher) Cancel(ctx context.Context, id string) error {
	if err := l.deleteExecution(ctx, metav1.ListOptions{LabelSelector: selectorFor(id)}); err != nil {
		return err
	}
	l.logger(ctx).Info("cancelled task", "taskId", id)
	return nil
}

// Cleanup removes the objects left behind by one finished execution. Safe to
// call when nothing exists.
func (l *TaskLauncher) Cleanup(ctx context.Context, id string) error {
	return l.deleteExecution(ctx, metav1.ListOptions{LabelSelector: selectorFor(id)})
}

// Destroy removes every execution object of the named task, across all of
// its executions.
func (l *TaskLauncher) Destroy(ctx context.Context, appName string) error {
	selector := labels.Set{TaskNameLabel: skipperdeployer.SanitizeName(appName)}.String()
	if err := l.deleteExecution(ctx, metav1.ListOptions{LabelSelector: selector}); err != nil {
		return err
	}
	l.logger(ctx).Info("destroyed task", "taskName", appName)
	return nil
}

func (l *TaskLauncher) deleteExecution(ctx context.Context, listOpts metav1.ListOptions) error {
	ns := l.props.Namespace
	policy := metav1.DeletePropagationBackground
	deleteOpts := metav1.DeleteOptions{PropagationPolicy: &policy}

	jobs, err := l.client.BatchV1().Jobs(ns).List(ctx, listOpts)
	if err != nil {
		return fmt.Errorf("listing jobs: %w", err)
	}
	for _, job := range jobs.Items {
		if err := l.client.BatchV1().Jobs(ns).Delete(ctx, job.Name, deleteOpts); err != nil && !apierrors.IsNotFound(err) {
			return fmt.Errorf("deleting job %s: %w", job.Name, err)
		}
	}

	pods, err := l.client.CoreV1().Pods(ns).List(ctx, listOpts)
	if err != nil {
		return fmt.Errorf("listing pods: %w", err)
	}
	for _, pod := range pods.Items {
		if err := l.client.CoreV1().Pods(ns).Delete(ctx, pod.Name, metav1.DeleteOptions{}); err != nil && !apierrors.IsNotFound(err) {
			return fmt.Errorf("deleting pod %s: %w", pod.Name, err)
		}
	}
	return nil
}

// Status reports the live state of one execution, from the job's counters
// when a job exists and from the pod phase otherwise. An unknown id yields
// state unknown.
func (l *TaskLauncher) Status(ctx context.Context, id string) (api.TaskStatus, error) {
	ns := l.props.Namespace

	job, err := l.client.BatchV1().Jobs(ns).Get(ctx, id, metav1.GetOptions{})
	if err == nil {
		return api.TaskStatus{ID: id, State: launchStateForJob(job)}, nil
	}
	if !apierrors.IsNotFound(err) {
		l.logger(ctx).Error(err, "reading job", "taskId", id)
		return api.TaskStatus{}, fmt.Errorf("reading job %s: %w", id, err)
	}

	pods, err := l.client.CoreV1().Pods(ns).List(ctx, metav1.ListOptions{LabelSelector: selectorFor(id)})
	if err != nil {
		return api.TaskStatus{}, fmt.Errorf("listing pods for %s: %w", id, err)
	}
	if len(pods.Items) == 0 {
		return api.TaskStatus{ID: id, State: api.LaunchStateUnknown}, nil
	}
	pod := &pods.Items[0]
	status := api.TaskStatus{ID: id, State: launchStateForPod(pod)}
	return status.WithAttributes(map[string]string{
		"pod.name": pod.Name,
		"phase":    string(pod.Status.Phase),
	}), nil
}

// Log returns a bounded tail of the execution's pod logs. An unknown id
// yields an empty string.
func (l *TaskLauncher) Log(ctx context.Context, id string) (string, error) {
	pods, err := l.client.CoreV1().Pods(l.props.Namespace).List(ctx, metav1.ListOptions{LabelSelector: selectorFor(id)})
	if err != nil {
		return "", fmt.Errorf("listing pods for %s: %w", id, err)
	}
	tail := l.props.MaxLogLines
	var buf bytes.Buffer
	for i := range pods.Items {
		pod := &pods.Items[i]
		req := l.client.CoreV1().Pods(pod.Namespace).GetLogs(pod.Name, &corev1.PodLogOptions{TailLines: &tail})
		data, err := req.DoRaw(ctx)
		if err != nil {
			l.logger(ctx).V(1).Info("skipping unavailable log", "pod", pod.Name, "reason", err.Error())
			continue
		}
		buf.Write(data)
	}
	return buf.String(), nil
}

// CurrentExecutionCount counts the task pods currently in a non-terminal
// phase across all tasks in the namespace.
func (l *TaskLauncher) CurrentExecutionCount(ctx context.Context) (int, error) {
	selector := labels.Set{AppKindLabel: kindTask}.String()
	pods, err := l.client.CoreV1().Pods(l.props.Namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return 0, fmt.Errorf("listing task pods: %w", err)
	}
	count := 0
	for i := range pods.Items {
		switch pods.Items[i].Status.Phase {
		case corev1.PodSucceeded, corev1.PodFailed:
		default:
			count++
		}
	}
	return count, nil
}

// MaximumConcurrentTasks reports the configured concurrency cap.
func (l *TaskLauncher) MaximumConcurrentTasks() int {
	return l.props.MaximumConcurrentTasks
}

// EnvironmentInfo describes the targeted cluster.
func (l *TaskLauncher) EnvironmentInfo() api.RuntimeEnvironmentInfo {
	info := api.RuntimeEnvironmentInfo{
		PlatformType:       "Kubernetes",
		PlatformAPIVersion: "v1",
		SupportsScale:      false,
	}
	if version, err := l.client.Discovery().ServerVersion(); err == nil {
		info.PlatformHostVersion = version.GitVersion
	}
	return info
}
