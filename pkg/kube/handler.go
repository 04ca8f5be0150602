// Copyright 2026 The Bakkutteh Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package kube wraps the typed Kubernetes client with the handful of
// namespace-scoped operations the dispatch flow needs.
package kube

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	batchv1 "k8s.io/api/batch/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/shigedangao/bakkutteh/pkg/jobspec"
)

var (
	// ErrAlreadyExists indicates a job with the derived name is present in
	// the namespace and the user chose to keep it.
	ErrAlreadyExists = errors.New("a job with this name already exists")

	// ErrSubmissionFailed indicates the API server rejected the job. The
	// rejection is terminal; the flow never retries a submission.
	ErrSubmissionFailed = errors.New("job submission failed")
)

// Handler scopes all cluster operations to a single namespace. Fields are
// exported so tests can plug in a fake clientset.
type Handler struct {
	Client    kubernetes.Interface
	Namespace string
	DryRun    bool
}

// NewHandler connects to the cluster and scopes the handler to the given
// namespace. Service account config wins when running inside a cluster;
// otherwise the standard kubeconfig loading chain applies.
func NewHandler(namespace string, dryRun bool) (*Handler, error) {
	cfg, err := clusterConfig()
	if err != nil {
		return nil, err
	}

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build kubernetes client")
	}

	return &Handler{
		Client:    clientset,
		Namespace: namespace,
		DryRun:    dryRun,
	}, nil
}

func clusterConfig() (*rest.Config, error) {
	if cfg, err := rest.InClusterConfig(); err == nil {
		return cfg, nil
	}

	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		clientcmd.NewDefaultClientConfigLoadingRules(),
		&clientcmd.ConfigOverrides{},
	).ClientConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load kubeconfig")
	}
	return cfg, nil
}

// GetJob fetches a job by name. Errors surface unwrapped so callers can
// branch on not-found.
func (h *Handler) GetJob(ctx context.Context, name string) (*batchv1.Job, error) {
	return h.Client.BatchV1().Jobs(h.Namespace).Get(ctx, name, metav1.GetOptions{})
}

// DeleteJob removes a job and its pods.
func (h *Handler) DeleteJob(ctx context.Context, name string) error {
	propagation := metav1.DeletePropagationBackground
	err := h.Client.BatchV1().Jobs(h.Namespace).Delete(ctx, name, metav1.DeleteOptions{
		PropagationPolicy: &propagation,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to delete job %s", name)
	}

	logrus.Infof("Deleted existing job %s", name)
	return nil
}

// CreateJob submits the job, as a server-side dry run when the handler is in
// dry-run mode, and returns the object the API server answered with.
func (h *Handler) CreateJob(ctx context.Context, job *batchv1.Job) (*batchv1.Job, error) {
	opts := metav1.CreateOptions{}
	if h.DryRun {
		opts.DryRun = []string{metav1.DryRunAll}
	}

	created, err := h.Client.BatchV1().Jobs(h.Namespace).Create(ctx, job, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: job %q: %w", ErrSubmissionFailed, job.Name, err)
	}
	return created, nil
}

// ListCronJobs returns the names of the cronjobs in the namespace, sorted
// so the selection prompt is stable.
func (h *Handler) ListCronJobs(ctx context.Context) ([]string, error) {
	list, err := h.Client.BatchV1().CronJobs(h.Namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list cronjobs in namespace %s", h.Namespace)
	}

	names := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		names = append(names, item.Name)
	}
	sort.Strings(names)
	return names, nil
}

// ListDeployments returns the names of the deployments in the namespace,
// sorted so the selection prompt is stable.
func (h *Handler) ListDeployments(ctx context.Context) ([]string, error) {
	list, err := h.Client.AppsV1().Deployments(h.Namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list deployments in namespace %s", h.Namespace)
	}

	names := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		names = append(names, item.Name)
	}
	sort.Strings(names)
	return names, nil
}

// CronJobTemplate fetches a cronjob and derives the job spec its controller
// would run. Not-found passes through for the caller to report.
func (h *Handler) CronJobTemplate(ctx context.Context, name string) (*batchv1.JobSpec, error) {
	cronJob, err := h.Client.BatchV1().CronJobs(h.Namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, err
	}

	logrus.Debugf("Deriving job spec from cronjob %s", name)
	return jobspec.FromCronJob(cronJob)
}

// DeploymentTemplate fetches a deployment and derives a one-off job spec
// from its pod template. Not-found passes through for the caller to report.
func (h *Handler) DeploymentTemplate(ctx context.Context, name string) (*batchv1.JobSpec, error) {
	deployment, err := h.Client.AppsV1().Deployments(h.Namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, err
	}

	logrus.Debugf("Deriving job spec from deployment %s", name)
	return jobspec.FromDeployment(deployment)
}
