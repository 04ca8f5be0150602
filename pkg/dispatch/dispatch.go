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

// Package dispatch drives one manual job derivation from start to finish:
// existence check, template derivation, interactive reconciliation, build,
// submission, and result display.
package dispatch

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	batchv1 "k8s.io/api/batch/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/shigedangao/bakkutteh/pkg/jobspec"
	"github.com/shigedangao/bakkutteh/pkg/kube"
	"github.com/shigedangao/bakkutteh/pkg/logging"
	"github.com/shigedangao/bakkutteh/pkg/prompt"
)

// Options holds all the parameters of one dispatch run.
type Options struct {
	// TargetName names the job to create; the final name gets the manual
	// suffix appended.
	TargetName string

	// SourceName is the workload to derive the job from. Empty triggers an
	// interactive pick from the workloads in the namespace.
	SourceName string

	// FromDeployment derives from a deployment pod template instead of a
	// cronjob job template.
	FromDeployment bool

	BackoffLimit     int32
	DryRun           bool
	DryRunOutputPath string
}

// Cluster is the slice of the cluster client the flow depends on. It is
// satisfied by kube.Handler.
type Cluster interface {
	GetJob(ctx context.Context, name string) (*batchv1.Job, error)
	DeleteJob(ctx context.Context, name string) error
	CreateJob(ctx context.Context, job *batchv1.Job) (*batchv1.Job, error)
	ListCronJobs(ctx context.Context) ([]string, error)
	ListDeployments(ctx context.Context) ([]string, error)
	CronJobTemplate(ctx context.Context, name string) (*batchv1.JobSpec, error)
	DeploymentTemplate(ctx context.Context, name string) (*batchv1.JobSpec, error)
}

var (
	createdColor      = color.New(color.FgHiCyan, color.Bold)
	dryRunHeaderColor = color.New(color.FgHiMagenta, color.Bold)
)

// Run executes one complete dispatch.
func Run(ctx context.Context, opts Options, cluster Cluster, prompter prompt.Prompter, fsys afero.Fs) error {
	jobName := jobspec.JobName(opts.TargetName)
	if err := ensureNameFree(ctx, cluster, prompter, jobName); err != nil {
		return err
	}

	spec, err := deriveSpec(ctx, opts, cluster, prompter)
	if err != nil {
		return err
	}

	envs := jobspec.ExtractEnvironments(spec)
	if err := editEnvironments(prompter, envs); err != nil {
		return err
	}
	if err := addExtraEnvironments(prompter, envs); err != nil {
		return err
	}
	if err := jobspec.ApplyEnvironments(spec, envs); err != nil {
		return err
	}

	if err := maybeOverrideResources(prompter, spec, containerNames(envs)); err != nil {
		return err
	}

	job := jobspec.BuildManualJob(opts.TargetName, spec, opts.BackoffLimit)
	created, err := cluster.CreateJob(ctx, job)
	if err != nil {
		return err
	}

	return display(opts, created, fsys)
}

// ensureNameFree checks whether the derived job name is taken. An existing
// job can be deleted after confirmation; declining keeps it and aborts.
func ensureNameFree(ctx context.Context, cluster Cluster, prompter prompt.Prompter, jobName string) error {
	_, err := cluster.GetJob(ctx, jobName)
	if apierrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check for existing job %q: %w", jobName, err)
	}

	remove, err := prompter.Confirm(fmt.Sprintf("A job named %q already exists. Delete it and continue?", jobName))
	if err != nil {
		return err
	}
	if !remove {
		return fmt.Errorf("%w: %s", kube.ErrAlreadyExists, jobName)
	}
	return cluster.DeleteJob(ctx, jobName)
}

// deriveSpec resolves the source workload, interactively when no name was
// given, and returns its normalized job spec.
func deriveSpec(ctx context.Context, opts Options, cluster Cluster, prompter prompt.Prompter) (*batchv1.JobSpec, error) {
	kind := "cronjob"
	list := cluster.ListCronJobs
	fetch := cluster.CronJobTemplate
	if opts.FromDeployment {
		kind = "deployment"
		list = cluster.ListDeployments
		fetch = cluster.DeploymentTemplate
	}

	name := opts.SourceName
	if name == "" {
		names, err := list(ctx)
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("no %s found to derive the job from", kind)
		}
		name, err = prompter.Select(fmt.Sprintf("Select the %s to use as the base of the job", kind), names)
		if err != nil {
			return nil, err
		}
	}

	spec, err := fetch(ctx, name)
	if apierrors.IsNotFound(err) {
		return nil, notFoundWithHint(ctx, kind, name, list)
	}
	return spec, err
}

// display reports the outcome: a short confirmation for a real submission,
// the rendered manifest for a dry run. With an output path set, the manifest
// goes to the file instead of stdout.
func display(opts Options, created *batchv1.Job, fsys afero.Fs) error {
	if !opts.DryRun {
		createdColor.Printf("Job %s created\n", created.Name)
		return nil
	}

	rendered, err := jobspec.RenderForInspection(created)
	if err != nil {
		return err
	}

	if opts.DryRunOutputPath != "" {
		if err := afero.WriteFile(fsys, opts.DryRunOutputPath, []byte(rendered), 0644); err != nil {
			return fmt.Errorf("failed to write dry run output to %s: %w", opts.DryRunOutputPath, err)
		}
		logging.Info("Dry run result for job %s written to %s", created.Name, opts.DryRunOutputPath)
		return nil
	}

	dryRunHeaderColor.Printf("Dry run result for job %s\n", created.Name)
	fmt.Println(rendered)
	return nil
}

func containerNames(envs []jobspec.ContainerEnv) []string {
	names := make([]string, 0, len(envs))
	for _, env := range envs {
		names = append(names, env.Name)
	}
	return names
}
