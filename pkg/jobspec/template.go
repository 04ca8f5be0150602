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

package jobspec

import (
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
)

// FromCronJob extracts the job spec a CronJob would hand to its controller.
// The result is a deep copy, so later reconciliation never writes back into
// the fetched object. The pod template passes through unchanged.
func FromCronJob(cronJob *batchv1.CronJob) (*batchv1.JobSpec, error) {
	spec := cronJob.Spec.JobTemplate.Spec.DeepCopy()
	if len(spec.Template.Spec.Containers) == 0 {
		return nil, fmt.Errorf("%w: cronjob %q declares no containers", ErrMissingTemplate, cronJob.Name)
	}
	return spec, nil
}

// FromDeployment wraps a deep copy of the deployment pod template in a fresh
// job spec. A job cannot run pods under the Always restart policy a
// deployment implies, so the policy is forced to Never regardless of what the
// deployment declares. Parallelism and completions stay unset.
func FromDeployment(deployment *appsv1.Deployment) (*batchv1.JobSpec, error) {
	template := deployment.Spec.Template.DeepCopy()
	if len(template.Spec.Containers) == 0 {
		return nil, fmt.Errorf("%w: deployment %q declares no containers", ErrMissingTemplate, deployment.Name)
	}
	template.Spec.RestartPolicy = corev1.RestartPolicyNever

	return &batchv1.JobSpec{Template: *template}, nil
}
