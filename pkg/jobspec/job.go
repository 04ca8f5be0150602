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
	batchv1 "k8s.io/api/batch/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
)

// manualSuffix marks jobs dispatched by hand. The derivation is fixed so the
// same target always maps to the same job name; the resulting name collision
// is what the pre-submission existence check keys on.
const manualSuffix = "-manual"

// JobName returns the name a manually dispatched job for target gets.
func JobName(target string) string {
	return target + manualSuffix
}

// BuildManualJob assembles the submittable Job around a reconciled spec. It
// only shapes the object; submission belongs to the caller.
func BuildManualJob(target string, spec *batchv1.JobSpec, backoffLimit int32) *batchv1.Job {
	job := &batchv1.Job{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "batch/v1",
			Kind:       "Job",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name: JobName(target),
		},
		Spec: *spec,
	}
	job.Spec.BackoffLimit = ptr.To(backoffLimit)

	return job
}
