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

	batchv1 "k8s.io/api/batch/v1"
	"sigs.k8s.io/yaml"
)

// Label keys the job controller stamps onto everything it touches. They tie
// the object to one controller instance, so a rendering meant for comparison
// across runs has to shed them.
const (
	legacyControllerUIDLabel = "controller-uid"
	batchControllerUIDLabel  = "batch.kubernetes.io/controller-uid"
)

// StripServerFields removes the server-side bookkeeping a created or fetched
// Job carries: field ownership metadata, the controller identity labels on
// the job and on its pod template, and the controller identity selector term.
// Stripping an already clean job changes nothing.
func StripServerFields(job *batchv1.Job) {
	job.ManagedFields = nil

	delete(job.Labels, legacyControllerUIDLabel)
	delete(job.Labels, batchControllerUIDLabel)
	delete(job.Spec.Template.Labels, legacyControllerUIDLabel)
	delete(job.Spec.Template.Labels, batchControllerUIDLabel)
	if job.Spec.Selector != nil {
		delete(job.Spec.Selector.MatchLabels, batchControllerUIDLabel)
	}
}

// RenderForInspection renders the job as a YAML document for dry-run review.
// The bookkeeping is stripped from a copy and key order is stable, so two
// renderings of the same logical job compare byte for byte.
func RenderForInspection(job *batchv1.Job) (string, error) {
	clean := job.DeepCopy()
	StripServerFields(clean)

	out, err := yaml.Marshal(clean)
	if err != nil {
		return "", fmt.Errorf("failed to render job %q: %w", job.Name, err)
	}
	return string(out), nil
}
