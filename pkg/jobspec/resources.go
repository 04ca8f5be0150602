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
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
)

// ResourceOverride carries replacement cpu and memory limits for exactly one
// container. Quantities are forwarded as-is; their grammar belongs to the
// API machinery, not to this engine.
type ResourceOverride struct {
	Container string
	CPU       resource.Quantity
	Memory    resource.Quantity
}

// ApplyResourceOverride upserts the cpu and memory limits of the named
// container. A container without a limits block gets one holding exactly
// these two keys; an existing block keeps every unrelated key. Requests are
// never touched, whether present or absent.
func ApplyResourceOverride(spec *batchv1.JobSpec, override ResourceOverride) error {
	containers := spec.Template.Spec.Containers
	target := -1
	for i := range containers {
		if containers[i].Name == override.Container {
			target = i
		}
	}
	if target < 0 {
		return fmt.Errorf("%w: %q", ErrContainerNotFound, override.Container)
	}

	limits := containers[target].Resources.Limits
	if limits == nil {
		limits = make(corev1.ResourceList, 2)
		containers[target].Resources.Limits = limits
	}
	limits[corev1.ResourceCPU] = override.CPU
	limits[corev1.ResourceMemory] = override.Memory

	return nil
}
