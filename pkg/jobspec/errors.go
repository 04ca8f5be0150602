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

import "errors"

// Sentinel errors returned by the reconciliation engine. Callers match them
// with errors.Is; every one of them is terminal for the current run.
var (
	// ErrMissingTemplate indicates the source workload carries no usable
	// pod template to derive a job from.
	ErrMissingTemplate = errors.New("source workload has no usable template")

	// ErrContainerMismatch indicates the edited environment set no longer
	// lines up with the template container list. The engine pairs entries
	// by index and cross-checks names, so any reorder, rename or removal
	// between extraction and merge-back surfaces here.
	ErrContainerMismatch = errors.New("environment set does not match template containers")

	// ErrContainerNotFound indicates a resource override names a container
	// that does not exist in the template.
	ErrContainerNotFound = errors.New("container not found in template")
)
