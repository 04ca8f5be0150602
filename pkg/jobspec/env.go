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
	"sort"

	"golang.org/x/exp/maps"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
)

// Value is one environment variable value lifted out of a container
// definition. Exactly two kinds exist: Literal, which the user may edit,
// and Ref, which points at an external source and passes through untouched.
type Value interface {
	isValue()
}

// Literal is an inline environment variable value.
type Literal string

// Ref is an environment variable backed by an external source such as a
// ConfigMap or Secret key. Refs are opaque to the engine: they survive
// reconciliation unchanged and are never offered for editing.
type Ref struct {
	Source *corev1.EnvVarSource
}

func (Literal) isValue() {}
func (Ref) isValue()     {}

// ContainerEnv is the editable environment of a single container. Index i of
// the slice returned by ExtractEnvironments always refers to container i of
// the template, and ApplyEnvironments enforces that pairing by name.
type ContainerEnv struct {
	Name string
	Vars map[string]Value
}

// SortedKeys returns the variable names in lexical order so prompting and
// merge-back stay deterministic across runs.
func (c ContainerEnv) SortedKeys() []string {
	keys := maps.Keys(c.Vars)
	sort.Strings(keys)
	return keys
}

// ExtractEnvironments lifts the declared environment of every container in
// the template into its editable form, one entry per container in template
// order. Inline values become Literal, valueFrom declarations become Ref
// holding a deep copy of the source. Declarations carrying neither a value
// nor a source are dropped; duplicate names keep the last declaration.
func ExtractEnvironments(spec *batchv1.JobSpec) []ContainerEnv {
	containers := spec.Template.Spec.Containers
	envs := make([]ContainerEnv, 0, len(containers))
	for _, container := range containers {
		vars := make(map[string]Value, len(container.Env))
		for _, env := range container.Env {
			switch {
			case env.Value != "":
				vars[env.Name] = Literal(env.Value)
			case env.ValueFrom != nil:
				vars[env.Name] = Ref{Source: env.ValueFrom.DeepCopy()}
			}
		}
		envs = append(envs, ContainerEnv{Name: container.Name, Vars: vars})
	}
	return envs
}

// ApplyEnvironments merges an edited environment set back into the template.
// An empty set is a no-op. Every container is paired with the entry at its
// own index and the names are cross-checked, so a reorder, rename or removal
// between extraction and merge-back fails with ErrContainerMismatch.
//
// Declarations already present in the template are overwritten in place and
// keep their position. Keys the template does not declare are appended as new
// literal entries in lexical order; a new Ref cannot be fabricated without a
// backing resource and is skipped. Applying the same set twice appends the
// net-new entries twice, so callers run this at most once per derivation.
func ApplyEnvironments(spec *batchv1.JobSpec, edited []ContainerEnv) error {
	if len(edited) == 0 {
		return nil
	}

	containers := spec.Template.Spec.Containers
	for i := range containers {
		container := &containers[i]
		if i >= len(edited) {
			return fmt.Errorf("%w: no entry for container %q at index %d", ErrContainerMismatch, container.Name, i)
		}
		if edited[i].Name != container.Name {
			return fmt.Errorf("%w: entry %d is %q, template has %q", ErrContainerMismatch, i, edited[i].Name, container.Name)
		}

		pending := maps.Clone(edited[i].Vars)
		for j := range container.Env {
			env := &container.Env[j]
			value, ok := pending[env.Name]
			if !ok {
				continue
			}
			switch v := value.(type) {
			case Literal:
				env.Value = string(v)
			case Ref:
				env.ValueFrom = v.Source
			}
			delete(pending, env.Name)
		}

		remaining := maps.Keys(pending)
		sort.Strings(remaining)
		for _, name := range remaining {
			lit, ok := pending[name].(Literal)
			if !ok {
				continue
			}
			container.Env = append(container.Env, corev1.EnvVar{Name: name, Value: string(lit)})
		}
	}
	return nil
}
