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

package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/fatih/color"
	batchv1 "k8s.io/api/batch/v1"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/shigedangao/bakkutteh/pkg/jobspec"
	"github.com/shigedangao/bakkutteh/pkg/prompt"
)

// envSeparator splits user-supplied KEY=VALUE pairs.
const envSeparator = "="

// memoryUnits are the binary SI suffixes offered for the memory limit.
var memoryUnits = []string{"Ki", "Mi", "Gi", "Ti", "Pi", "Ei"}

var envKeyColor = color.New(color.FgHiCyan)

// editEnvironments walks every literal variable in container order and lets
// the user replace its value, preloading the current one as the editable
// default. External references are never shown.
func editEnvironments(prompter prompt.Prompter, envs []jobspec.ContainerEnv) error {
	for _, env := range envs {
		for _, key := range env.SortedKeys() {
			lit, ok := env.Vars[key].(jobspec.Literal)
			if !ok {
				continue
			}

			message := fmt.Sprintf("Env %s for container %s:", envKeyColor.Sprint(key), env.Name)
			answer, err := prompter.Input(message, string(lit), nil)
			if err != nil {
				return err
			}
			env.Vars[key] = jobspec.Literal(answer)
		}
	}
	return nil
}

// addExtraEnvironments runs the optional add-a-variable loop. Each round
// picks a container and takes a KEY=VALUE pair; surrounding quotes around
// the value are dropped so shell-quoted pastes do not end up quoted inside
// the container.
func addExtraEnvironments(prompter prompt.Prompter, envs []jobspec.ContainerEnv) error {
	if len(envs) == 0 {
		return nil
	}

	more, err := prompter.Confirm("Do you want to add an additional env?")
	if err != nil {
		return err
	}

	names := containerNames(envs)
	for more {
		target, err := prompter.Select("Select the container to add the additional environment variable", names)
		if err != nil {
			return err
		}

		pair, err := prompter.Input(fmt.Sprintf("Input the additional env separated with a %s", envSeparator), "", validateEnvPair)
		if err != nil {
			return err
		}

		key, value := splitEnvPair(pair)
		for i := range envs {
			if envs[i].Name == target {
				envs[i].Vars[key] = jobspec.Literal(value)
			}
		}

		more, err = prompter.Confirm("Do you still want to add an additional env?")
		if err != nil {
			return err
		}
	}
	return nil
}

// maybeOverrideResources runs the optional resource limit update: one
// container, a memory limit built from a numeric value plus a unit, and a
// bare numeric cpu limit.
func maybeOverrideResources(prompter prompt.Prompter, spec *batchv1.JobSpec, names []string) error {
	if len(names) == 0 {
		return nil
	}

	wanted, err := prompter.Confirm("Do you want to update the resources limits?")
	if err != nil {
		return err
	}
	if !wanted {
		return nil
	}

	target, err := prompter.Select("Select the container to update the resource limits", names)
	if err != nil {
		return err
	}
	memoryValue, err := prompter.Input("Set the memory limit", "", validateNumeric)
	if err != nil {
		return err
	}
	memoryUnit, err := prompter.Select("Select a memory unit", memoryUnits)
	if err != nil {
		return err
	}
	cpuValue, err := prompter.Input("Set the cpu limit", "", validateNumeric)
	if err != nil {
		return err
	}

	memory, err := resource.ParseQuantity(memoryValue + memoryUnit)
	if err != nil {
		return fmt.Errorf("invalid memory limit %q: %w", memoryValue+memoryUnit, err)
	}
	cpu, err := resource.ParseQuantity(cpuValue)
	if err != nil {
		return fmt.Errorf("invalid cpu limit %q: %w", cpuValue, err)
	}

	return jobspec.ApplyResourceOverride(spec, jobspec.ResourceOverride{
		Container: target,
		CPU:       cpu,
		Memory:    memory,
	})
}

func validateEnvPair(answer string) error {
	if len(strings.Split(answer, envSeparator)) != 2 {
		return fmt.Errorf("expected KEY%sVALUE", envSeparator)
	}
	return nil
}

var quoteStripper = strings.NewReplacer(`"`, "", `'`, "")

func splitEnvPair(pair string) (string, string) {
	parts := strings.SplitN(pair, envSeparator, 2)
	return parts[0], quoteStripper.Replace(parts[1])
}

func validateNumeric(answer string) error {
	if _, err := strconv.ParseFloat(answer, 64); err != nil {
		return fmt.Errorf("%q is not a number", answer)
	}
	return nil
}

// maxSuggestDistance bounds how far a name can be from a candidate before a
// suggestion stops being useful.
const maxSuggestDistance = 3

// notFoundWithHint builds the not-found error for a source workload,
// including the closest existing name when one is within editing reach.
func notFoundWithHint(ctx context.Context, kind, name string, list func(context.Context) ([]string, error)) error {
	names, err := list(ctx)
	if err == nil {
		if hint := closestName(name, names); hint != "" {
			return fmt.Errorf("%s %q not found, did you mean %q?", kind, name, hint)
		}
	}
	return fmt.Errorf("%s %q not found", kind, name)
}

func closestName(name string, candidates []string) string {
	best := ""
	bestDistance := maxSuggestDistance + 1
	for _, candidate := range candidates {
		if distance := levenshtein.Distance(name, candidate, nil); distance < bestDistance {
			best = candidate
			bestDistance = distance
		}
	}
	return best
}
