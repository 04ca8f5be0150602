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
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/shigedangao/bakkutteh/pkg/kube"
	"github.com/shigedangao/bakkutteh/pkg/prompt"
)

// keepDefault makes the scripted prompter answer an input prompt with the
// preloaded default, the way a user pressing enter would.
const keepDefault = "\x00keep-default"

// scriptedPrompter answers prompts from per-kind queues. An exhausted
// confirm queue answers no, an exhausted input queue keeps the default, and
// an exhausted select queue fails the test.
type scriptedPrompter struct {
	t        *testing.T
	selects  []string
	confirms []bool
	inputs   []string
	failWith error

	asked []string
}

func (p *scriptedPrompter) Select(message string, options []string) (string, error) {
	p.t.Helper()
	p.asked = append(p.asked, message)
	if p.failWith != nil {
		return "", p.failWith
	}
	if len(p.selects) == 0 {
		p.t.Fatalf("unexpected select prompt %q", message)
	}

	answer := p.selects[0]
	p.selects = p.selects[1:]
	if !slices.Contains(options, answer) {
		p.t.Fatalf("scripted answer %q is not among the options %v", answer, options)
	}
	return answer, nil
}

func (p *scriptedPrompter) Confirm(message string) (bool, error) {
	p.asked = append(p.asked, message)
	if p.failWith != nil {
		return false, p.failWith
	}
	if len(p.confirms) == 0 {
		return false, nil
	}

	answer := p.confirms[0]
	p.confirms = p.confirms[1:]
	return answer, nil
}

func (p *scriptedPrompter) Input(message, def string, validate func(string) error) (string, error) {
	p.t.Helper()
	p.asked = append(p.asked, message)
	if p.failWith != nil {
		return "", p.failWith
	}

	answer := def
	if len(p.inputs) > 0 {
		answer = p.inputs[0]
		p.inputs = p.inputs[1:]
		if answer == keepDefault {
			answer = def
		}
	}

	if validate != nil {
		if err := validate(answer); err != nil {
			p.t.Fatalf("scripted answer %q failed validation: %v", answer, err)
		}
	}
	return answer, nil
}

func cronJobSource(name, container string, env ...corev1.EnvVar) *batchv1.CronJob {
	return &batchv1.CronJob{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "default"},
		Spec: batchv1.CronJobSpec{
			Schedule: "0 3 * * *",
			JobTemplate: batchv1.JobTemplateSpec{
				Spec: batchv1.JobSpec{
					Template: corev1.PodTemplateSpec{
						Spec: corev1.PodSpec{
							RestartPolicy: corev1.RestartPolicyOnFailure,
							Containers: []corev1.Container{{
								Name:  container,
								Image: "registry.local/" + name + ":stable",
								Env:   env,
							}},
						},
					},
				},
			},
		},
	}
}

func deploymentSource(name, container string) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "default"},
		Spec: appsv1.DeploymentSpec{
			Template: corev1.PodTemplateSpec{
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyAlways,
					Containers: []corev1.Container{{
						Name:  container,
						Image: "registry.local/" + name + ":stable",
					}},
				},
			},
		},
	}
}

func secretRef(name, key string) *corev1.EnvVarSource {
	return &corev1.EnvVarSource{
		SecretKeyRef: &corev1.SecretKeySelector{
			LocalObjectReference: corev1.LocalObjectReference{Name: name},
			Key:                  key,
		},
	}
}

func fetchJob(t *testing.T, cluster *kube.Handler, name string) *batchv1.Job {
	t.Helper()
	job, err := cluster.GetJob(context.Background(), name)
	if err != nil {
		t.Fatalf("expected job %q in the cluster: %v", name, err)
	}
	return job
}

func TestRunCreatesJobFromCronJob(t *testing.T) {
	source := cronJobSource("nightly-export", "exporter",
		corev1.EnvVar{Name: "MODE", Value: "batch"},
		corev1.EnvVar{Name: "TOKEN", ValueFrom: secretRef("api-creds", "token")},
	)
	cluster := &kube.Handler{Client: fake.NewSimpleClientset(source), Namespace: "default"}
	prompter := &scriptedPrompter{t: t}

	opts := Options{TargetName: "nightly-export", SourceName: "nightly-export", BackoffLimit: 3}
	if err := Run(context.Background(), opts, cluster, prompter, afero.NewMemMapFs()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	created := fetchJob(t, cluster, "nightly-export-manual")
	if got := *created.Spec.BackoffLimit; got != 3 {
		t.Errorf("backoff limit = %d, want 3", got)
	}
	if got := created.Spec.Template.Spec.RestartPolicy; got != corev1.RestartPolicyOnFailure {
		t.Errorf("restart policy = %q, want the template's %q", got, corev1.RestartPolicyOnFailure)
	}

	want := source.Spec.JobTemplate.Spec.Template.Spec.Containers
	if diff := cmp.Diff(want, created.Spec.Template.Spec.Containers); diff != "" {
		t.Errorf("containers diverged from the template (-want +got):\n%s", diff)
	}
}

func TestRunEditsEnvValues(t *testing.T) {
	source := cronJobSource("nightly-export", "exporter",
		corev1.EnvVar{Name: "MODE", Value: "batch"},
		corev1.EnvVar{Name: "REGION", Value: "eu-west-1"},
	)
	cluster := &kube.Handler{Client: fake.NewSimpleClientset(source), Namespace: "default"}
	prompter := &scriptedPrompter{t: t, inputs: []string{"manual", keepDefault}}

	opts := Options{TargetName: "nightly-export", SourceName: "nightly-export", BackoffLimit: 3}
	if err := Run(context.Background(), opts, cluster, prompter, afero.NewMemMapFs()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	created := fetchJob(t, cluster, "nightly-export-manual")
	want := []corev1.EnvVar{
		{Name: "MODE", Value: "manual"},
		{Name: "REGION", Value: "eu-west-1"},
	}
	if diff := cmp.Diff(want, created.Spec.Template.Spec.Containers[0].Env); diff != "" {
		t.Errorf("env mismatch after edit (-want +got):\n%s", diff)
	}
}

func TestRunAddsExtraEnv(t *testing.T) {
	source := cronJobSource("nightly-export", "exporter",
		corev1.EnvVar{Name: "MODE", Value: "batch"},
	)
	cluster := &kube.Handler{Client: fake.NewSimpleClientset(source), Namespace: "default"}
	prompter := &scriptedPrompter{
		t:        t,
		confirms: []bool{true, false},
		selects:  []string{"exporter"},
		inputs:   []string{keepDefault, `CITY='paris'`},
	}

	opts := Options{TargetName: "nightly-export", SourceName: "nightly-export", BackoffLimit: 3}
	if err := Run(context.Background(), opts, cluster, prompter, afero.NewMemMapFs()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	created := fetchJob(t, cluster, "nightly-export-manual")
	want := []corev1.EnvVar{
		{Name: "MODE", Value: "batch"},
		{Name: "CITY", Value: "paris"},
	}
	if diff := cmp.Diff(want, created.Spec.Template.Spec.Containers[0].Env); diff != "" {
		t.Errorf("env mismatch after adding a variable (-want +got):\n%s", diff)
	}
}

func TestRunOverridesResources(t *testing.T) {
	source := cronJobSource("nightly-export", "exporter",
		corev1.EnvVar{Name: "MODE", Value: "batch"},
	)
	cluster := &kube.Handler{Client: fake.NewSimpleClientset(source), Namespace: "default"}
	prompter := &scriptedPrompter{
		t:        t,
		confirms: []bool{false, true},
		selects:  []string{"exporter", "Mi"},
		inputs:   []string{keepDefault, "10", "0.5"},
	}

	opts := Options{TargetName: "nightly-export", SourceName: "nightly-export", BackoffLimit: 3}
	if err := Run(context.Background(), opts, cluster, prompter, afero.NewMemMapFs()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	created := fetchJob(t, cluster, "nightly-export-manual")
	want := corev1.ResourceList{
		corev1.ResourceCPU:    resource.MustParse("0.5"),
		corev1.ResourceMemory: resource.MustParse("10Mi"),
	}
	if diff := cmp.Diff(want, created.Spec.Template.Spec.Containers[0].Resources.Limits); diff != "" {
		t.Errorf("limits mismatch after override (-want +got):\n%s", diff)
	}
}

func TestRunExistingJobDeclineAborts(t *testing.T) {
	existing := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "nightly-export-manual",
			Namespace: "default",
			Labels:    map[string]string{"origin": "previous-run"},
		},
	}
	source := cronJobSource("nightly-export", "exporter")
	cluster := &kube.Handler{Client: fake.NewSimpleClientset(existing, source), Namespace: "default"}
	prompter := &scriptedPrompter{t: t, confirms: []bool{false}}

	opts := Options{TargetName: "nightly-export", SourceName: "nightly-export", BackoffLimit: 3}
	err := Run(context.Background(), opts, cluster, prompter, afero.NewMemMapFs())
	if !errors.Is(err, kube.ErrAlreadyExists) {
		t.Fatalf("Run() error = %v, want ErrAlreadyExists", err)
	}

	kept := fetchJob(t, cluster, "nightly-export-manual")
	if kept.Labels["origin"] != "previous-run" {
		t.Errorf("declining the delete should keep the existing job untouched")
	}
	if len(prompter.asked) == 0 || !strings.Contains(prompter.asked[0], "nightly-export-manual") {
		t.Errorf("the delete confirmation should name the existing job, asked %v", prompter.asked)
	}
}

func TestRunExistingJobDeleteAndContinue(t *testing.T) {
	existing := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "nightly-export-manual",
			Namespace: "default",
			Labels:    map[string]string{"origin": "previous-run"},
		},
	}
	source := cronJobSource("nightly-export", "exporter")
	cluster := &kube.Handler{Client: fake.NewSimpleClientset(existing, source), Namespace: "default"}
	prompter := &scriptedPrompter{t: t, confirms: []bool{true}}

	opts := Options{TargetName: "nightly-export", SourceName: "nightly-export", BackoffLimit: 3}
	if err := Run(context.Background(), opts, cluster, prompter, afero.NewMemMapFs()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	created := fetchJob(t, cluster, "nightly-export-manual")
	if created.Labels["origin"] != "" {
		t.Errorf("the previous job should have been replaced, got labels %v", created.Labels)
	}
}

func TestRunSelectsSourceInteractively(t *testing.T) {
	cluster := &kube.Handler{
		Client: fake.NewSimpleClientset(
			cronJobSource("nightly-export", "exporter"),
			cronJobSource("hourly-sync", "syncer"),
		),
		Namespace: "default",
	}
	prompter := &scriptedPrompter{t: t, selects: []string{"hourly-sync"}}

	opts := Options{TargetName: "sync", BackoffLimit: 3}
	if err := Run(context.Background(), opts, cluster, prompter, afero.NewMemMapFs()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	created := fetchJob(t, cluster, "sync-manual")
	if got := created.Spec.Template.Spec.Containers[0].Name; got != "syncer" {
		t.Errorf("job derived from the wrong source, container = %q", got)
	}
}

func TestRunFromDeployment(t *testing.T) {
	cluster := &kube.Handler{
		Client:    fake.NewSimpleClientset(deploymentSource("api", "server")),
		Namespace: "default",
	}
	prompter := &scriptedPrompter{t: t}

	opts := Options{TargetName: "api-task", SourceName: "api", FromDeployment: true, BackoffLimit: 3}
	if err := Run(context.Background(), opts, cluster, prompter, afero.NewMemMapFs()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	created := fetchJob(t, cluster, "api-task-manual")
	if got := created.Spec.Template.Spec.RestartPolicy; got != corev1.RestartPolicyNever {
		t.Errorf("restart policy = %q, want %q", got, corev1.RestartPolicyNever)
	}
	if got := created.Spec.Template.Spec.Containers[0].Name; got != "server" {
		t.Errorf("container = %q, want the deployment's %q", got, "server")
	}
}

func TestRunDryRunWritesFile(t *testing.T) {
	source := cronJobSource("nightly-export", "exporter")
	cluster := &kube.Handler{Client: fake.NewSimpleClientset(source), Namespace: "default"}
	prompter := &scriptedPrompter{t: t}
	fsys := afero.NewMemMapFs()

	opts := Options{
		TargetName:       "nightly-export",
		SourceName:       "nightly-export",
		BackoffLimit:     3,
		DryRun:           true,
		DryRunOutputPath: "/out/job.yaml",
	}
	if err := Run(context.Background(), opts, cluster, prompter, fsys); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	raw, err := afero.ReadFile(fsys, "/out/job.yaml")
	if err != nil {
		t.Fatalf("dry run output missing: %v", err)
	}

	rendered := string(raw)
	for _, fragment := range []string{"kind: Job", "name: nightly-export-manual"} {
		if !strings.Contains(rendered, fragment) {
			t.Errorf("rendered manifest misses %q:\n%s", fragment, rendered)
		}
	}
	if strings.Contains(rendered, "managedFields") {
		t.Errorf("rendered manifest still carries managedFields:\n%s", rendered)
	}
}

func TestRunSourceNotFoundSuggestsClosest(t *testing.T) {
	cluster := &kube.Handler{
		Client:    fake.NewSimpleClientset(cronJobSource("nightly-export", "exporter")),
		Namespace: "default",
	}
	prompter := &scriptedPrompter{t: t}

	opts := Options{TargetName: "nightly-export", SourceName: "nightly-exprot", BackoffLimit: 3}
	err := Run(context.Background(), opts, cluster, prompter, afero.NewMemMapFs())
	if err == nil {
		t.Fatal("Run() succeeded with a misspelled source")
	}
	if !strings.Contains(err.Error(), `did you mean "nightly-export"`) {
		t.Errorf("error should suggest the closest name, got %q", err)
	}
}

func TestRunNoSourcesToPick(t *testing.T) {
	cluster := &kube.Handler{Client: fake.NewSimpleClientset(), Namespace: "default"}
	prompter := &scriptedPrompter{t: t}

	opts := Options{TargetName: "export", BackoffLimit: 3}
	err := Run(context.Background(), opts, cluster, prompter, afero.NewMemMapFs())
	if err == nil || !strings.Contains(err.Error(), "no cronjob found") {
		t.Fatalf("Run() error = %v, want a no-cronjob report", err)
	}
}

func TestRunStopsOnCancelledPrompt(t *testing.T) {
	source := cronJobSource("nightly-export", "exporter")
	cluster := &kube.Handler{Client: fake.NewSimpleClientset(source), Namespace: "default"}
	prompter := &scriptedPrompter{t: t, failWith: prompt.ErrCancelled}

	opts := Options{TargetName: "nightly-export", SourceName: "nightly-export", BackoffLimit: 3}
	err := Run(context.Background(), opts, cluster, prompter, afero.NewMemMapFs())
	if !errors.Is(err, prompt.ErrCancelled) {
		t.Fatalf("Run() error = %v, want ErrCancelled", err)
	}

	if _, err := cluster.GetJob(context.Background(), "nightly-export-manual"); err == nil {
		t.Error("no job should be submitted after a cancelled prompt")
	}
}

func TestValidateEnvPair(t *testing.T) {
	tests := []struct {
		answer string
		valid  bool
	}{
		{"KEY=value", true},
		{"KEY=", true},
		{"plain", false},
		{"A=B=C", false},
		{"", false},
	}

	for _, tc := range tests {
		err := validateEnvPair(tc.answer)
		if tc.valid && err != nil {
			t.Errorf("validateEnvPair(%q) = %v, want nil", tc.answer, err)
		}
		if !tc.valid && err == nil {
			t.Errorf("validateEnvPair(%q) accepted", tc.answer)
		}
	}
}

func TestSplitEnvPair(t *testing.T) {
	tests := []struct {
		pair      string
		key, want string
	}{
		{"CITY=paris", "CITY", "paris"},
		{`CITY="paris"`, "CITY", "paris"},
		{"CITY='paris'", "CITY", "paris"},
		{"EMPTY=", "EMPTY", ""},
	}

	for _, tc := range tests {
		key, value := splitEnvPair(tc.pair)
		if key != tc.key || value != tc.want {
			t.Errorf("splitEnvPair(%q) = (%q, %q), want (%q, %q)", tc.pair, key, value, tc.key, tc.want)
		}
	}
}

func TestValidateNumeric(t *testing.T) {
	for _, valid := range []string{"10", "0.5", "128"} {
		if err := validateNumeric(valid); err != nil {
			t.Errorf("validateNumeric(%q) = %v, want nil", valid, err)
		}
	}
	for _, invalid := range []string{"10Mi", "half", ""} {
		if err := validateNumeric(invalid); err == nil {
			t.Errorf("validateNumeric(%q) accepted", invalid)
		}
	}
}

func TestClosestName(t *testing.T) {
	candidates := []string{"nightly-export", "hourly-sync"}

	tests := []struct {
		name string
		want string
	}{
		{"nightly-exprot", "nightly-export"},
		{"hourly-synk", "hourly-sync"},
		{"completely-different", ""},
	}

	for _, tc := range tests {
		if got := closestName(tc.name, candidates); got != tc.want {
			t.Errorf("closestName(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}

	if got := closestName("anything", nil); got != "" {
		t.Errorf("closestName with no candidates = %q, want empty", got)
	}
}
