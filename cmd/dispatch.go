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

package cmd

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/shigedangao/bakkutteh/pkg/config"
	"github.com/shigedangao/bakkutteh/pkg/dispatch"
	"github.com/shigedangao/bakkutteh/pkg/kube"
	"github.com/shigedangao/bakkutteh/pkg/logging"
	"github.com/shigedangao/bakkutteh/pkg/prompt"
)

var (
	jobName          string
	targetName       string
	namespace        string
	backoffLimit     int32
	dryRun           bool
	fromDeployment   bool
	dryRunOutputPath string
)

func init() {
	rootCmd.AddCommand(dispatchCmd)

	dispatchCmd.Flags().StringVarP(&jobName, "job-name", "j", "", "Name of the cronjob (or deployment with --deployment) used as the source of the job. Prompts for a pick when omitted.")
	dispatchCmd.Flags().StringVarP(&targetName, "target-name", "t", "", "Name of the job to create; '-manual' is appended. Required.")
	dispatchCmd.Flags().StringVarP(&namespace, "namespace", "n", "default", "Namespace to look up the source and create the job in.")
	dispatchCmd.Flags().Int32VarP(&backoffLimit, "backoff-limit", "b", 3, "Number of retries before the job is marked as failed.")
	dispatchCmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "Submit as a server-side dry run and render the resulting manifest instead of creating the job.")
	dispatchCmd.Flags().BoolVar(&fromDeployment, "deployment", false, "Derive the job from a deployment pod template instead of a cronjob.")
	dispatchCmd.Flags().StringVar(&dryRunOutputPath, "dry-run-output-path", "", "Write the rendered dry run manifest to this file instead of stdout.")

	_ = dispatchCmd.MarkFlagRequired("target-name")
}

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Derives a one-off Job from a CronJob or Deployment and submits it.",
	Long: `The 'dispatch' command fetches the job template of a CronJob (or the pod
template of a Deployment), walks you through its environment variables and
resource limits, and creates the resulting Job under the name
'<target-name>-manual'.

Values backed by ConfigMaps or Secrets pass through untouched; only inline
values are offered for editing.`,
	Run:          runDispatchCmd,
	SilenceUsage: true,
}

func runDispatchCmd(cmd *cobra.Command, args []string) {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		logging.Fatal("bakkutteh dispatch is interactive and needs a terminal on stdin.")
	}

	fsys := afero.NewOsFs()
	cfg, err := config.Load(fsys, config.Path())
	if err != nil {
		logging.Fatal("Failed to load config defaults: %v", err)
	}
	applyConfigDefaults(cmd.Flags(), cfg)

	logging.Info("Executing bakkutteh dispatch command...")

	handler, err := kube.NewHandler(namespace, dryRun)
	if err != nil {
		logging.Fatal("Failed to connect to the cluster: %v", err)
	}

	opts := dispatch.Options{
		TargetName:       targetName,
		SourceName:       jobName,
		FromDeployment:   fromDeployment,
		BackoffLimit:     backoffLimit,
		DryRun:           dryRun,
		DryRunOutputPath: dryRunOutputPath,
	}

	if err := dispatch.Run(cmd.Context(), opts, handler, prompt.Terminal{}, fsys); err != nil {
		logging.Fatal("bakkutteh dispatch failed: %v", err)
	}
}

// applyConfigDefaults fills flags the user left untouched from the per-user
// defaults file.
func applyConfigDefaults(flags *pflag.FlagSet, cfg config.Config) {
	if cfg.Namespace != "" && !flags.Changed("namespace") {
		namespace = cfg.Namespace
	}
	if cfg.BackoffLimit != nil && !flags.Changed("backoff-limit") {
		backoffLimit = *cfg.BackoffLimit
	}
}
