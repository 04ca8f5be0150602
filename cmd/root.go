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
	"github.com/spf13/cobra"

	"github.com/shigedangao/bakkutteh/pkg/logging"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "bakkutteh",
	Short: "Dispatch a one-off Kubernetes Job derived from an existing workload.",
	Long: `bakkutteh derives a manually triggered Kubernetes Job from the job template
of a CronJob or the pod template of a Deployment, lets you adjust environment
variables and resource limits interactively, and submits the result to the
cluster, optionally as a server-side dry run.`,
	Version: "0.3.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging.")
}

// Execute runs the CLI and reports whether it succeeded. Command failures
// are handled inside the commands themselves; only flag errors end up here.
func Execute() error {
	return rootCmd.Execute()
}
