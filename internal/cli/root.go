// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cli wraps an *appserver.Orchestrator in a Cobra root command.
// Cobra/pflag stands in for the bespoke argument parser the orchestrator's
// options layer trusts as an external parser: the root command disables
// Cobra's own flag parsing and hands raw argv straight to the
// orchestrator, which owns option declaration, parsing and sealing.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/relaykit/appserver/pkg/apperrors"
	"github.com/relaykit/appserver/pkg/appserver"
)

// ExitCode maps a Run error to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var usage *apperrors.UsageError
	var option *apperrors.OptionError
	var privilege *apperrors.PrivilegeError
	switch {
	case errors.As(err, &usage):
		return 2
	case errors.As(err, &option):
		return 2
	case errors.As(err, &privilege):
		return 3
	default:
		return 1
	}
}

// NewRootCommand builds the Cobra root command for program, driving srv
// through its full Run lifecycle. Cobra's own flag parsing is disabled so
// every flag a feature declared against srv.Options() during
// collect-options is visible on argv, instead of being intercepted by
// Cobra first.
func NewRootCommand(program string, srv *appserver.Orchestrator) *cobra.Command {
	return &cobra.Command{
		Use:                program,
		Short:              program + " runs a feature lifecycle orchestrator",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return srv.Run(append([]string{program}, args...))
		},
	}
}

// HandleExitError prints err (if any) to stderr and terminates the process
// with the exit code ExitCode derives from it.
func HandleExitError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "Error:", err.Error())
	os.Exit(ExitCode(err))
}
