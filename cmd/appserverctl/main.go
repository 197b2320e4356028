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

// Command appserverctl registers the same features as appserverd, except
// metrics, but only ever exercises the introspection paths of Run:
// --help[=section] and --dump-dependencies. It never starts the daemon
// workload.
package main

import (
	"fmt"
	"log/slog"
	"os"

	applog "github.com/relaykit/appserver/internal/log"
	"github.com/relaykit/appserver/internal/features/credentials"
	"github.com/relaykit/appserver/internal/features/logview"
	"github.com/relaykit/appserver/internal/features/statestore"
	"github.com/relaykit/appserver/internal/features/tokens"
	"github.com/relaykit/appserver/pkg/appserver"
)

func main() {
	logger, leveler := applog.New(applog.FromEnv())
	logger = applog.WithComponent(logger, "appserverctl")
	slog.SetDefault(logger)

	opts := appserver.NewOptions("appserverctl")
	srv, err := appserver.New(opts, appserver.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create orchestrator", applog.Error(err))
		os.Exit(1)
	}

	credentialHandoff := &credentials.Handoff{}
	srv.Add(logview.New(leveler))
	srv.Add(credentials.New(credentialHandoff))
	srv.Add(tokens.New(credentialHandoff))
	srv.Add(statestore.New())

	args := os.Args[1:]
	if _, ok := opts.HelpSection(args); !ok && !hasFlag(args, "--dump-dependencies") {
		fmt.Fprintln(os.Stderr, "appserverctl: pass --help or --dump-dependencies")
		os.Exit(2)
	}

	if err := srv.Run(os.Args); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func hasFlag(args []string, name string) bool {
	for _, a := range args {
		if a == name {
			return true
		}
	}
	return false
}
