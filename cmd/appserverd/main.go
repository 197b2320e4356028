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

// Command appserverd registers the illustrative features and runs the
// orchestrator as a long-running process, wiring OS signals to
// BeginShutdown.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	applog "github.com/relaykit/appserver/internal/log"
	"github.com/relaykit/appserver/internal/tracing"

	"github.com/relaykit/appserver/internal/cli"
	"github.com/relaykit/appserver/internal/features/credentials"
	"github.com/relaykit/appserver/internal/features/logview"
	"github.com/relaykit/appserver/internal/features/metrics"
	"github.com/relaykit/appserver/internal/features/statestore"
	"github.com/relaykit/appserver/internal/features/tokens"
	"github.com/relaykit/appserver/pkg/appserver"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	logger, leveler := applog.New(applog.FromEnv())
	logger = applog.WithComponent(logger, "appserverd")
	slog.SetDefault(logger)

	provider, err := tracing.NewProvider("appserverd", version)
	if err != nil {
		logger.Error("failed to build tracing provider", applog.Error(err))
		os.Exit(1)
	}

	srv, err := appserver.New(
		appserver.NewOptions("appserverd"),
		appserver.WithLogger(logger),
		appserver.WithInstrumentation(provider),
	)
	if err != nil {
		logger.Error("failed to create orchestrator", applog.Error(err))
		os.Exit(1)
	}

	credentialHandoff := &credentials.Handoff{}
	srv.Add(logview.New(leveler))
	srv.Add(metrics.New(provider))
	srv.Add(credentials.New(credentialHandoff))
	srv.Add(tokens.New(credentialHandoff))
	srv.Add(statestore.New())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "\nreceived signal %v, shutting down...\n", sig)
		srv.BeginShutdown()
	}()

	root := cli.NewRootCommand("appserverd", srv)
	cli.HandleExitError(root.Execute())
}
