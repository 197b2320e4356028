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

// Package metrics is an illustrative feature that exposes the shared
// tracing.Provider's Prometheus handler over HTTP during start, and tears
// the listener down during stop.
package metrics

import (
	"context"
	"net"
	"net/http"

	"github.com/relaykit/appserver/internal/tracing"
	"github.com/relaykit/appserver/pkg/appserver"
)

// handler is the subset of *tracing.Provider this feature actually calls,
// documenting the real dependency surface independent of the concrete
// tracing.Provider type New accepts.
type handler interface {
	MetricsHandler() http.Handler
}

// Feature serves /metrics on a configurable address.
type Feature struct {
	*appserver.Base

	provider handler
	addr     string
	server   *http.Server
	ln       net.Listener
}

// New constructs the metrics feature. starts-after is empty: it has no
// dependency on any other illustrative feature, only on the shared
// tracing.Provider handed in at registration.
func New(provider *tracing.Provider) *Feature {
	f := &Feature{
		Base:     appserver.NewBase("metrics", true),
		provider: provider,
	}
	f.SetOptional(true)
	return f
}

func (f *Feature) CollectOptions(opts *appserver.Options) {
	opts.AddSection("metrics", "Metrics", false)
	opts.Flags().StringVar(&f.addr, "metrics.address", "127.0.0.1:9090", "address to serve Prometheus metrics on")
	opts.Track("metrics", "metrics.address")
}

func (f *Feature) Start() error {
	ln, err := net.Listen("tcp", f.addr)
	if err != nil {
		return err
	}
	f.ln = ln

	mux := http.NewServeMux()
	mux.Handle("/metrics", f.provider.MetricsHandler())
	f.server = &http.Server{Handler: mux}

	go func() {
		_ = f.server.Serve(ln)
	}()
	return nil
}

func (f *Feature) Stop() error {
	if f.server == nil {
		return nil
	}
	return f.server.Shutdown(context.Background())
}
