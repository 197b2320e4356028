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

package appserver

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/relaykit/appserver/pkg/apperrors"
)

// only one Orchestrator may be alive in a process at a time, mirroring the
// original source's process-wide ApplicationServer* singleton, but as an
// explicit guarded handle rather than a hidden global (spec.md §9).
var (
	singletonMu sync.Mutex
	singleton   *Orchestrator
)

// ServerOption configures optional Orchestrator dependencies at
// construction time.
type ServerOption func(*Orchestrator)

// WithLogger overrides the default slog.Logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithPrivilegeHooks overrides the default no-op PrivilegeHooks.
func WithPrivilegeHooks(hooks PrivilegeHooks) ServerOption {
	return func(o *Orchestrator) { o.privilege = NewPrivilegeController(hooks) }
}

// WithInstrumentation overrides the default no-op Instrumentation.
func WithInstrumentation(instr Instrumentation) ServerOption {
	return func(o *Orchestrator) { o.instr = instr }
}

// WithOutput overrides where PrintHelp and the --dump-dependencies digraph
// are written. Defaults to os.Stdout.
func WithOutput(w io.Writer) ServerOption {
	return func(o *Orchestrator) { o.out = w }
}

// Orchestrator is the process-wide feature lifecycle driver (C1-C7 wired
// together). Exactly one may exist at a time; see New.
type Orchestrator struct {
	registry  *Registry
	options   *Options
	privilege *PrivilegeController
	shutdown  *ShutdownCoordinator
	logger    *slog.Logger
	instr     Instrumentation
	out       io.Writer

	mu      sync.Mutex
	ordered []Feature
	ran     bool
}

// New constructs an Orchestrator bound to opts. It fails if another
// Orchestrator is already live in this process. The slot is freed when
// that Orchestrator's Run returns.
func New(opts *Options, serverOpts ...ServerOption) (*Orchestrator, error) {
	if opts == nil {
		return nil, &apperrors.UsageError{Reason: "appserver.New called with nil Options"}
	}

	singletonMu.Lock()
	defer singletonMu.Unlock()
	if singleton != nil {
		return nil, &apperrors.UsageError{Reason: "an Orchestrator is already active in this process"}
	}

	o := &Orchestrator{
		registry:  NewRegistry(),
		options:   opts,
		privilege: NewPrivilegeController(nil),
		shutdown:  NewShutdownCoordinator(),
		logger:    slog.Default(),
		instr:     NoopInstrumentation{},
		out:       os.Stdout,
	}
	for _, opt := range serverOpts {
		opt(o)
	}

	singleton = o
	return o, nil
}

// release frees the singleton slot. Called once Run returns, so tests can
// construct successive Orchestrators.
func (o *Orchestrator) release() {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	if singleton == o {
		singleton = nil
	}
}

// Add registers a feature. Panics (via Registry.Add) on an empty or
// duplicate name; this is a setup-time programmer error, not a runtime
// condition.
func (o *Orchestrator) Add(f Feature) {
	o.registry.Add(f)
}

// Registry exposes the underlying feature registry, e.g. for
// --dump-dependencies style tooling outside of Run.
func (o *Orchestrator) Registry() *Registry { return o.registry }

// Options returns every sealed option's value, omitting the names in
// excludes. Panics if called before Run has parsed and sealed options.
func (o *Orchestrator) Options(excludes map[string]bool) map[string]string {
	return o.options.Document(excludes)
}

// Fail logs message at error level and terminates the process with a
// non-zero exit status, the way the original source's FATAL_ERROR_EXIT did.
func (o *Orchestrator) Fail(message string) {
	o.logger.Error(message)
	os.Exit(1)
}

// BeginShutdown signals every enabled feature, in reverse order, that
// shutdown has begun, then releases any Wait callers. Safe to call from a
// signal handler.
func (o *Orchestrator) BeginShutdown() {
	o.mu.Lock()
	ordered := o.ordered
	o.mu.Unlock()
	o.shutdown.BeginShutdown(ordered, func(f Feature) { f.BeginShutdown() })
}

// Wait blocks until BeginShutdown has been called.
func (o *Orchestrator) Wait() { o.shutdown.Wait() }

// DumpDependencies writes the StartsAfter graph as a Graphviz digraph (one
// edge per StartsAfter entry, including disabled features) to w, matching
// the original source's --dump-dependencies output format exactly.
func (o *Orchestrator) DumpDependencies(w io.Writer) {
	fmt.Fprintln(w, "digraph dependencies")
	fmt.Fprintln(w, "{")
	fmt.Fprintln(w, "  overlap = false;")
	for _, name := range o.registry.Names() {
		f := o.registry.MustFeature(name)
		for _, dep := range f.StartsAfter() {
			fmt.Fprintf(w, "  %s -> %s;\n", name, dep)
		}
	}
	fmt.Fprintln(w, "}")
}

// Run drives the full lifecycle: collect-options, command-line parsing,
// enablement propagation, the requires check, dependency setup (building
// the starts-after order), load-options, validate-options, daemonize,
// prepare (privilege-interleaved), a permanent privilege drop, start, wait
// for BeginShutdown, stop. argv is the full os.Args-style slice, including
// the program name at index 0.
//
// If --help or --help=<section> is present, Run prints help and returns
// nil without driving any phase. If --dump-dependencies is present, Run
// parses options, prints the dependency digraph, and returns nil without
// driving any phase past option collection.
func (o *Orchestrator) Run(argv []string) error {
	defer o.release()

	var args []string
	if len(argv) > 0 {
		args = argv[1:]
	}

	if section, ok := o.options.HelpSection(args); ok {
		o.options.PrintHelp(o.out, section)
		return nil
	}

	phases := NewPhaseExecutor(o.logger, o.instr)

	phases.CollectOptions(o.registry, o.options)

	if err := o.options.Parse(args); err != nil {
		return err
	}
	o.options.Seal()

	if o.options.DumpDependencies() {
		o.DumpDependencies(o.out)
		return nil
	}

	// enableAutomaticFeatures, then the requires check, must both settle
	// before the ordered list is computed, so that every phase from
	// validate-options onward drives the same, final ordered list.
	if err := PropagateEnablement(o.registry); err != nil {
		return err
	}
	if err := CheckRequires(o.registry); err != nil {
		return err
	}

	ordered, err := Linearize(o.registry)
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.ordered = ordered
	o.mu.Unlock()

	phases.LoadOptions(ordered, o.options)

	if err := phases.ValidateOptions(ordered, o.options); err != nil {
		return err
	}

	if err := phases.Daemonize(ordered); err != nil {
		return err
	}

	if err := phases.Prepare(ordered, o.privilege); err != nil {
		return err
	}

	if err := o.privilege.DropPermanently(); err != nil {
		return err
	}

	if err := phases.Start(ordered); err != nil {
		return err
	}

	o.mu.Lock()
	o.ran = true
	o.mu.Unlock()

	o.shutdown.Wait()

	phases.Stop(ordered)

	return nil
}
