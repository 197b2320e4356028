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

// Feature is the contract every subsystem registered with an Orchestrator
// must satisfy. Phase callbacks default to a no-op when embedding Base.
type Feature interface {
	// Name returns the feature's unique, non-empty identifier.
	Name() string

	// Enabled reports whether the feature currently runs.
	Enabled() bool

	// Optional reports whether the feature may be silently absent.
	Optional() bool

	// Required reports whether referencing features must find this one
	// enabled.
	Required() bool

	// StartsAfter returns the names of features this one must follow in
	// the ordered list, when both are present.
	StartsAfter() []string

	// Requires returns the subset of StartsAfter that must exist and be
	// enabled whenever this feature is enabled.
	Requires() []string

	// EnableWith names at most one other feature whose Enabled value this
	// feature's Enabled mirrors. Empty means no mirroring.
	EnableWith() string

	// RequiresElevatedPrivileges is consulted during Prepare to decide
	// whether the orchestrator must hold elevated privileges for this
	// feature's Prepare call.
	RequiresElevatedPrivileges() bool

	// Disable clears Enabled unless ForceDisable has already been called.
	Disable()

	// ForceDisable sets a sticky flag: Enabled becomes false and no later
	// SetEnabled(true) can restore it.
	ForceDisable()

	// SetEnabled sets Enabled, except that SetEnabled(true) is ignored
	// once ForceDisable has been called.
	SetEnabled(enabled bool)

	// CollectOptions declares this feature's command-line/config options
	// against the shared Options aggregator.
	CollectOptions(opts *Options)

	// LoadOptions reads parsed option values back, before validation.
	LoadOptions(opts *Options)

	// ValidateOptions checks option values for this feature, returning an
	// error to abort startup.
	ValidateOptions(opts *Options) error

	// Daemonize performs process-control setup (e.g. detaching). Must not
	// start threads or open non-idempotent resources.
	Daemonize() error

	// Prepare performs one-time setup. Must not start threads, and must
	// not write files under elevated privileges that it expects to reopen
	// without privileges later.
	Prepare() error

	// Start begins the feature's steady-state operation. May start
	// threads, open sockets, write files.
	Start() error

	// Stop releases everything Start acquired, joining any threads this
	// feature started. Errors are logged and do not halt other features'
	// Stop calls.
	Stop() error

	// BeginShutdown notifies a still-running feature that shutdown has
	// begun. May be invoked from a signal-handling goroutine; must be
	// safe to call concurrently with this feature's own Start-owned
	// workers.
	BeginShutdown()
}

// Base is an embeddable no-op implementation of Feature's mutators and
// phase callbacks. Concrete features embed Base and override only what
// they need, the way every ApplicationFeature subclass in the original
// source overrode a handful of virtuals and inherited the rest.
type Base struct {
	name           string
	enabled        bool
	forceDisabled  bool
	optional       bool
	required       bool
	startsAfter    []string
	requires       []string
	enableWith     string
	needsElevation bool
}

// NewBase constructs a Base with the given name and initial enabled state.
func NewBase(name string, enabled bool) *Base {
	return &Base{name: name, enabled: enabled}
}

func (b *Base) Name() string    { return b.name }
func (b *Base) Enabled() bool   { return b.enabled }
func (b *Base) Optional() bool  { return b.optional }
func (b *Base) Required() bool  { return b.required }
func (b *Base) EnableWith() string       { return b.enableWith }
func (b *Base) RequiresElevatedPrivileges() bool { return b.needsElevation }

func (b *Base) StartsAfter() []string {
	return append([]string(nil), b.startsAfter...)
}

func (b *Base) Requires() []string {
	return append([]string(nil), b.requires...)
}

// SetOptional marks the feature as optional (absence is not an error).
func (b *Base) SetOptional(v bool) { b.optional = v }

// SetRequired marks the feature as required when referenced.
func (b *Base) SetRequired(v bool) { b.required = v }

// SetStartsAfter declares the features this one must follow, when present.
func (b *Base) SetStartsAfter(names ...string) { b.startsAfter = names }

// SetRequires declares the subset of StartsAfter that must be enabled.
func (b *Base) SetRequires(names ...string) { b.requires = names }

// SetEnableWith declares the feature whose Enabled value this one mirrors.
func (b *Base) SetEnableWith(name string) { b.enableWith = name }

// SetRequiresElevatedPrivileges declares whether Prepare needs elevation.
func (b *Base) SetRequiresElevatedPrivileges(v bool) { b.needsElevation = v }

func (b *Base) Disable() {
	if !b.forceDisabled {
		b.enabled = false
	}
}

func (b *Base) ForceDisable() {
	b.forceDisabled = true
	b.enabled = false
}

func (b *Base) SetEnabled(enabled bool) {
	if enabled && b.forceDisabled {
		return
	}
	b.enabled = enabled
}

func (b *Base) CollectOptions(*Options)          {}
func (b *Base) LoadOptions(*Options)             {}
func (b *Base) ValidateOptions(*Options) error   { return nil }
func (b *Base) Daemonize() error                 { return nil }
func (b *Base) Prepare() error                   { return nil }
func (b *Base) Start() error                     { return nil }
func (b *Base) Stop() error                      { return nil }
func (b *Base) BeginShutdown()                   {}
