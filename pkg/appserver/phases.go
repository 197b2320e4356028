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
	"log/slog"

	"github.com/relaykit/appserver/pkg/apperrors"
)

// Instrumentation lets an optional observability provider (see
// internal/tracing) wrap phase and per-feature-callback execution without
// the phase executor depending on any concrete tracing library. StartPhase
// and StartFeature both return a function to call when the span of work
// ends; the error, if any, is passed to the StartFeature closer so it can
// be recorded on the span.
type Instrumentation interface {
	StartPhase(phase string) func()
	StartFeature(phase, feature string) func(err error)
}

// NoopInstrumentation implements Instrumentation with no observable effect.
type NoopInstrumentation struct{}

func (NoopInstrumentation) StartPhase(string) func()               { return func() {} }
func (NoopInstrumentation) StartFeature(string, string) func(error) { return func(error) {} }

// PhaseExecutor drives the ordered list of features through the fixed
// lifecycle phases, in the direction and with the error policy each phase
// requires.
type PhaseExecutor struct {
	logger *slog.Logger
	instr  Instrumentation
}

// NewPhaseExecutor constructs a PhaseExecutor. A nil logger or
// instrumentation is replaced with a safe default.
func NewPhaseExecutor(logger *slog.Logger, instr Instrumentation) *PhaseExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	if instr == nil {
		instr = NoopInstrumentation{}
	}
	return &PhaseExecutor{logger: logger, instr: instr}
}

// CollectOptions runs CollectOptions on every enabled feature, in registry
// order (features are not yet ordered by StartsAfter at this point).
func (p *PhaseExecutor) CollectOptions(reg *Registry, opts *Options) {
	end := p.instr.StartPhase("collect-options")
	defer end()

	reg.Apply(func(f Feature) {
		endF := p.instr.StartFeature("collect-options", f.Name())
		p.logger.Debug("collect-options", slog.String("feature", f.Name()))
		f.CollectOptions(opts)
		endF(nil)
	}, true)
}

// LoadOptions runs LoadOptions on every enabled feature, ordered forward.
func (p *PhaseExecutor) LoadOptions(ordered []Feature, opts *Options) {
	end := p.instr.StartPhase("load-options")
	defer end()

	for _, f := range ordered {
		if !f.Enabled() {
			continue
		}
		endF := p.instr.StartFeature("load-options", f.Name())
		p.logger.Debug("load-options", slog.String("feature", f.Name()))
		f.LoadOptions(opts)
		endF(nil)
	}
}

// ValidateOptions runs ValidateOptions on every enabled feature, ordered
// forward. The first failure is fatal and aborts the remaining features.
func (p *PhaseExecutor) ValidateOptions(ordered []Feature, opts *Options) error {
	end := p.instr.StartPhase("validate-options")
	defer end()

	for _, f := range ordered {
		if !f.Enabled() {
			continue
		}
		endF := p.instr.StartFeature("validate-options", f.Name())
		p.logger.Debug("validate-options", slog.String("feature", f.Name()))
		err := f.ValidateOptions(opts)
		endF(err)
		if err != nil {
			return apperrors.Wrapf(err, "validating options for feature '%s'", f.Name())
		}
	}
	return nil
}

// Daemonize runs Daemonize on every enabled feature, ordered forward.
func (p *PhaseExecutor) Daemonize(ordered []Feature) error {
	end := p.instr.StartPhase("daemonize")
	defer end()

	for _, f := range ordered {
		if !f.Enabled() {
			continue
		}
		endF := p.instr.StartFeature("daemonize", f.Name())
		err := f.Daemonize()
		endF(err)
		if err != nil {
			return apperrors.Wrapf(err, "daemonizing feature '%s'", f.Name())
		}
	}
	return nil
}

// Prepare runs Prepare on every enabled feature, ordered forward,
// interleaving privilege transitions so that each feature's Prepare
// observes exactly the elevation it declared it needs. If a feature's
// Prepare fails, privileges are restored to elevated before the error
// propagates, so outer cleanup code observes a known state.
func (p *PhaseExecutor) Prepare(ordered []Feature, priv *PrivilegeController) error {
	end := p.instr.StartPhase("prepare")
	defer end()

	elevated := true
	for _, f := range ordered {
		if !f.Enabled() {
			continue
		}
		needs := f.RequiresElevatedPrivileges()
		if needs != elevated {
			var transitionErr error
			if needs {
				transitionErr = priv.RaiseTemporarily()
			} else {
				transitionErr = priv.DropTemporarily()
			}
			if transitionErr != nil {
				return transitionErr
			}
			elevated = needs
		}

		endF := p.instr.StartFeature("prepare", f.Name())
		p.logger.Debug("prepare", slog.String("feature", f.Name()))
		err := f.Prepare()
		endF(err)
		if err != nil {
			if !elevated {
				_ = priv.RaiseTemporarily()
			}
			return apperrors.Wrapf(err, "preparing feature '%s'", f.Name())
		}
	}
	return nil
}

// Start runs Start on every feature in the ordered list, forward. All
// members of the ordered list are already enabled (disabled features were
// pruned during linearization).
func (p *PhaseExecutor) Start(ordered []Feature) error {
	end := p.instr.StartPhase("start")
	defer end()

	for _, f := range ordered {
		endF := p.instr.StartFeature("start", f.Name())
		p.logger.Info("start", slog.String("feature", f.Name()))
		err := f.Start()
		endF(err)
		if err != nil {
			return apperrors.Wrapf(err, "starting feature '%s'", f.Name())
		}
	}
	return nil
}

// Stop runs Stop on every feature in the ordered list, reverse. Errors are
// logged and suppressed so as many features as possible get to release
// resources; a feature's StartsAfter dependencies are still alive during
// its own Stop, since Stop runs in the reverse of Start's order.
func (p *PhaseExecutor) Stop(ordered []Feature) {
	end := p.instr.StartPhase("stop")
	defer end()

	for i := len(ordered) - 1; i >= 0; i-- {
		f := ordered[i]
		endF := p.instr.StartFeature("stop", f.Name())
		p.logger.Info("stop", slog.String("feature", f.Name()))
		err := f.Stop()
		endF(err)
		if err != nil {
			p.logger.Error("feature stop failed",
				slog.String("feature", f.Name()),
				slog.Any("error", err))
		}
	}
}
