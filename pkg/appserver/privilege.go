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
	"sync"

	"github.com/relaykit/appserver/pkg/apperrors"
)

// PrivilegeHooks are the host-provided syscalls behind the privilege state
// machine. The core only enforces the state machine; actual setuid/setgid
// equivalents are the host's concern, just as they were left as TODO stubs
// in the original source.
type PrivilegeHooks interface {
	// RaiseTemporarily restores elevated privileges for the duration of a
	// feature's Prepare call.
	RaiseTemporarily() error

	// DropTemporarily drops to unprivileged for the duration of a
	// feature's Prepare call.
	DropTemporarily() error

	// DropPermanently drops privileges for the remaining lifetime of the
	// process. Called exactly once, before Start.
	DropPermanently() error
}

// NoopPrivilegeHooks implements PrivilegeHooks with no-ops, suitable for
// processes that never run with elevated privileges, and for tests.
type NoopPrivilegeHooks struct{}

func (NoopPrivilegeHooks) RaiseTemporarily() error { return nil }
func (NoopPrivilegeHooks) DropTemporarily() error  { return nil }
func (NoopPrivilegeHooks) DropPermanently() error  { return nil }

// PrivilegeController mediates temporary raise/drop and the one-way
// permanent drop, enforcing that once dropped permanently, privileges can
// never be touched again for the lifetime of the process.
type PrivilegeController struct {
	mu       sync.Mutex
	hooks    PrivilegeHooks
	dropped  bool
}

// NewPrivilegeController wraps hooks with the state machine. A nil hooks
// defaults to NoopPrivilegeHooks.
func NewPrivilegeController(hooks PrivilegeHooks) *PrivilegeController {
	if hooks == nil {
		hooks = NoopPrivilegeHooks{}
	}
	return &PrivilegeController{hooks: hooks}
}

// RaiseTemporarily raises privileges. Fatal if called after the permanent
// drop.
func (p *PrivilegeController) RaiseTemporarily() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dropped {
		return &apperrors.PrivilegeError{
			Operation: "raise-temporarily",
			Reason:    "must not raise privileges after dropping them permanently",
		}
	}
	return p.hooks.RaiseTemporarily()
}

// DropTemporarily drops privileges. Fatal if called after the permanent
// drop.
func (p *PrivilegeController) DropTemporarily() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dropped {
		return &apperrors.PrivilegeError{
			Operation: "drop-temporarily",
			Reason:    "must not drop privileges after dropping them permanently",
		}
	}
	return p.hooks.DropTemporarily()
}

// DropPermanently sets the permanent flag and invokes the drop hook. Any
// later raise or drop call fails fatally and does not alter state. Fatal
// (and a state-machine violation in its own right) if called twice.
func (p *PrivilegeController) DropPermanently() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dropped {
		return &apperrors.PrivilegeError{
			Operation: "drop-permanently",
			Reason:    "must not try to drop privileges after dropping them permanently",
		}
	}
	if err := p.hooks.DropPermanently(); err != nil {
		return err
	}
	p.dropped = true
	return nil
}

// Dropped reports whether the permanent drop has already occurred.
func (p *PrivilegeController) Dropped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}
