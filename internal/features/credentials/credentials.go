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

// Package credentials is an illustrative feature that needs elevated
// privileges to read a secret from the system keychain, then hands a
// derived, unprivileged value to later features through a Handoff
// capability passed in at registration time — never through a stored
// back-reference to the orchestrator.
package credentials

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"

	"github.com/relaykit/appserver/pkg/appserver"
)

const service = "appserver"

// Handoff carries a value from one feature's prepare to a later feature's
// prepare, relying on the ordered list's forward guarantee (spec §5(a)):
// for F in G.starts-after, every non-reverse phase calls F before G.
type Handoff struct {
	mu    sync.Mutex
	value string
	set   bool
}

// Set stores value. Called at most once, by the producing feature.
func (h *Handoff) Set(value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.value = value
	h.set = true
}

// Get returns the stored value. Safe to call from any feature whose
// starts-after includes the producer, once that producer's prepare has
// run.
func (h *Handoff) Get() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.value, h.set
}

// Feature reads a keychain-stored secret while privileges are elevated
// and derives an unprivileged token for dependents.
type Feature struct {
	*appserver.Base

	out     *Handoff
	account string
}

// New constructs the credentials feature, publishing its derived token
// into out.
func New(out *Handoff) *Feature {
	f := &Feature{
		Base: appserver.NewBase("credentials", true),
		out:  out,
	}
	f.SetOptional(true)
	f.SetRequiresElevatedPrivileges(true)
	return f
}

func (f *Feature) CollectOptions(opts *appserver.Options) {
	opts.AddSection("credentials", "Credential storage", false)
	opts.Flags().StringVar(&f.account, "credentials.account", "appserver-default", "keychain account name to read the signing secret from")
	opts.Track("credentials", "credentials.account")
}

// Prepare runs while privileges are still elevated: it reads the secret
// from the system keychain and hands a derived (not the raw secret)
// value to dependents via out.
func (f *Feature) Prepare() error {
	secret, err := keyring.Get(service, f.account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no credential stored for account %q: run your platform's keychain tool to set one", f.account)
		}
		return fmt.Errorf("reading keychain credential: %w", err)
	}
	f.out.Set(derive(secret))
	return nil
}

// derive keeps the raw secret out of the handoff: dependents only ever
// see a value scoped to this process's signing use.
func derive(secret string) string {
	return "derived:" + secret
}
