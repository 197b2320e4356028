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

package credentials_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaykit/appserver/internal/features/credentials"
	"github.com/relaykit/appserver/pkg/appserver"
)

func TestHandoffUnsetByDefault(t *testing.T) {
	var h credentials.Handoff
	_, ok := h.Get()
	assert.False(t, ok, "expected a fresh Handoff to report unset")
}

func TestHandoffSetThenGet(t *testing.T) {
	var h credentials.Handoff
	h.Set("token-value")

	got, ok := h.Get()
	assert.True(t, ok)
	assert.Equal(t, "token-value", got)
}

func TestHandoffConcurrentAccess(t *testing.T) {
	var h credentials.Handoff
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.Set("concurrent-value")
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.Get()
	}()
	wg.Wait()
}

func TestCredentialsFeatureDefaults(t *testing.T) {
	f := credentials.New(&credentials.Handoff{})
	assert.True(t, f.Optional())
	assert.True(t, f.RequiresElevatedPrivileges())

	opts := appserver.NewOptions("prog")
	f.CollectOptions(opts)
	opts.Seal()

	doc := opts.Document(nil)
	assert.Equal(t, "appserver-default", doc["credentials.account"])
}
