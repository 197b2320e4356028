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

package appserver_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaykit/appserver/pkg/apperrors"
	"github.com/relaykit/appserver/pkg/appserver"
)

type countingHooks struct {
	raised, dropped, droppedPermanently int
}

func (h *countingHooks) RaiseTemporarily() error { h.raised++; return nil }
func (h *countingHooks) DropTemporarily() error  { h.dropped++; return nil }
func (h *countingHooks) DropPermanently() error  { h.droppedPermanently++; return nil }

func TestPrivilegeControllerDefaultsToNoop(t *testing.T) {
	p := appserver.NewPrivilegeController(nil)
	assert.NoError(t, p.RaiseTemporarily())
	assert.NoError(t, p.DropTemporarily())
	assert.False(t, p.Dropped())
}

func TestPrivilegeControllerDelegatesToHooks(t *testing.T) {
	hooks := &countingHooks{}
	p := appserver.NewPrivilegeController(hooks)

	require.NoError(t, p.RaiseTemporarily())
	require.NoError(t, p.DropTemporarily())
	require.NoError(t, p.DropPermanently())

	assert.Equal(t, 1, hooks.raised)
	assert.Equal(t, 1, hooks.dropped)
	assert.Equal(t, 1, hooks.droppedPermanently)
	assert.True(t, p.Dropped())
}

func TestPrivilegeControllerRejectsRaiseAfterPermanentDrop(t *testing.T) {
	p := appserver.NewPrivilegeController(nil)
	require.NoError(t, p.DropPermanently())

	err := p.RaiseTemporarily()
	require.Error(t, err)
	var pe *apperrors.PrivilegeError
	assert.True(t, errors.As(err, &pe))
}

func TestPrivilegeControllerRejectsDropTemporarilyAfterPermanentDrop(t *testing.T) {
	p := appserver.NewPrivilegeController(nil)
	require.NoError(t, p.DropPermanently())
	assert.Error(t, p.DropTemporarily())
}

func TestPrivilegeControllerRejectsDoubleDropPermanently(t *testing.T) {
	p := appserver.NewPrivilegeController(nil)
	require.NoError(t, p.DropPermanently())
	assert.Error(t, p.DropPermanently())
}

func TestPrivilegeControllerHookErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	p := appserver.NewPrivilegeController(failingHooks{err: boom})

	err := p.DropPermanently()
	assert.True(t, errors.Is(err, boom))
	assert.False(t, p.Dropped(), "expected Dropped() to remain false when the hook itself fails")
}

type failingHooks struct{ err error }

func (h failingHooks) RaiseTemporarily() error { return h.err }
func (h failingHooks) DropTemporarily() error  { return h.err }
func (h failingHooks) DropPermanently() error  { return h.err }
