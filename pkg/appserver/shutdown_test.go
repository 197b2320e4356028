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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaykit/appserver/pkg/appserver"
)

func TestShutdownCoordinatorStoppingDefaultsFalse(t *testing.T) {
	c := appserver.NewShutdownCoordinator()
	assert.False(t, c.Stopping())
}

func TestShutdownCoordinatorDeliversReverseOrderEnabledOnly(t *testing.T) {
	c := appserver.NewShutdownCoordinator()
	a := appserver.NewBase("a", true)
	b := appserver.NewBase("b", false)
	d := appserver.NewBase("d", true)
	ordered := []appserver.Feature{a, b, d}

	var seen []string
	c.BeginShutdown(ordered, func(f appserver.Feature) { seen = append(seen, f.Name()) })

	assert.Equal(t, []string{"d", "a"}, seen)
	assert.True(t, c.Stopping())
}

func TestShutdownCoordinatorBeginShutdownIsIdempotent(t *testing.T) {
	c := appserver.NewShutdownCoordinator()
	a := appserver.NewBase("a", true)
	ordered := []appserver.Feature{a}

	calls := 0
	onFeature := func(f appserver.Feature) { calls++ }

	c.BeginShutdown(ordered, onFeature)
	c.BeginShutdown(ordered, onFeature)
	c.BeginShutdown(ordered, onFeature)

	assert.Equal(t, 1, calls, "expected feature callbacks to fire exactly once across repeated BeginShutdown calls")
	assert.True(t, c.Stopping())
}

func TestShutdownCoordinatorWaitUnblocksOnBeginShutdown(t *testing.T) {
	c := appserver.NewShutdownCoordinator()
	done := make(chan struct{})

	go func() {
		c.Wait()
		close(done)
	}()

	select {
	case <-done:
		require.Fail(t, "Wait returned before BeginShutdown was called")
	case <-time.After(20 * time.Millisecond):
	}

	c.BeginShutdown(nil, func(appserver.Feature) {})

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "Wait did not unblock after BeginShutdown")
	}
}

func TestShutdownCoordinatorWaitReturnsImmediatelyIfAlreadyStopping(t *testing.T) {
	c := appserver.NewShutdownCoordinator()
	c.BeginShutdown(nil, func(appserver.Feature) {})

	done := make(chan struct{})
	go func() {
		c.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "Wait did not return immediately when already stopping")
	}
}
