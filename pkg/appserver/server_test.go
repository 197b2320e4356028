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
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaykit/appserver/pkg/appserver"
)

// startStopFeature runs Start synchronously and returns as soon as it is
// called, so Run's Wait/Stop sequence can be exercised without a live
// goroutine racing the test.
type startStopFeature struct {
	*appserver.Base
	started, stopped bool
}

func newStartStopFeature(name string) *startStopFeature {
	return &startStopFeature{Base: appserver.NewBase(name, true)}
}

func (f *startStopFeature) Start() error { f.started = true; return nil }
func (f *startStopFeature) Stop() error  { f.stopped = true; return nil }

func TestOrchestratorSingletonEnforced(t *testing.T) {
	srv, err := appserver.New(appserver.NewOptions("prog1"))
	require.NoError(t, err)
	defer srv.Run([]string{"prog1", "--help"}) // releases the singleton slot

	_, err = appserver.New(appserver.NewOptions("prog2"))
	assert.Error(t, err, "expected a second concurrent Orchestrator to fail")
}

func TestOrchestratorNewRejectsNilOptions(t *testing.T) {
	_, err := appserver.New(nil)
	assert.Error(t, err)
}

func TestOrchestratorRunHelpShortCircuits(t *testing.T) {
	var out bytes.Buffer
	srv, err := appserver.New(appserver.NewOptions("prog"), appserver.WithOutput(&out))
	require.NoError(t, err)

	f := newStartStopFeature("x")
	srv.Add(f)

	require.NoError(t, srv.Run([]string{"prog", "--help"}))
	assert.False(t, f.started, "expected --help to short-circuit before any phase runs")
}

func TestOrchestratorRunDumpDependenciesShortCircuits(t *testing.T) {
	var out bytes.Buffer
	srv, err := appserver.New(appserver.NewOptions("prog"), appserver.WithOutput(&out))
	require.NoError(t, err)

	dependent := newStartStopFeature("dependent")
	dependent.SetStartsAfter("target")
	target := newStartStopFeature("target")
	srv.Add(dependent)
	srv.Add(target)

	require.NoError(t, srv.Run([]string{"prog", "--dump-dependencies"}))
	assert.False(t, dependent.started)
	assert.False(t, target.started)

	got := out.String()
	assert.Contains(t, got, "digraph dependencies")
	assert.Contains(t, got, "overlap = false;")
	assert.Contains(t, got, "dependent -> target;")
}

func TestOrchestratorRunFullLifecycle(t *testing.T) {
	srv, err := appserver.New(appserver.NewOptions("prog"))
	require.NoError(t, err)

	f := newStartStopFeature("x")
	srv.Add(f)

	var runErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = srv.Run([]string{"prog"})
	}()

	// give Run time to reach Start and then Wait
	time.Sleep(20 * time.Millisecond)
	require.True(t, f.started, "expected the feature to have started")

	srv.BeginShutdown()
	wg.Wait()

	assert.NoError(t, runErr)
	assert.True(t, f.stopped, "expected the feature to have stopped after shutdown")
}

func TestOrchestratorOptionsPanicsBeforeRun(t *testing.T) {
	srv, err := appserver.New(appserver.NewOptions("prog"))
	require.NoError(t, err)

	assert.Panics(t, func() { srv.Options(nil) })
}
