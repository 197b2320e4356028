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

import "sync"

// ShutdownCoordinator publishes the stop signal and delivers begin-shutdown
// to features in reverse order. Unlike the original source's 100ms poll
// loop (left as a TODO there), Wait blocks on a condition variable so
// wake-up latency tracks signal delivery, not a poll interval.
type ShutdownCoordinator struct {
	mu       sync.Mutex
	cond     *sync.Cond
	stopping bool
	fired    bool
}

// NewShutdownCoordinator returns a coordinator with the stopping flag
// clear.
func NewShutdownCoordinator() *ShutdownCoordinator {
	c := &ShutdownCoordinator{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// BeginShutdown invokes onFeature(f) for every enabled feature in ordered,
// from the tail backward, then raises the stopping flag and wakes any
// Wait callers. Idempotent: the stopping flag is set at most meaningfully
// once, but the call itself is always safe to repeat; on repeat calls
// onFeature is not invoked again, matching the "at least idempotent
// stopping flag" requirement while avoiding duplicate shutdown work for
// features whose BeginShutdown is not itself idempotent.
func (c *ShutdownCoordinator) BeginShutdown(ordered []Feature, onFeature func(Feature)) {
	c.mu.Lock()
	alreadyFired := c.fired
	c.fired = true
	c.mu.Unlock()

	if !alreadyFired {
		for i := len(ordered) - 1; i >= 0; i-- {
			f := ordered[i]
			if f.Enabled() {
				onFeature(f)
			}
		}
	}

	c.mu.Lock()
	c.stopping = true
	c.mu.Unlock()
	c.cond.Broadcast()
}

// Wait blocks until BeginShutdown has raised the stopping flag.
func (c *ShutdownCoordinator) Wait() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for !c.stopping {
		c.cond.Wait()
	}
}

// Stopping reports whether shutdown has begun.
func (c *ShutdownCoordinator) Stopping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopping
}
