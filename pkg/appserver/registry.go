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
	"sort"

	"github.com/relaykit/appserver/pkg/apperrors"
)

// Registry owns the mapping of feature name to Feature. It is mutable only
// until the orchestrator has computed the ordered list; after that it is
// read-only for the remainder of the process.
type Registry struct {
	features map[string]Feature
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{features: make(map[string]Feature)}
}

// Add inserts a feature. A duplicate name is a fatal usage error: it is a
// programmer bug, not a runtime condition, so Add panics with a typed
// error rather than returning one.
func (r *Registry) Add(f Feature) {
	name := f.Name()
	if name == "" {
		panic(&apperrors.UsageError{Reason: "feature registered with empty name"})
	}
	if _, exists := r.features[name]; exists {
		panic(&apperrors.UsageError{Feature: name, Reason: "feature registered twice"})
	}
	r.features[name] = f
}

// Exists reports whether name is registered. Never fails.
func (r *Registry) Exists(name string) bool {
	_, ok := r.features[name]
	return ok
}

// Lookup returns the feature named name, or nil if absent. Never fails.
func (r *Registry) Lookup(name string) Feature {
	return r.features[name]
}

// Feature returns the feature named name, or a NotFoundError if absent.
func (r *Registry) Feature(name string) (Feature, error) {
	f, ok := r.features[name]
	if !ok {
		return nil, &apperrors.NotFoundError{Kind: "feature", Name: name}
	}
	return f, nil
}

// MustFeature is like Feature but panics on lookup failure; used internally
// where absence has already been validated as a usage error.
func (r *Registry) MustFeature(name string) Feature {
	f, err := r.Feature(name)
	if err != nil {
		panic(err)
	}
	return f
}

// Apply invokes callback for every registered feature. Iteration order is
// deterministic (lexicographic by name, like the original source's
// std::map<std::string, ApplicationFeature*>) but otherwise unspecified by
// contract — callers must not depend on it meaning anything beyond
// "repeatable within and across calls". When enabledOnly is true, disabled
// features are skipped.
func (r *Registry) Apply(callback func(Feature), enabledOnly bool) {
	for _, name := range r.Names() {
		f := r.features[name]
		if !enabledOnly || f.Enabled() {
			callback(f)
		}
	}
}

// Names returns every registered feature name in deterministic,
// lexicographic order. Used by the resolver to establish the
// registry-iteration-order tie-break.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.features))
	for name := range r.features {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered features.
func (r *Registry) Len() int { return len(r.features) }

func (r *Registry) String() string {
	return fmt.Sprintf("Registry(%d features)", len(r.features))
}
