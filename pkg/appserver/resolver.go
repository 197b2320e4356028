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

	"github.com/relaykit/appserver/pkg/apperrors"
)

const (
	colorWhite = iota
	colorGray
	colorBlack
)

// PropagateEnablement iterates the registry to a fixed point: whenever a
// feature declares EnableWith, its Enabled mirrors the target's Enabled,
// subject to the target existing and the sticky ForceDisable rule. Each
// pass that makes no change ends the loop; this always terminates because
// every change strictly reduces the number of mismatched (feature, target)
// pairs and ForceDisable is monotone.
func PropagateEnablement(reg *Registry) error {
	for {
		changed := false
		for _, name := range reg.Names() {
			f := reg.MustFeature(name)
			target := f.EnableWith()
			if target == "" {
				continue
			}
			if !reg.Exists(target) {
				return &apperrors.UsageError{
					Reason: fmt.Sprintf("feature '%s' depends on unknown feature '%s'", name, target),
				}
			}
			targetEnabled := reg.MustFeature(target).Enabled()
			if targetEnabled != f.Enabled() {
				f.SetEnabled(targetEnabled)
				// A force-disabled feature ignores SetEnabled(true); only a
				// real change calls for another sweep.
				if f.Enabled() == targetEnabled {
					changed = true
				}
			}
		}
		if !changed {
			return nil
		}
	}
}

// CheckRequires fails for every enabled feature that requires a feature
// which is either unregistered or disabled. Only meaningful once
// PropagateEnablement has converged.
func CheckRequires(reg *Registry) error {
	var firstErr error
	reg.Apply(func(f Feature) {
		if firstErr != nil {
			return
		}
		for _, dep := range f.Requires() {
			if !reg.Exists(dep) {
				firstErr = &apperrors.UsageError{
					Reason: fmt.Sprintf("feature '%s' depends on unknown feature '%s'", f.Name(), dep),
				}
				return
			}
			if !reg.MustFeature(dep).Enabled() {
				firstErr = &apperrors.UsageError{
					Reason: fmt.Sprintf("feature '%s' depends on other feature '%s', which is disabled", f.Name(), dep),
				}
				return
			}
		}
	}, true)
	return firstErr
}

// Linearize builds the ordered list: a stable, single-pass placement that
// honors StartsAfter, then prunes disabled features. Features are placed
// in the dependencies-first order detectCycles produces. It rejects cyclic
// StartsAfter constraints, which the original single-pass insertion left
// undefined.
func Linearize(reg *Registry) ([]Feature, error) {
	order, err := detectCycles(reg)
	if err != nil {
		return nil, err
	}

	var ordered []Feature
	for _, name := range order {
		f := reg.MustFeature(name)
		before := stringSet(f.StartsAfter())

		// Every registered StartsAfter target of F is already placed, and
		// no placed feature starts after F, so F goes right behind the
		// rightmost of its targets, or leads the list if it has none.
		insertAt := 0
		for i := len(ordered); i > 0; i-- {
			if before[ordered[i-1].Name()] {
				insertAt = i
				break
			}
		}
		ordered = append(ordered, nil)
		copy(ordered[insertAt+1:], ordered[insertAt:])
		ordered[insertAt] = f
	}

	result := make([]Feature, 0, len(ordered))
	for _, f := range ordered {
		if f.Enabled() {
			result = append(result, f)
		}
	}
	return result, nil
}

// detectCycles walks the StartsAfter graph (edges F -> G, the same edges
// --dump-dependencies prints) with a three-color DFS and returns every
// registered name in dependencies-first order: each name comes after all
// of its registered StartsAfter targets. Unknown names are ignored,
// matching the original insertion algorithm, which never validated
// StartsAfter references against the registry.
func detectCycles(reg *Registry) ([]string, error) {
	color := make(map[string]int, reg.Len())
	order := make([]string, 0, reg.Len())

	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case colorBlack:
			return nil
		case colorGray:
			return &apperrors.UsageError{
				Reason: fmt.Sprintf("cyclic starts-after dependency involving feature '%s'", name),
			}
		}
		color[name] = colorGray
		f := reg.Lookup(name)
		if f != nil {
			for _, dep := range f.StartsAfter() {
				if reg.Exists(dep) {
					if err := visit(dep); err != nil {
						return err
					}
				}
			}
		}
		color[name] = colorBlack
		order = append(order, name)
		return nil
	}

	for _, name := range reg.Names() {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func stringSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
