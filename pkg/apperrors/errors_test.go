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

package apperrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaykit/appserver/pkg/apperrors"
)

func TestWrap(t *testing.T) {
	t.Run("wraps error with context", func(t *testing.T) {
		original := errors.New("original error")
		wrapped := apperrors.Wrap(original, "additional context")

		assert.Contains(t, wrapped.Error(), "additional context")
		assert.Contains(t, wrapped.Error(), "original error")
	})

	t.Run("returns nil for nil error", func(t *testing.T) {
		assert.Nil(t, apperrors.Wrap(nil, "context"))
	})

	t.Run("preserves error chain", func(t *testing.T) {
		original := errors.New("root cause")
		wrapped := apperrors.Wrap(original, "context")

		assert.True(t, apperrors.Is(wrapped, original))
	})
}

func TestWrapf(t *testing.T) {
	original := errors.New("boom")
	wrapped := apperrors.Wrapf(original, "feature %q failed", "credentials")
	assert.Contains(t, wrapped.Error(), `feature "credentials" failed`)
}

func TestAs(t *testing.T) {
	original := &apperrors.NotFoundError{Kind: "feature", Name: "x"}
	wrapped := apperrors.Wrap(original, "lookup")

	var target *apperrors.NotFoundError
	require.True(t, apperrors.As(wrapped, &target))
	assert.Equal(t, "x", target.Name)
}

func TestTypeErrorMessages(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want []string
	}{
		{"usage with feature", &apperrors.UsageError{Feature: "P", Reason: "boom"}, []string{"P", "boom"}},
		{"usage without feature", &apperrors.UsageError{Reason: "boom"}, []string{"boom"}},
		{"option with cause", &apperrors.OptionError{Option: "--x", Reason: "bad value", Cause: errors.New("cause")}, []string{"--x", "bad value"}},
		{"privilege", &apperrors.PrivilegeError{Operation: "raise-temporarily", Reason: "boom"}, []string{"raise-temporarily", "boom"}},
		{"not found", &apperrors.NotFoundError{Kind: "feature", Name: "ghost"}, []string{"feature", "ghost"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, want := range tc.want {
				assert.Contains(t, tc.err.Error(), want)
			}
		})
	}
}

func TestOptionErrorUnwrap(t *testing.T) {
	cause := errors.New("cause")
	err := &apperrors.OptionError{Option: "--x", Reason: "bad", Cause: cause}
	assert.True(t, errors.Is(err, cause))
}
