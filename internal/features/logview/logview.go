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

// Package logview is an illustrative feature that exposes the shared
// logger's level as a runtime-settable option, the way the original
// source's LoggerView exposed the active log level via its level
// string/enum conversion.
package logview

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/relaykit/appserver/pkg/appserver"
)

var levelNames = map[string]slog.Level{
	"trace": slog.Level(-8),
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// levelToString is the inverse of levelNames, used when reporting the
// active level back (e.g. in a future status command).
func levelToString(l slog.Level) string {
	for name, v := range levelNames {
		if v == l {
			return name
		}
	}
	return fmt.Sprintf("level(%d)", l)
}

// Feature registers --log.level and rebinds leveler to the parsed value
// during prepare.
type Feature struct {
	*appserver.Base

	leveler *slog.LevelVar
	rawFlag string
	level   slog.Level
}

// New constructs the logview feature, bound to leveler (the LevelVar
// backing the process's shared logger handler).
func New(leveler *slog.LevelVar) *Feature {
	f := &Feature{
		Base:    appserver.NewBase("logview", true),
		leveler: leveler,
	}
	f.SetOptional(true)
	return f
}

func (f *Feature) CollectOptions(opts *appserver.Options) {
	opts.AddSection("log", "Logging", false)
	opts.Flags().StringVar(&f.rawFlag, "log.level", "info", "log level (trace, debug, info, warn, error)")
	opts.Track("log", "log.level")
}

func (f *Feature) ValidateOptions(*appserver.Options) error {
	level, ok := levelNames[strings.ToLower(f.rawFlag)]
	if !ok {
		return fmt.Errorf("invalid --log.level %q: must be one of trace, debug, info, warn, error", f.rawFlag)
	}
	f.level = level
	return nil
}

func (f *Feature) Prepare() error {
	if f.leveler != nil {
		f.leveler.Set(f.level)
	}
	return nil
}

// Level reports the currently configured level, e.g. for a status
// endpoint.
func (f *Feature) Level() string { return levelToString(f.level) }
