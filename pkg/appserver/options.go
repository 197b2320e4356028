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
	"strings"

	"github.com/spf13/pflag"

	"github.com/relaykit/appserver/pkg/apperrors"
)

// optionSection groups related flags for --help=<section> filtering, the
// way the original ArgumentParser's Section did.
type optionSection struct {
	name        string
	description string
	hidden      bool
}

// Options is a thin wrapper over pflag.FlagSet. Features declare their
// options against it during CollectOptions; once Seal is called no further
// declarations are accepted, and values may only be read from then on.
type Options struct {
	fs          *pflag.FlagSet
	sections    []string
	sectionInfo map[string]*optionSection
	flagSection map[string]string

	sealed           bool
	dumpDependencies bool
}

// NewOptions constructs an empty Options set and declares the orchestrator's
// own global section and hidden --dump-dependencies switch, mirroring
// ApplicationServer::collectOptions.
func NewOptions(program string) *Options {
	o := &Options{
		fs:          pflag.NewFlagSet(program, pflag.ContinueOnError),
		sectionInfo: make(map[string]*optionSection),
		flagSection: make(map[string]string),
	}
	o.fs.Usage = func() {}
	o.AddSection("", "Global configuration", false)
	o.fs.BoolVar(&o.dumpDependencies, "dump-dependencies", false, "dump dependency graph")
	_ = o.fs.MarkHidden("dump-dependencies")
	o.flagSection["dump-dependencies"] = ""
	return o
}

// AddSection declares a named help section. Declaring the same name twice
// is a no-op. Panics with a UsageError if called after Seal.
func (o *Options) AddSection(name, description string, hidden bool) {
	o.assertNotSealed("add section " + name)
	if _, exists := o.sectionInfo[name]; exists {
		return
	}
	o.sectionInfo[name] = &optionSection{name: name, description: description, hidden: hidden}
	o.sections = append(o.sections, name)
}

// Flags returns the underlying pflag.FlagSet so features can declare typed
// options (StringVar, BoolVar, ...) directly.
func (o *Options) Flags() *pflag.FlagSet {
	return o.fs
}

// Track records which section a flag belongs to, for --help=<section>
// filtering. Call after declaring the flag on Flags().
func (o *Options) Track(section, flagName string) {
	o.assertNotSealed("track flag " + flagName)
	o.flagSection[flagName] = section
}

// Seal prevents further option declarations. Idempotent.
func (o *Options) Seal() { o.sealed = true }

// Sealed reports whether Seal has been called.
func (o *Options) Sealed() bool { return o.sealed }

// DumpDependencies reports whether --dump-dependencies was passed.
func (o *Options) DumpDependencies() bool { return o.dumpDependencies }

// Parse parses args (excluding the program name) against the declared
// flags. Returns an *apperrors.OptionError on failure.
func (o *Options) Parse(args []string) error {
	if err := o.fs.Parse(args); err != nil {
		return &apperrors.OptionError{Reason: "parsing command-line options", Cause: err}
	}
	return nil
}

// HelpSection scans args for --help or --help=<section> (or -h), returning
// the requested section and true if help was requested. "all" aliases to
// "*". Mirrors ArgumentParser::helpSection, which runs before the real
// parse so --help always works even with otherwise-invalid arguments.
func (o *Options) HelpSection(args []string) (string, bool) {
	for _, arg := range args {
		switch {
		case arg == "--help" || arg == "-h":
			return "*", true
		case strings.HasPrefix(arg, "--help="):
			section := strings.TrimPrefix(arg, "--help=")
			if section == "all" || section == "" {
				section = "*"
			}
			return section, true
		}
	}
	return "", false
}

// PrintHelp writes help text for the given section pattern ("*" means
// every non-hidden section) to w.
func (o *Options) PrintHelp(w interface{ Write([]byte) (int, error) }, pattern string) {
	byFlag := make(map[string][]*pflag.Flag)
	o.fs.VisitAll(func(f *pflag.Flag) {
		section := o.flagSection[f.Name]
		byFlag[section] = append(byFlag[section], f)
	})

	for _, name := range o.sections {
		info := o.sectionInfo[name]
		if info.hidden {
			continue
		}
		if pattern != "*" && pattern != name {
			continue
		}
		flags := byFlag[name]
		if len(flags) == 0 {
			continue
		}
		sort.Slice(flags, func(i, j int) bool { return flags[i].Name < flags[j].Name })

		title := info.description
		if name == "" {
			title = "Global configuration"
		}
		fmt.Fprintf(w, "%s:\n", title)
		for _, f := range flags {
			fmt.Fprintf(w, "  --%-20s %s\n", f.Name, f.Usage)
		}
	}
}

// Document returns a structured view of the sealed option values, with the
// given option names omitted. Panics if called before Seal, since option
// values may only be read after sealing (invariant 5).
func (o *Options) Document(excludes map[string]bool) map[string]string {
	if !o.sealed {
		panic(&apperrors.UsageError{Reason: "Options.Document called before Seal"})
	}
	doc := make(map[string]string)
	o.fs.VisitAll(func(f *pflag.Flag) {
		if f.Hidden || excludes[f.Name] {
			return
		}
		doc[f.Name] = f.Value.String()
	})
	return doc
}

func (o *Options) assertNotSealed(action string) {
	if o.sealed {
		panic(&apperrors.UsageError{Reason: "options already sealed: cannot " + action})
	}
}
