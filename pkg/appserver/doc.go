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

/*
Package appserver implements a process-wide feature lifecycle orchestrator.

An Orchestrator owns a set of named, interdependent Features. It resolves
the "starts-after" partial order between enabled features, drives every
feature through a fixed sequence of lifecycle phases in the direction that
order requires, and coordinates a single permanent privilege drop with a
condition-variable-backed shutdown signal.

# Registering features

	srv, err := appserver.New(appserver.NewOptions("appserverd"))
	if err != nil {
		log.Fatal(err)
	}
	srv.Add(myfeature.New())
	if err := srv.Run(os.Args); err != nil {
		srv.Fail(err.Error())
	}

# Lifecycle

Run drives, in order: collectOptions, external option parsing,
enableAutomaticFeatures, the requires check, setupDependencies (building the
starts-after order), loadOptions, validateOptions, daemonize, prepare
(interleaved with privilege transitions), a permanent privilege drop, start,
wait (blocks until BeginShutdown is called), stop.

Only one Orchestrator may be live in a process at a time; New returns an
error for a second attempt.
*/
package appserver
