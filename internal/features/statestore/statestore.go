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

// Package statestore is an illustrative feature that opens a pure-Go
// sqlite database during prepare (before any threads start, per the
// concurrency model's prepare constraint) and exposes a small key/value
// API to later features during start.
package statestore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/relaykit/appserver/pkg/appserver"
)

// Feature owns a sqlite-backed key/value table.
type Feature struct {
	*appserver.Base

	path string
	db   *sql.DB
}

// New constructs the statestore feature.
func New() *Feature {
	f := &Feature{Base: appserver.NewBase("statestore", true)}
	f.SetOptional(true)
	return f
}

func (f *Feature) CollectOptions(opts *appserver.Options) {
	opts.AddSection("statestore", "State storage", false)
	opts.Flags().StringVar(&f.path, "statestore.path", "file::memory:?cache=shared", "sqlite DSN for the state store")
	opts.Track("statestore", "statestore.path")
}

func (f *Feature) Prepare() error {
	db, err := sql.Open("sqlite", f.path)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (id TEXT PRIMARY KEY, key TEXT NOT NULL, value TEXT NOT NULL)`); err != nil {
		db.Close()
		return fmt.Errorf("creating state table: %w", err)
	}
	f.db = db
	return nil
}

func (f *Feature) Stop() error {
	if f.db == nil {
		return nil
	}
	return f.db.Close()
}

// Put stores value under key, returning the row's generated id.
func (f *Feature) Put(ctx context.Context, key, value string) (string, error) {
	id := uuid.NewString()
	_, err := f.db.ExecContext(ctx, `INSERT INTO state (id, key, value) VALUES (?, ?, ?)`, id, key, value)
	return id, err
}

// Get returns the most recently stored value for key.
func (f *Feature) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := f.db.QueryRowContext(ctx, `SELECT value FROM state WHERE key = ? ORDER BY rowid DESC LIMIT 1`, key).Scan(&value)
	return value, err
}
