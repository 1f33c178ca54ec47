// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

//go:build !duckdb

package durable

import (
	"context"
	"errors"

	"github.com/tagora/engine/internal/models"
)

// DuckDBMirror is a no-op stub used when the binary is built without
// the "duckdb" build tag: the durable tier's columnar mirror is
// entirely absent rather than merely disabled at runtime.
type DuckDBMirror struct{}

// ErrDuckDBDisabled is returned by OpenDuckDBMirror and
// DuckDBMirror.Insert in builds without the "duckdb" tag.
var ErrDuckDBDisabled = errors.New("durable: built without duckdb tag")

// OpenDuckDBMirror always fails in stub builds.
func OpenDuckDBMirror(path string) (*DuckDBMirror, error) {
	return nil, ErrDuckDBDisabled
}

// Insert is a no-op.
func (m *DuckDBMirror) Insert(ctx context.Context, e models.EncodedEvent, action models.Action) error {
	return ErrDuckDBDisabled
}

// Close is a no-op.
func (m *DuckDBMirror) Close() error { return nil }
