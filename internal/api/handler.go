// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

package api

import (
	"sync/atomic"

	"github.com/tagora/engine/internal/engine"
)

// Handler holds every route's dependencies: the constructed engine
// plus the readiness flag that GET /readyz reports.
type Handler struct {
	engine *engine.Engine
	ready  atomic.Bool
}

// NewHandler constructs a Handler over eng. The handler starts ready;
// SetNotReady and SetReady toggle the flag. cmd/server calls neither,
// so a running server always reports ready.
func NewHandler(eng *engine.Engine) *Handler {
	h := &Handler{engine: eng}
	h.ready.Store(true)
	return h
}

// SetReady marks the engine ready to serve GET /readyz with 200.
func (h *Handler) SetReady() { h.ready.Store(true) }

// SetNotReady marks the engine not ready, so GET /readyz answers 503.
func (h *Handler) SetNotReady() { h.ready.Store(false) }
