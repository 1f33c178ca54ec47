// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

package api

import "net/http"

// Healthz handles GET /healthz: the engine answers as soon as it's
// constructed and accepting writes, regardless of durable-tier state
// (§9 "Health/readiness endpoint").
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz handles GET /readyz: 200 while the handler's readiness flag is
// set (it starts set, see NewHandler), 503 {"status":"starting"} after
// SetNotReady.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if !h.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
