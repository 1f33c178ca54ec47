// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

// Package api is the HTTP front end implementing §6.1-§6.4: a
// goccy/go-json-backed chi router over the Dictionary, Profile Store,
// Minute Store, and Aggregator. Unlike the teacher's generic
// success/error envelope, every response body here is the literal
// shape §6 specifies — callers are machine clients (ad servers,
// analytics dashboards), not this codebase's own frontend, so there is
// no "data"/"meta" wrapper to keep consistent across unrelated
// endpoints.
package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tagora/engine/internal/apperr"
	"github.com/tagora/engine/internal/logging"
)

// writeJSON encodes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// errorBody is the JSON shape written for any non-2xx response. §6
// doesn't mandate an error body shape beyond the status code, so this
// follows the teacher's minimal error envelope rather than inventing a
// new one.
type errorBody struct {
	Error string `json:"error"`
}

// respondError maps err to its HTTP status via apperr.HTTPStatus and
// writes a minimal JSON error body, logging Internal errors with full
// context per §7's propagation policy.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)

	if status == http.StatusInternalServerError {
		logging.Error().
			Err(err).
			Str("request_id", logging.RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg("internal error handling request")
	} else {
		logging.Warn().
			Err(err).
			Str("request_id", logging.RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg("request rejected")
	}

	writeJSON(w, status, errorBody{Error: err.Error()})
}
