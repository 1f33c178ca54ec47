// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tagora/engine/internal/apperr"
	"github.com/tagora/engine/internal/models"
	"github.com/tagora/engine/internal/validation"
)

// IngestTags handles POST /user_tags (§6.1): decode, validate the
// required-field shape, hand to the Ingest Coordinator, respond 204 on
// success or map the returned *apperr.Error to its HTTP status.
func (h *Handler) IngestTags(w http.ResponseWriter, r *http.Request) {
	var raw models.RawEvent
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		respondError(w, r, apperr.BadRequest("malformed JSON body", err))
		return
	}

	if ve := validation.ValidateStruct(raw); ve != nil {
		respondError(w, r, apperr.BadRequest("invalid request body", ve))
		return
	}

	if err := h.engine.Ingest.Ingest(raw); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
