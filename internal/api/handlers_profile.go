// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tagora/engine/internal/dictionary"
	"github.com/tagora/engine/internal/models"
	"github.com/tagora/engine/internal/profile"
)

// profileResponse is the exact §6.2 response shape.
type profileResponse struct {
	Cookie string         `json:"cookie"`
	Views  []models.Event `json:"views"`
	Buys   []models.Event `json:"buys"`
}

// UserProfiles handles POST /user_profiles/{cookie} (§6.2): resolve
// the cookie's recent views/buys within time_range, decode every
// dictionary id back to its string, and return them in descending-time
// order.
func (h *Handler) UserProfiles(w http.ResponseWriter, r *http.Request) {
	cookie := chi.URLParam(r, "cookie")

	q := queryValues(r)
	tr, err := parseTimeRange(q.Get("time_range"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	views, buys := h.engine.Profile.Get(cookie, profile.TimeRange{Start: tr.StartMs, End: tr.EndMs}, limit)

	writeJSON(w, http.StatusOK, profileResponse{
		Cookie: cookie,
		Views:  h.decodeEntries(views),
		Buys:   h.decodeEntries(buys),
	})
}

// decodeEntries reverses dictionary encoding for a slice of
// ProfileEntry, in place order, for the wire response.
func (h *Handler) decodeEntries(entries []models.ProfileEntry) []models.Event {
	events := make([]models.Event, len(entries))
	for i, e := range entries {
		events[i] = h.decodeEvent(e.Event, e.Action)
	}
	return events
}

// decodeEvent reverses dictionary encoding for one EncodedEvent. An id
// with no reverse mapping (should never happen for an id this process
// itself assigned) decodes to the empty string rather than panicking.
func (h *Handler) decodeEvent(e models.EncodedEvent, action models.Action) models.Event {
	dict := h.engine.Dictionary

	country, _ := dict.Lookup(dictionary.Country, uint32(e.CountryID))
	origin, _ := dict.Lookup(dictionary.Origin, uint32(e.OriginID))
	productID, _ := dict.Lookup(dictionary.Product, e.ProductID)
	brandID, _ := dict.Lookup(dictionary.Brand, uint32(e.BrandID))
	categoryID, _ := dict.Lookup(dictionary.Category, uint32(e.CategoryID))

	return models.Event{
		Time:    time.UnixMilli(e.TimeMs).UTC(),
		Cookie:  e.Cookie,
		Country: country,
		Device:  e.Device,
		Action:  action,
		Origin:  origin,
		ProductInfo: models.ProductInfo{
			ProductID:  productID,
			BrandID:    brandID,
			CategoryID: categoryID,
			Price:      e.Price,
		},
	}
}
