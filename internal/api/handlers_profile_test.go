// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/tagora/engine/internal/models"
)

func withCookieParam(req *http.Request, cookie string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("cookie", cookie)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func ingestOne(t *testing.T, h *Handler, body string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/user_tags", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.IngestTags(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("fixture ingest failed: %d %s", rec.Code, rec.Body.String())
	}
}

func TestUserProfiles(t *testing.T) {
	h := newTestHandler()

	ingestOne(t, h, `{
		"time": "2026-01-01T00:00:30Z",
		"cookie": "cookie-1",
		"country": "US",
		"device": "PC",
		"action": "VIEW",
		"origin": "ads.example",
		"product_info": {"product_id": "p1", "brand_id": "b1", "category_id": "c1", "price": 100}
	}`)
	ingestOne(t, h, `{
		"time": "2026-01-01T00:00:45Z",
		"cookie": "cookie-1",
		"country": "US",
		"device": "MOBILE",
		"action": "BUY",
		"origin": "ads.example",
		"product_info": {"product_id": "p2", "brand_id": "b2", "category_id": "c2", "price": 250}
	}`)

	req := httptest.NewRequest(http.MethodPost,
		"/user_profiles/cookie-1?time_range=2026-01-01T00:00:00.000_2026-01-01T00:01:00.000", nil)
	req = withCookieParam(req, "cookie-1")
	rec := httptest.NewRecorder()

	h.UserProfiles(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"cookie":"cookie-1"`) {
		t.Errorf("expected cookie echoed back, got %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"product_id":"p1"`) {
		t.Errorf("expected decoded view product id p1, got %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"product_id":"p2"`) {
		t.Errorf("expected decoded buy product id p2, got %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"action":"VIEW"`) || !strings.Contains(rec.Body.String(), `"action":"BUY"`) {
		t.Errorf("expected action rendered as its wire string, not an integer, got %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"device":"PC"`) || !strings.Contains(rec.Body.String(), `"device":"MOBILE"`) {
		t.Errorf("expected device rendered as its wire string, not an integer, got %s", rec.Body.String())
	}
}

func TestUserProfiles_UnknownCookie(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodPost,
		"/user_profiles/never-seen?time_range=2026-01-01T00:00:00.000_2026-01-01T00:01:00.000", nil)
	req = withCookieParam(req, "never-seen")
	rec := httptest.NewRecorder()

	h.UserProfiles(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("an unknown cookie is not an error, expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"views":[]`) || !strings.Contains(rec.Body.String(), `"buys":[]`) {
		t.Errorf("expected empty views/buys for an unknown cookie, got %s", rec.Body.String())
	}
}

func TestUserProfiles_MissingTimeRange(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/user_profiles/cookie-1", nil)
	req = withCookieParam(req, "cookie-1")
	rec := httptest.NewRecorder()

	h.UserProfiles(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a missing time_range, got %d", rec.Code)
	}
}

func TestDecodeEvent_UnknownIDDecodesToEmptyString(t *testing.T) {
	h := newTestHandler()

	e := models.EncodedEvent{TimeMs: 0, CountryID: 99, OriginID: 99, ProductID: 99, BrandID: 99, CategoryID: 99}
	event := h.decodeEvent(e, models.ActionView)

	if event.Country != "" || event.Origin != "" || event.ProductInfo.ProductID != "" {
		t.Errorf("expected empty strings for unmapped ids, got %+v", event)
	}
}
