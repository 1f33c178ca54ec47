// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ingest implements the Ingest Coordinator (§4.5): it turns one
// externally received tag into dictionary encoding plus the Profile
// Store and Minute Store appends, and optionally feeds a durable tier
// without ever blocking on it.
package ingest

import (
	"time"

	"github.com/tagora/engine/internal/apperr"
	"github.com/tagora/engine/internal/dictionary"
	"github.com/tagora/engine/internal/models"
)

// ProfileAppender is the narrow slice of the Profile Store the
// coordinator needs.
type ProfileAppender interface {
	Append(cookie string, action models.Action, encoded models.EncodedEvent)
}

// MinuteAppender is the narrow slice of the Minute Store the
// coordinator needs.
type MinuteAppender interface {
	Append(minuteIdx int64, encoded models.EncodedEvent)
}

// DurableSink receives a best-effort, asynchronous copy of every
// successfully ingested event. It is never on the critical path: a nil
// Sink, a slow Sink, and a Sink that panics are all equivalent to the
// ingest response (§4.5, §6.5).
type DurableSink interface {
	Publish(encoded models.EncodedEvent, action models.Action)
}

// noopSink is used when no durable tier is configured.
type noopSink struct{}

func (noopSink) Publish(models.EncodedEvent, models.Action) {}

// Coordinator wires together the Dictionary, Profile Store, Minute
// Store, and an optional durable sink (§2, §4.5).
type Coordinator struct {
	dict    *dictionary.Dictionary
	profile ProfileAppender
	minute  MinuteAppender
	durable DurableSink
}

// New constructs a Coordinator. durable may be nil, in which case
// ingested events are simply not mirrored anywhere.
func New(dict *dictionary.Dictionary, profile ProfileAppender, minuteStore MinuteAppender, durable DurableSink) *Coordinator {
	if durable == nil {
		durable = noopSink{}
	}
	return &Coordinator{dict: dict, profile: profile, minute: minuteStore, durable: durable}
}

// Ingest parses and encodes raw, then fans it out to the Profile Store
// and Minute Store (§4.5). It returns a *apperr.Error with KindBadRequest
// for any malformed input, and KindInternal for a dictionary width
// overflow. Success requires the Profile Store append to have happened
// (which in this in-memory implementation cannot itself fail short of
// a width overflow already caught during encoding) — the Minute Store
// append is best-effort alongside it, per §7's propagation policy.
func (c *Coordinator) Ingest(raw models.RawEvent) error {
	ts, err := time.Parse(time.RFC3339Nano, raw.Time)
	if err != nil {
		return apperr.BadRequest("unparseable timestamp", err)
	}

	action, ok := models.ParseAction(raw.Action)
	if !ok {
		return apperr.BadRequest("unknown action: "+raw.Action, nil)
	}
	device, ok := models.ParseDevice(raw.Device)
	if !ok {
		return apperr.BadRequest("unknown device: "+raw.Device, nil)
	}

	countryID, err := c.dict.Intern(dictionary.Country, raw.Country)
	if err != nil {
		return apperr.Internal("country dictionary overflow", err)
	}
	originID, err := c.dict.Intern(dictionary.Origin, raw.Origin)
	if err != nil {
		return apperr.Internal("origin dictionary overflow", err)
	}
	productID, err := c.dict.Intern(dictionary.Product, raw.ProductInfo.ProductID)
	if err != nil {
		return apperr.Internal("product dictionary overflow", err)
	}
	brandID, err := c.dict.Intern(dictionary.Brand, raw.ProductInfo.BrandID)
	if err != nil {
		return apperr.Internal("brand dictionary overflow", err)
	}
	categoryID, err := c.dict.Intern(dictionary.Category, raw.ProductInfo.CategoryID)
	if err != nil {
		return apperr.Internal("category dictionary overflow", err)
	}

	timeMs := ts.UnixMilli()
	encoded := models.EncodedEvent{
		TimeMs:     timeMs,
		Cookie:     raw.Cookie,
		CountryID:  uint8(countryID),
		Device:     device,
		Action:     action,
		OriginID:   uint16(originID),
		ProductID:  productID,
		BrandID:    uint16(brandID),
		CategoryID: uint16(categoryID),
		Price:      raw.ProductInfo.Price,
	}

	c.fanOut(raw.Cookie, action, encoded)
	return nil
}

// fanOut appends to the Profile Store and Minute Store concurrently —
// the two need not be atomic with respect to each other (§4.5 step 6)
// — and fires the durable sink without waiting for it.
func (c *Coordinator) fanOut(cookie string, action models.Action, encoded models.EncodedEvent) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.minute.Append(models.MinuteIndex(encoded.TimeMs), encoded)
	}()

	c.profile.Append(cookie, action, encoded)
	<-done

	go func() {
		defer func() { _ = recover() }()
		c.durable.Publish(encoded, action)
	}()
}
