// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package models holds the wire and in-memory shapes shared across the
// ingest, profile, minute-store, and aggregator packages.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action identifies whether a tag was a product view or a purchase.
// Action is a closed two-state enum and is never interned in the
// dictionary — it is stored directly as a uint8 next to the other
// columns it gates.
type Action uint8

const (
	// ActionUnknown is the zero value and is never produced by a
	// successful parse; it exists so a missing/invalid action is
	// distinguishable from ActionView.
	ActionUnknown Action = iota
	ActionView
	ActionBuy
)

// String renders the action the way it appears on the wire.
func (a Action) String() string {
	switch a {
	case ActionView:
		return "VIEW"
	case ActionBuy:
		return "BUY"
	default:
		return "UNKNOWN"
	}
}

// ParseAction decodes the wire representation of an action. The zero
// value and ok=false are returned for anything other than VIEW/BUY.
func ParseAction(s string) (Action, bool) {
	switch s {
	case "VIEW":
		return ActionView, true
	case "BUY":
		return ActionBuy, true
	default:
		return ActionUnknown, false
	}
}

// MarshalJSON renders Action as its wire string ("VIEW"/"BUY") rather
// than its underlying integer, matching §6.1/§6.2's Event shape.
func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON parses Action from its wire string.
func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := ParseAction(s)
	if !ok {
		return fmt.Errorf("models: unknown action %q", s)
	}
	*a = parsed
	return nil
}

// Device identifies the client device class. Like Action, it is a
// closed enum and is never interned.
type Device uint8

const (
	DeviceUnknown Device = iota
	DevicePC
	DeviceMobile
	DeviceTV
)

// String renders the device the way it appears on the wire.
func (d Device) String() string {
	switch d {
	case DevicePC:
		return "PC"
	case DeviceMobile:
		return "MOBILE"
	case DeviceTV:
		return "TV"
	default:
		return "UNKNOWN"
	}
}

// ParseDevice decodes the wire representation of a device.
func ParseDevice(s string) (Device, bool) {
	switch s {
	case "PC":
		return DevicePC, true
	case "MOBILE":
		return DeviceMobile, true
	case "TV":
		return DeviceTV, true
	default:
		return DeviceUnknown, false
	}
}

// MarshalJSON renders Device as its wire string ("PC"/"MOBILE"/"TV")
// rather than its underlying integer, matching §6.1/§6.2's Event shape.
func (d Device) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON parses Device from its wire string.
func (d *Device) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := ParseDevice(s)
	if !ok {
		return fmt.Errorf("models: unknown device %q", s)
	}
	*d = parsed
	return nil
}

// ProductInfo describes the product a tag refers to, before dictionary
// encoding.
type ProductInfo struct {
	ProductID  string `json:"product_id" validate:"required"`
	BrandID    string `json:"brand_id" validate:"required"`
	CategoryID string `json:"category_id" validate:"required"`
	Price      int32  `json:"price"`
}

// Event is one observed user-product interaction, already decoded into
// its domain representation (§3.1).
type Event struct {
	Time        time.Time   `json:"time"`
	Cookie      string      `json:"cookie"`
	Country     string      `json:"country"`
	Device      Device      `json:"device"`
	Action      Action      `json:"action"`
	Origin      string      `json:"origin"`
	ProductInfo ProductInfo `json:"product_info"`
}

// RawEvent is the JSON body of POST /user_tags exactly as it arrives
// on the wire (§6.1): action, device, and time are still strings,
// since deciding whether they are well-formed is the Ingest
// Coordinator's job (§4.5 steps 3-4), not the HTTP layer's.
type RawEvent struct {
	ProductInfo ProductInfo `json:"product_info" validate:"required"`
	Time        string      `json:"time" validate:"required"`
	Cookie      string      `json:"cookie" validate:"required"`
	Country     string      `json:"country" validate:"required"`
	Device      string      `json:"device" validate:"required"`
	Action      string      `json:"action" validate:"required"`
	Origin      string      `json:"origin" validate:"required"`
}

// TimeMillis returns the event time truncated to millisecond resolution
// UTC, matching the spec's timestamp domain (§3.2).
func (e Event) TimeMillis() int64 {
	return e.Time.UnixMilli()
}

// MinuteIndex returns floor(timestamp_ms / 60000), the bucket key used
// by the Minute Store (§3.2).
func MinuteIndex(timestampMs int64) int64 {
	const msPerMinute = 60_000
	idx := timestampMs / msPerMinute
	if timestampMs%msPerMinute != 0 && timestampMs < 0 {
		idx--
	}
	return idx
}

// EncodedEvent is an Event after every dimension string has been
// replaced by its dictionary id (§3.1). Time and price are unchanged.
type EncodedEvent struct {
	TimeMs     int64
	Cookie     string
	CountryID  uint8
	Device     Device
	Action     Action
	OriginID   uint16
	ProductID  uint32
	BrandID    uint16
	CategoryID uint16
	Price      int32
}

// ProfileEntry is one encoded event retained for the profile read path
// (§3.1). It carries the action alongside the event so the Profile
// Store knows which ring to pop it from on expiry, without having to
// inspect the encoded event itself.
type ProfileEntry struct {
	Event  EncodedEvent
	Action Action
}

// AggregateBucket is one minute's (count, sum_price) result (§3.1, §4.4).
type AggregateBucket struct {
	MinuteIndex int64
	Count       uint64
	SumPrice    uint64
}
