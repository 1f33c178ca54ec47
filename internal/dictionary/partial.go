// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package dictionary

// Partial represents a dimension value that is either a raw string
// still awaiting resolution, or an already-resolved id. It is the
// "Either<Raw, Resolved>" shape called for in the design notes: it
// lets a single generic resolution path serve both a fresh query
// filter (raw string) and a value a caller already resolved upstream
// (e.g. a remote dictionary tier), without a duplicated code path per
// dimension.
type Partial struct {
	raw      string
	id       uint32
	resolved bool
}

// Raw wraps an unresolved string value.
func Raw(s string) Partial { return Partial{raw: s} }

// Resolved wraps an already-resolved id.
func Resolved(id uint32) Partial { return Partial{id: id, resolved: true} }

// IsResolved reports whether the value already carries an id.
func (p Partial) IsResolved() bool { return p.resolved }

// ID returns the resolved id. It panics if IsResolved is false; callers
// must check IsResolved (or use PartialResolve/Resolve) first.
func (p Partial) ID() uint32 {
	if !p.resolved {
		panic("dictionary: ID() called on an unresolved Partial")
	}
	return p.id
}

// RawValue returns the raw string and true if this Partial has not been
// resolved yet.
func (p Partial) RawValue() (string, bool) {
	if p.resolved {
		return "", false
	}
	return p.raw, true
}

// PartialResolve attempts to fill in an id for p using d's local
// tables only. Already-resolved values pass through unchanged. A miss
// against the local dictionary leaves p unresolved (raw) so a caller
// can fall back to an upstream/remote dictionary tier without losing
// the original string.
func (d *Dictionary) PartialResolve(dim Dimension, p Partial) Partial {
	if p.resolved {
		return p
	}
	if id, ok := d.TryID(dim, p.raw); ok {
		return Resolved(id)
	}
	return p
}

// Resolve fully resolves p, interning the raw string if it was not
// already known. Unlike PartialResolve this never leaves p
// unresolved — it is the terminal step of the cache/remote fallback
// chain described in the design notes.
func (d *Dictionary) Resolve(dim Dimension, p Partial) (Partial, error) {
	if p.resolved {
		return p, nil
	}
	id, err := d.Intern(dim, p.raw)
	if err != nil {
		return p, err
	}
	return Resolved(id), nil
}
