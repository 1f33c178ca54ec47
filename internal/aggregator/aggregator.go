// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package aggregator implements the Aggregator (§4.4): the fixed-shape
// query planner and executor that turns a resolved time/action/filter
// query into one AggregateBucket per minute, scanning the Minute Store
// in parallel across a bounded worker pool.
package aggregator

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/tagora/engine/internal/apperr"
	"github.com/tagora/engine/internal/minute"
	"github.com/tagora/engine/internal/models"
)

// Metric identifies a requested aggregate column (§6.3).
type Metric int

const (
	Count Metric = iota
	SumPrice
)

// Filter is an optional equality predicate against one encoded
// dimension column. Present reports whether the filter was supplied at
// all — an absent filter matches every row. NoMatch is set when the
// filter string was never interned ("no-such-id", §4.4): it is a
// distinct out-of-band flag rather than a sentinel ID value, since
// every uint16 value (including the dimension's max width, 0xFFFF) is
// a legitimately assignable id and so none of them are safe to
// overload as "unresolved" without risking an alias.
type Filter struct {
	Present bool
	NoMatch bool
	ID      uint16
}

// NoFilter is the zero-value Filter: always matches.
var NoFilter = Filter{}

// UnresolvedFilter returns a present Filter that matches no row,
// for a filter string the dictionary has never seen.
func UnresolvedFilter() Filter {
	return Filter{Present: true, NoMatch: true}
}

// Matches reports whether id satisfies f: true if f is absent,
// false if f is present but unresolved, otherwise an equality check.
func (f Filter) Matches(id uint16) bool {
	if !f.Present {
		return true
	}
	if f.NoMatch {
		return false
	}
	return f.ID == id
}

// Query is the canonical, dictionary-resolved aggregate query shape
// described in §4.4.
type Query struct {
	StartMinute int64
	EndMinute   int64
	Action      models.Action
	Origin      Filter
	Brand       Filter
	Category    Filter
	Metrics     []Metric
}

// defaultWorkers bounds the fan-out across minutes in a single query.
const defaultWorkers = 16

// Source is the subset of the Minute Store the Aggregator depends on,
// kept as an interface so tests can supply a fake without standing up
// a full Store.
type Source interface {
	Scan(start, end int64) map[int64]minute.Snapshot
}

// Aggregator evaluates queries against a Source.
type Aggregator struct {
	store   Source
	workers int
}

// New constructs an Aggregator bounded by the default worker count.
func New(store Source) *Aggregator {
	return NewWithWorkers(store, defaultWorkers)
}

// NewWithWorkers constructs an Aggregator with an explicit worker
// pool bound, primarily for tests.
func NewWithWorkers(store Source, workers int) *Aggregator {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Aggregator{store: store, workers: workers}
}

// Run evaluates q, returning one AggregateBucket per minute in
// [q.StartMinute, q.EndMinute), in ascending minute order. It checks
// ctx between minute scans and returns a DeadlineExceeded *apperr.Error
// as soon as the deadline trips (§5, §7).
func (a *Aggregator) Run(ctx context.Context, q Query) ([]models.AggregateBucket, error) {
	if q.EndMinute < q.StartMinute {
		q.EndMinute = q.StartMinute
	}
	n := int(q.EndMinute - q.StartMinute)
	results := make([]models.AggregateBucket, n)

	snaps := a.store.Scan(q.StartMinute, q.EndMinute)

	sem := make(chan struct{}, a.workers)
	var wg sync.WaitGroup
	var tripped atomic.Bool

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			tripped.Store(true)
		default:
		}
		if tripped.Load() {
			break
		}

		minuteIdx := q.StartMinute + int64(i)
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, minuteIdx int64) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = evalMinute(minuteIdx, snaps[minuteIdx], q)
		}(i, minuteIdx)
	}
	wg.Wait()

	if tripped.Load() || ctx.Err() != nil {
		return nil, apperr.DeadlineExceeded("aggregation deadline exceeded")
	}
	return results, nil
}

// evalMinute produces the AggregateBucket for one minute. An absent
// snapshot (no bucket was ever created for this minute) is treated as
// zero rows, matching the "absent minute is zero-valued" rule (§4.3).
func evalMinute(minuteIdx int64, snap minute.Snapshot, q Query) models.AggregateBucket {
	bucket := models.AggregateBucket{MinuteIndex: minuteIdx}

	for i := 0; i < snap.Len; i++ {
		if snap.Action[i] != q.Action {
			continue
		}
		if !q.Origin.Matches(snap.Origin[i]) {
			continue
		}
		if !q.Brand.Matches(snap.Brand[i]) {
			continue
		}
		if !q.Category.Matches(snap.Category[i]) {
			continue
		}

		bucket.Count++
		price := snap.Price[i]
		if price < 0 {
			// Negative price is a data-integrity violation, not a
			// crash: the row still counts, its price adds zero to
			// the sum, and no warning is logged (§4.4 step 4).
			continue
		}
		bucket.SumPrice += uint64(price)
	}
	return bucket
}
