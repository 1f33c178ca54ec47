// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package aggregator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tagora/engine/internal/minute"
	"github.com/tagora/engine/internal/models"
)

func newFilledStore(t *testing.T) *minute.Store {
	t.Helper()
	return minute.New()
}

// TestAggregator_CountsAndSum mirrors spec scenario 2: three events in
// one minute, two VIEW matching the filter and one BUY that should not
// contribute.
func TestAggregator_CountsAndSum(t *testing.T) {
	store := newFilledStore(t)
	minuteIdx := int64(450000)
	store.Append(minuteIdx, models.EncodedEvent{Action: models.ActionView, BrandID: 1, OriginID: 1, CategoryID: 1, Price: 10})
	store.Append(minuteIdx, models.EncodedEvent{Action: models.ActionView, BrandID: 1, OriginID: 1, CategoryID: 1, Price: 20})
	store.Append(minuteIdx, models.EncodedEvent{Action: models.ActionBuy, BrandID: 1, OriginID: 1, CategoryID: 1, Price: 100})

	agg := New(store)
	q := Query{
		StartMinute: minuteIdx,
		EndMinute:   minuteIdx + 1,
		Action:      models.ActionView,
		Brand:       Filter{Present: true, ID: 1},
		Metrics:     []Metric{Count, SumPrice},
	}
	results, err := agg.Run(context.Background(), q)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(results))
	}
	if results[0].Count != 2 || results[0].SumPrice != 30 {
		t.Errorf("expected count=2 sum=30, got count=%d sum=%d", results[0].Count, results[0].SumPrice)
	}
}

// TestAggregator_UnknownFilterYieldsZero mirrors spec scenario 3.
func TestAggregator_UnknownFilterYieldsZero(t *testing.T) {
	store := newFilledStore(t)
	minuteIdx := int64(1)
	store.Append(minuteIdx, models.EncodedEvent{Action: models.ActionView, BrandID: 1, Price: 10})

	agg := New(store)
	q := Query{
		StartMinute: minuteIdx,
		EndMinute:   minuteIdx + 1,
		Action:      models.ActionView,
		// Brand "Z" was never interned: simulated directly here with
		// an id that was never appended to any row.
		Brand:   Filter{Present: true, ID: 999},
		Metrics: []Metric{Count, SumPrice},
	}
	results, err := agg.Run(context.Background(), q)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Count != 0 || results[0].SumPrice != 0 {
		t.Errorf("expected zero-valued bucket, got %+v", results[0])
	}
}

// TestFilter_UnresolvedMatchesNothingEvenAtMaxWidthID verifies that an
// UnresolvedFilter never matches, even against a row whose id happens
// to equal the dimension's maximum assignable 16-bit value — the
// collision a sentinel-ID approach (e.g. reusing 0xFFFF for "no such
// id") would be exposed to at full dictionary width.
func TestFilter_UnresolvedMatchesNothingEvenAtMaxWidthID(t *testing.T) {
	f := UnresolvedFilter()
	if f.Matches(0xFFFF) {
		t.Error("UnresolvedFilter must not match id 0xFFFF, a legitimately assignable 16-bit id")
	}
	if f.Matches(0) {
		t.Error("UnresolvedFilter must not match id 0 either")
	}
}

func TestFilter_AbsentMatchesEverything(t *testing.T) {
	if !NoFilter.Matches(0xFFFF) || !NoFilter.Matches(0) {
		t.Error("an absent filter must match every row")
	}
}

// TestAggregator_UnresolvedFilterAtMaxWidthID guards the full
// request-to-aggregator path: a row whose real id is 0xFFFF (the
// maximum assignable 16-bit id) must not match a query filter that
// resolved to "no such id".
func TestAggregator_UnresolvedFilterAtMaxWidthID(t *testing.T) {
	store := newFilledStore(t)
	minuteIdx := int64(1)
	store.Append(minuteIdx, models.EncodedEvent{Action: models.ActionView, BrandID: 0xFFFF, Price: 10})

	agg := New(store)
	q := Query{
		StartMinute: minuteIdx,
		EndMinute:   minuteIdx + 1,
		Action:      models.ActionView,
		Brand:       UnresolvedFilter(),
		Metrics:     []Metric{Count, SumPrice},
	}
	results, err := agg.Run(context.Background(), q)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Count != 0 || results[0].SumPrice != 0 {
		t.Errorf("expected zero-valued bucket despite a real row at id 0xFFFF, got %+v", results[0])
	}
}

// TestAggregator_CrossMinuteSplit mirrors spec scenario 4.
func TestAggregator_CrossMinuteSplit(t *testing.T) {
	store := newFilledStore(t)
	store.Append(10, models.EncodedEvent{Action: models.ActionView, Price: 1})
	store.Append(11, models.EncodedEvent{Action: models.ActionView, Price: 2})

	agg := New(store)
	results, err := agg.Run(context.Background(), Query{
		StartMinute: 10,
		EndMinute:   12,
		Action:      models.ActionView,
		Metrics:     []Metric{Count},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(results))
	}
	if results[0].Count != 1 || results[1].Count != 1 {
		t.Errorf("expected one event per row, got %+v", results)
	}
	if results[0].MinuteIndex != 10 || results[1].MinuteIndex != 11 {
		t.Errorf("expected ascending minute order, got %+v", results)
	}
}

func TestAggregator_EmptyMinuteIsZeroValued(t *testing.T) {
	store := newFilledStore(t)
	agg := New(store)

	results, err := agg.Run(context.Background(), Query{
		StartMinute: 0,
		EndMinute:   1,
		Action:      models.ActionView,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Count != 0 || results[0].SumPrice != 0 {
		t.Errorf("expected zero-valued bucket for a never-written minute, got %+v", results[0])
	}
}

// TestAggregator_FilterMonotonicity checks that adding a filter never
// increases count or sum for any bucket (§8).
func TestAggregator_FilterMonotonicity(t *testing.T) {
	store := newFilledStore(t)
	minuteIdx := int64(5)
	store.Append(minuteIdx, models.EncodedEvent{Action: models.ActionView, BrandID: 1, OriginID: 1, Price: 10})
	store.Append(minuteIdx, models.EncodedEvent{Action: models.ActionView, BrandID: 2, OriginID: 1, Price: 20})

	agg := New(store)

	unfiltered, _ := agg.Run(context.Background(), Query{
		StartMinute: minuteIdx, EndMinute: minuteIdx + 1, Action: models.ActionView,
	})
	filtered, _ := agg.Run(context.Background(), Query{
		StartMinute: minuteIdx, EndMinute: minuteIdx + 1, Action: models.ActionView,
		Brand: Filter{Present: true, ID: 1},
	})

	if filtered[0].Count > unfiltered[0].Count || filtered[0].SumPrice > unfiltered[0].SumPrice {
		t.Errorf("adding a filter increased count/sum: unfiltered=%+v filtered=%+v", unfiltered[0], filtered[0])
	}
}

func TestAggregator_DeadlineExceeded(t *testing.T) {
	store := newFilledStore(t)
	agg := New(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	time.Sleep(time.Millisecond)

	_, err := agg.Run(ctx, Query{StartMinute: 0, EndMinute: 1000, Action: models.ActionView})
	if err == nil {
		t.Fatal("expected a deadline-exceeded error for an already-cancelled context")
	}
}

// TestAggregator_ConcurrentAppendsAndQueries mirrors spec scenario 6 at
// reduced scale: concurrent producers append disjoint events while
// concurrent queries run, and every query must observe consistent
// (equal-length) columns without ever seeing a partial row.
func TestAggregator_ConcurrentAppendsAndQueries(t *testing.T) {
	store := minute.New()
	agg := New(store)

	const producers = 16
	const perProducer = 500
	const queriers = 50

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		p := p
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				store.Append(int64(p%5), models.EncodedEvent{Action: models.ActionView, Price: 1})
			}
		}()
	}

	var qwg sync.WaitGroup
	qwg.Add(queriers)
	for q := 0; q < queriers; q++ {
		go func() {
			defer qwg.Done()
			_, err := agg.Run(context.Background(), Query{
				StartMinute: 0, EndMinute: 5, Action: models.ActionView, Metrics: []Metric{Count},
			})
			if err != nil {
				t.Errorf("Run: %v", err)
			}
		}()
	}

	wg.Wait()
	qwg.Wait()

	final, err := agg.Run(context.Background(), Query{StartMinute: 0, EndMinute: 5, Action: models.ActionView})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var total uint64
	for _, b := range final {
		total += b.Count
	}
	if want := uint64(producers * perProducer); total != want {
		t.Errorf("expected total count %d, got %d", want, total)
	}
}
