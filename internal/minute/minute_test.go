// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package minute

import (
	"sync"
	"testing"

	"github.com/tagora/engine/internal/models"
)

func encodedEvent(originID, brandID, categoryID uint16, price int32, action models.Action) models.EncodedEvent {
	return models.EncodedEvent{
		OriginID:   originID,
		BrandID:    brandID,
		CategoryID: categoryID,
		Price:      price,
		Action:     action,
	}
}

// TestStore_CrossMinuteSplit mirrors spec scenario 4: events that fall
// into adjacent minute buckets must be scanned independently, each
// bucket holding exactly its own events.
func TestStore_CrossMinuteSplit(t *testing.T) {
	s := New()

	s.Append(10, encodedEvent(1, 1, 1, 100, models.ActionView))
	s.Append(10, encodedEvent(1, 1, 1, 200, models.ActionBuy))
	s.Append(11, encodedEvent(2, 2, 2, 300, models.ActionView))

	snaps := s.Scan(10, 12)
	if len(snaps) != 2 {
		t.Fatalf("expected 2 populated buckets, got %d", len(snaps))
	}
	if snaps[10].Len != 2 {
		t.Errorf("minute 10: expected 2 entries, got %d", snaps[10].Len)
	}
	if snaps[11].Len != 1 {
		t.Errorf("minute 11: expected 1 entry, got %d", snaps[11].Len)
	}
	if snaps[11].Origin[0] != 2 {
		t.Errorf("minute 11: expected origin id 2, got %d", snaps[11].Origin[0])
	}
}

func TestStore_ScanOmitsEmptyMinutes(t *testing.T) {
	s := New()
	s.Append(5, encodedEvent(1, 1, 1, 1, models.ActionView))

	snaps := s.Scan(0, 10)
	if len(snaps) != 1 {
		t.Fatalf("expected exactly 1 populated minute, got %d", len(snaps))
	}
	if _, ok := snaps[5]; !ok {
		t.Fatal("expected minute 5 to be present")
	}
}

func TestStore_ColumnsStayEqualLength(t *testing.T) {
	s := New()
	for i := 0; i < 1000; i++ {
		s.Append(0, encodedEvent(uint16(i), uint16(i), uint16(i), int32(i), models.ActionView))
	}

	snap := s.Scan(0, 1)[0]
	n := snap.Len
	if len(snap.Origin) != n || len(snap.Brand) != n || len(snap.Category) != n ||
		len(snap.Price) != n || len(snap.Action) != n {
		t.Fatalf("column length mismatch: len=%d origin=%d brand=%d category=%d price=%d action=%d",
			n, len(snap.Origin), len(snap.Brand), len(snap.Category), len(snap.Price), len(snap.Action))
	}
	for i := 0; i < n; i++ {
		if int(snap.Origin[i]) != i || int(snap.Brand[i]) != i || int(snap.Category[i]) != i || int(snap.Price[i]) != i {
			t.Fatalf("columns out of alignment at position %d", i)
		}
	}
}

// TestStore_SnapshotIsFrozen verifies that a Snapshot taken before
// further appends never observes them, satisfying the read-consistency
// requirement in §4.3.
func TestStore_SnapshotIsFrozen(t *testing.T) {
	s := New()
	s.Append(0, encodedEvent(1, 1, 1, 1, models.ActionView))

	snap := s.Scan(0, 1)[0]
	if snap.Len != 1 {
		t.Fatalf("expected snapshot length 1, got %d", snap.Len)
	}

	s.Append(0, encodedEvent(2, 2, 2, 2, models.ActionBuy))

	if snap.Len != 1 {
		t.Fatalf("expected snapshot to remain frozen at length 1, got %d", snap.Len)
	}
}

// TestStore_ConcurrentAppendsAcrossMinutesAreIndependent stresses many
// producers writing to many distinct minute buckets concurrently, then
// verifies no event was lost or duplicated and every bucket's columns
// stayed aligned.
func TestStore_ConcurrentAppendsAcrossMinutesAreIndependent(t *testing.T) {
	s := New()
	const minutes = 50
	const perMinute = 200

	var wg sync.WaitGroup
	wg.Add(minutes)
	for m := 0; m < minutes; m++ {
		m := m
		go func() {
			defer wg.Done()
			for i := 0; i < perMinute; i++ {
				s.Append(int64(m), encodedEvent(1, 1, 1, int32(i), models.ActionView))
			}
		}()
	}
	wg.Wait()

	snaps := s.Scan(0, minutes)
	if len(snaps) != minutes {
		t.Fatalf("expected %d populated minutes, got %d", minutes, len(snaps))
	}
	for m, snap := range snaps {
		if snap.Len != perMinute {
			t.Errorf("minute %d: expected %d entries, got %d", m, perMinute, snap.Len)
		}
		if len(snap.Origin) != snap.Len || len(snap.Action) != snap.Len {
			t.Errorf("minute %d: columns out of alignment", m)
		}
	}
}

func TestStore_ConcurrentAppendAndScanOnSameMinute(t *testing.T) {
	s := New()
	const appends = 2000

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < appends; i++ {
			s.Append(0, encodedEvent(1, 1, 1, int32(i), models.ActionView))
		}
	}()

	for i := 0; i < 100; i++ {
		snaps := s.Scan(0, 1)
		if snap, ok := snaps[0]; ok {
			if len(snap.Origin) != snap.Len || len(snap.Price) != snap.Len {
				t.Fatalf("observed torn snapshot: len=%d origin=%d price=%d", snap.Len, len(snap.Origin), len(snap.Price))
			}
		}
	}
	<-done
}
