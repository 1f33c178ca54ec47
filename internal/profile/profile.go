// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package profile implements the Profile Store (§4.2): a keyed
// collection of per-cookie bounded FIFOs of recent events, split by
// action, serving the profile read path.
package profile

import (
	"crypto/rand"
	"encoding/binary"
	"sort"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/tagora/engine/internal/models"
)

// MaxTags is the maximum number of entries retained per (cookie,
// action) ring (§3.2).
const MaxTags = 200

// defaultShardCount bounds the contention of the sharded cookie map.
// Each shard holds an independent lock, so cross-cookie appends that
// land in different shards never block one another (§4.2, §5).
const defaultShardCount = 64

// TimeRange is a half-open millisecond range [Start, End).
type TimeRange struct {
	Start int64
	End   int64
}

// Contains reports whether t falls in the half-open range.
func (r TimeRange) Contains(t int64) bool {
	return t >= r.Start && t < r.End
}

// entry pairs a ProfileEntry with the monotonic insertion sequence
// used to break same-timestamp ties: "later insert first" (§4.2).
type entry struct {
	value models.ProfileEntry
	seq   uint64
}

// ring is a fixed-capacity FIFO. Appends beyond capacity overwrite the
// oldest slot (§3.2, §4.2).
type ring struct {
	buf   [MaxTags]entry
	start int
	len   int
}

func (r *ring) push(e entry) {
	if r.len < MaxTags {
		r.buf[(r.start+r.len)%MaxTags] = e
		r.len++
		return
	}
	r.buf[r.start] = e
	r.start = (r.start + 1) % MaxTags
}

// snapshot copies out the ring's current contents in insertion order
// (oldest first). Copying avoids holding the shard lock while a reader
// filters and sorts.
func (r *ring) snapshot() []entry {
	out := make([]entry, r.len)
	for i := 0; i < r.len; i++ {
		out[i] = r.buf[(r.start+i)%MaxTags]
	}
	return out
}

// cookieRings holds the two action-split rings for one cookie.
type cookieRings struct {
	views ring
	buys  ring
}

// shard is one slice of the sharded cookie map, with its own lock so
// that cross-cookie appends in different shards never contend.
type shard struct {
	mu      sync.RWMutex
	cookies map[string]*cookieRings
	seq     uint64
}

// Store is the Profile Store (§4.2).
type Store struct {
	shards  []*shard
	hashKey [16]byte
}

// New constructs a Store with the default shard count.
func New() *Store {
	return NewWithShards(defaultShardCount)
}

// NewWithShards constructs a Store with an explicit shard count,
// primarily for tests that want to exercise shard boundaries directly.
func NewWithShards(shardCount int) *Store {
	if shardCount <= 0 {
		shardCount = defaultShardCount
	}
	s := &Store{shards: make([]*shard, shardCount)}
	for i := range s.shards {
		s.shards[i] = &shard{cookies: make(map[string]*cookieRings)}
	}
	// A random per-process key keeps shard assignment unpredictable
	// across restarts without requiring a seeded RNG anywhere else in
	// the core; blake2b's keyed mode gives us this for free.
	_, _ = rand.Read(s.hashKey[:])
	return s
}

// shardFor selects the shard a cookie is routed to. blake2b is used as
// a fast, well-distributed non-cryptographic-purpose hash here, keyed
// so that adversarial cookie values cannot concentrate load onto one
// shard.
func (s *Store) shardFor(cookie string) *shard {
	h, _ := blake2b.New256(s.hashKey[:])
	_, _ = h.Write([]byte(cookie))
	sum := h.Sum(nil)
	idx := binary.LittleEndian.Uint64(sum[:8]) % uint64(len(s.shards))
	return s.shards[idx]
}

// Append adds encoded to the ring for (cookie, action), evicting the
// oldest entry if the ring was already at MaxTags (§4.2).
func (s *Store) Append(cookie string, action models.Action, encoded models.EncodedEvent) {
	sh := s.shardFor(cookie)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	cr, ok := sh.cookies[cookie]
	if !ok {
		cr = &cookieRings{}
		sh.cookies[cookie] = cr
	}

	sh.seq++
	e := entry{value: models.ProfileEntry{Event: encoded, Action: action}, seq: sh.seq}

	switch action {
	case models.ActionView:
		cr.views.push(e)
	case models.ActionBuy:
		cr.buys.push(e)
	}
}

// Get returns the views and buys for cookie within the half-open
// timeRange, each truncated to at most limit entries and ordered
// newest-first, ties broken by later-insert-first. An unknown cookie
// returns two empty, non-nil slices rather than an error (§4.2, §7).
//
// limit <= 0 yields empty lists; limit is always capped at MaxTags.
func (s *Store) Get(cookie string, timeRange TimeRange, limit int) (views, buys []models.ProfileEntry) {
	if limit > MaxTags {
		limit = MaxTags
	}
	if limit <= 0 {
		return []models.ProfileEntry{}, []models.ProfileEntry{}
	}

	sh := s.shardFor(cookie)

	sh.mu.RLock()
	cr, ok := sh.cookies[cookie]
	var viewEntries, buyEntries []entry
	if ok {
		viewEntries = cr.views.snapshot()
		buyEntries = cr.buys.snapshot()
	}
	sh.mu.RUnlock()

	return filterSortLimit(viewEntries, timeRange, limit), filterSortLimit(buyEntries, timeRange, limit)
}

func filterSortLimit(entries []entry, timeRange TimeRange, limit int) []models.ProfileEntry {
	matched := make([]entry, 0, len(entries))
	for _, e := range entries {
		if timeRange.Contains(e.value.Event.TimeMs) {
			matched = append(matched, e)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].value.Event.TimeMs != matched[j].value.Event.TimeMs {
			return matched[i].value.Event.TimeMs > matched[j].value.Event.TimeMs
		}
		return matched[i].seq > matched[j].seq
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]models.ProfileEntry, len(matched))
	for i, e := range matched {
		out[i] = e.value
	}
	return out
}
