// Package timeidx buckets events by day, ISO week and month.
package timeidx

import (
	"iter"
	"time"

	"github.com/google/btree"

	"calsite/internal/model"
)

const btreeDegree = 16

// Bucket holds the events of one time unit, ordered by start time.
type Bucket[K Key[K]] struct {
	Key    K
	Events []model.EventID
}

// BucketMap is an ordered map from key to bucket. Iteration is always in
// ascending key order; the tree keeps that order, nothing sorts the keys.
type BucketMap[K Key[K]] struct {
	tree *btree.BTreeG[*Bucket[K]]
}

func newBucketMap[K Key[K]]() *BucketMap[K] {
	return &BucketMap[K]{
		tree: btree.NewG(btreeDegree, func(a, b *Bucket[K]) bool {
			return a.Key.Compare(b.Key) < 0
		}),
	}
}

func (m *BucketMap[K]) add(k K, id model.EventID) {
	probe := &Bucket[K]{Key: k}
	if b, ok := m.tree.Get(probe); ok {
		b.Events = append(b.Events, id)
		return
	}
	probe.Events = []model.EventID{id}
	m.tree.ReplaceOrInsert(probe)
}

// Get returns the events of bucket k.
func (m *BucketMap[K]) Get(k K) ([]model.EventID, bool) {
	b, ok := m.tree.Get(&Bucket[K]{Key: k})
	if !ok {
		return nil, false
	}
	return b.Events, true
}

// Has reports whether bucket k exists.
func (m *BucketMap[K]) Has(k K) bool {
	return m.tree.Has(&Bucket[K]{Key: k})
}

// Len returns the number of buckets.
func (m *BucketMap[K]) Len() int {
	return m.tree.Len()
}

// All yields buckets in ascending key order.
func (m *BucketMap[K]) All() iter.Seq[*Bucket[K]] {
	return func(yield func(*Bucket[K]) bool) {
		m.tree.Ascend(func(b *Bucket[K]) bool {
			return yield(b)
		})
	}
}

// Keys returns the keys in ascending order.
func (m *BucketMap[K]) Keys() []K {
	keys := make([]K, 0, m.tree.Len())
	for b := range m.All() {
		keys = append(keys, b.Key)
	}
	return keys
}

// Index is the set of bucket maps for one store and display timezone.
type Index struct {
	Location *time.Location
	Days     *BucketMap[DayKey]
	Weeks    *BucketMap[WeekKey]
	Months   *BucketMap[MonthKey]
}

// Build buckets every event of s by its start date in loc. Events are
// visited chronologically, so each bucket ends up ordered by start time
// with ties in source order.
func Build(s *model.Store, loc *time.Location) *Index {
	idx := &Index{
		Location: loc,
		Days:     newBucketMap[DayKey](),
		Weeks:    newBucketMap[WeekKey](),
		Months:   newBucketMap[MonthKey](),
	}
	for _, id := range s.Chronological() {
		ev := s.Get(id)
		day := DayOf(ev.Start(), loc)
		y, w := ev.ISOWeek(loc)
		idx.Days.add(day, id)
		idx.Weeks.add(WeekKey{Year: y, Week: w}, id)
		idx.Months.add(MonthKey{Year: ev.Year(loc), Month: day.Month}, id)
	}
	return idx
}
