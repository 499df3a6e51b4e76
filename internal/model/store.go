package model

import (
	"slices"
	"time"
)

// Store is an append-only collection of events addressed by EventID. It is
// filled once after source parsing and read concurrently-safe afterwards,
// since nothing mutates an event once added.
type Store struct {
	events []Event
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Add validates f, appends the resulting event and returns its handle.
// IDs are assigned in insertion order, which doubles as the source order
// used to break start-time ties.
func (s *Store) Add(f Fields) (EventID, error) {
	ev, err := NewEvent(f)
	if err != nil {
		return 0, err
	}
	ev.id = EventID(len(s.events))
	s.events = append(s.events, ev)
	return ev.id, nil
}

// Get returns the event for id. It panics on an unknown id, like a slice
// index would: handles only ever come from this Store.
func (s *Store) Get(id EventID) *Event {
	return &s.events[id]
}

// Len returns the number of events.
func (s *Store) Len() int {
	return len(s.events)
}

// Chronological returns every handle ordered by start instant, ties broken by
// insertion order.
func (s *Store) Chronological() []EventID {
	ids := make([]EventID, len(s.events))
	for i := range s.events {
		ids[i] = EventID(i)
	}
	SortByStart(s, ids)
	return ids
}

// SortByStart stably sorts ids by event start.
func SortByStart(s *Store, ids []EventID) {
	slices.SortStableFunc(ids, func(a, b EventID) int {
		return s.Get(a).Start().Compare(s.Get(b).Start())
	})
}

// Span returns the earliest start and the latest start across all events.
// ok is false for an empty store.
func (s *Store) Span() (first, last time.Time, ok bool) {
	for i := range s.events {
		st := s.events[i].start
		if !ok || st.Before(first) {
			first = st
		}
		if !ok || st.After(last) {
			last = st
		}
		ok = true
	}
	return first, last, ok
}
