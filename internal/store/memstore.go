package store

import (
	"log"
	"sync"
)

// subscriberBuffer bounds each subscriber channel. A subscriber that
// stops draining loses events rather than blocking mutations; the
// reconciler recovers via its full-rebuild fallback.
const subscriberBuffer = 64

// MemStore is the in-process Store implementation. It stands in for the
// remote persistence service and is also what tests run against.
type MemStore struct {
	mu      sync.RWMutex
	fish    map[string]FishRecord
	objects map[string]ObjectRecord

	subMu   sync.Mutex
	subs    map[int]chan ChangeEvent
	nextSub int
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		fish:    make(map[string]FishRecord),
		objects: make(map[string]ObjectRecord),
		subs:    make(map[int]chan ChangeEvent),
	}
}

// ListFish returns all fish records.
func (s *MemStore) ListFish() ([]FishRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]FishRecord, 0, len(s.fish))
	for _, rec := range s.fish {
		out = append(out, rec)
	}
	return out, nil
}

// GetFish returns one fish record.
func (s *MemStore) GetFish(id string) (FishRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.fish[id]
	if !ok {
		return FishRecord{}, ErrNotFound
	}
	return rec, nil
}

// PutFish inserts or updates a fish record and notifies subscribers.
func (s *MemStore) PutFish(rec FishRecord) error {
	s.mu.Lock()
	before, existed := s.fish[rec.ID]
	s.fish[rec.ID] = rec
	s.mu.Unlock()

	ev := ChangeEvent{Kind: ChangeInsert, After: rec}
	if existed {
		ev = ChangeEvent{Kind: ChangeUpdate, Before: before, After: rec}
	}
	s.publish(ev)
	return nil
}

// DeleteFish removes a fish record and notifies subscribers.
func (s *MemStore) DeleteFish(id string) error {
	s.mu.Lock()
	before, ok := s.fish[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.fish, id)
	s.mu.Unlock()

	s.publish(ChangeEvent{Kind: ChangeDelete, Before: before})
	return nil
}

// SavePositions applies kinematic updates in place. No change events:
// every view simulates motion locally.
func (s *MemStore) SavePositions(updates []PositionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range updates {
		rec, ok := s.fish[u.ID]
		if !ok {
			continue // deleted between flush collection and apply
		}
		rec.X = u.X
		rec.Y = u.Y
		rec.TargetY = u.TargetY
		rec.Frame = u.Frame
		rec.Direction = u.Direction
		s.fish[u.ID] = rec
	}
	return nil
}

// ListObjects returns all object records.
func (s *MemStore) ListObjects() ([]ObjectRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ObjectRecord, 0, len(s.objects))
	for _, rec := range s.objects {
		out = append(out, rec)
	}
	return out, nil
}

// PutObject inserts or updates an object record.
func (s *MemStore) PutObject(rec ObjectRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[rec.ID] = rec
	return nil
}

// DeleteObject removes an object record.
func (s *MemStore) DeleteObject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[id]; !ok {
		return ErrNotFound
	}
	delete(s.objects, id)
	return nil
}

// Subscribe registers a change-event channel. The cancel function is
// idempotent and closes the channel.
func (s *MemStore) Subscribe() (<-chan ChangeEvent, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan ChangeEvent, subscriberBuffer)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (s *MemStore) publish(ev ChangeEvent) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for id, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("store: subscriber %d full, dropping %s for %q", id, ev.Kind, eventID(ev))
		}
	}
}

func eventID(ev ChangeEvent) string {
	if ev.Kind == ChangeDelete {
		return ev.Before.ID
	}
	return ev.After.ID
}
