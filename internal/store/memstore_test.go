package store

import (
	"errors"
	"testing"
	"time"
)

func TestFishCRUD(t *testing.T) {
	s := NewMemStore()

	rec := FishRecord{ID: "f1", Name: "Nemo", Species: "fish", Color: "#ff8c42", Size: 1.0}
	if err := s.PutFish(rec); err != nil {
		t.Fatalf("PutFish: %v", err)
	}

	got, err := s.GetFish("f1")
	if err != nil {
		t.Fatalf("GetFish: %v", err)
	}
	if got != rec {
		t.Errorf("GetFish = %+v, want %+v", got, rec)
	}

	all, _ := s.ListFish()
	if len(all) != 1 {
		t.Errorf("ListFish returned %d records, want 1", len(all))
	}

	if err := s.DeleteFish("f1"); err != nil {
		t.Fatalf("DeleteFish: %v", err)
	}
	if _, err := s.GetFish("f1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetFish after delete: %v, want ErrNotFound", err)
	}
	if err := s.DeleteFish("f1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteFish: %v, want ErrNotFound", err)
	}
}

func TestSubscribeOrdering(t *testing.T) {
	s := NewMemStore()
	ch, cancel := s.Subscribe()
	defer cancel()

	s.PutFish(FishRecord{ID: "f1", Name: "a"})
	s.PutFish(FishRecord{ID: "f1", Name: "b"})
	s.DeleteFish("f1")

	ev := <-ch
	if ev.Kind != ChangeInsert || ev.After.Name != "a" {
		t.Fatalf("event 1 = %+v, want insert a", ev)
	}
	ev = <-ch
	if ev.Kind != ChangeUpdate || ev.Before.Name != "a" || ev.After.Name != "b" {
		t.Fatalf("event 2 = %+v, want update a->b", ev)
	}
	ev = <-ch
	if ev.Kind != ChangeDelete || ev.Before.Name != "b" {
		t.Fatalf("event 3 = %+v, want delete b", ev)
	}
}

func TestCancelIsIdempotentAndClosesChannel(t *testing.T) {
	s := NewMemStore()
	ch, cancel := s.Subscribe()

	cancel()
	cancel()

	if _, open := <-ch; open {
		t.Error("channel still open after cancel")
	}

	// Mutations after cancel must not panic on the closed channel.
	s.PutFish(FishRecord{ID: "f1"})
}

func TestSavePositionsEmitsNoEvents(t *testing.T) {
	s := NewMemStore()
	s.PutFish(FishRecord{ID: "f1", X: 10, Y: 10})

	ch, cancel := s.Subscribe()
	defer cancel()

	err := s.SavePositions([]PositionUpdate{
		{ID: "f1", X: 50, Y: 60, TargetY: 70, Frame: 2, Direction: -1},
		{ID: "ghost", X: 1, Y: 1},
	})
	if err != nil {
		t.Fatalf("SavePositions: %v", err)
	}

	select {
	case ev := <-ch:
		t.Fatalf("position save leaked event %+v", ev)
	default:
	}

	rec, _ := s.GetFish("f1")
	if rec.X != 50 || rec.Y != 60 || rec.TargetY != 70 || rec.Frame != 2 || rec.Direction != -1 {
		t.Errorf("positions not applied: %+v", rec)
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	s := NewMemStore()
	_, cancel := s.Subscribe() // never drained
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			s.PutFish(FishRecord{ID: "f1", Frame: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("mutations blocked on a full subscriber")
	}
}

func TestObjectCRUD(t *testing.T) {
	s := NewMemStore()

	if err := s.PutObject(ObjectRecord{ID: "o1", SpriteURL: "rock.png", GridX: 2, GridY: 3, Size: 2, Layer: 1}); err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	objs, _ := s.ListObjects()
	if len(objs) != 1 || objs[0].ID != "o1" {
		t.Fatalf("ListObjects = %+v", objs)
	}
	if err := s.DeleteObject("o1"); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
	if err := s.DeleteObject("o1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteObject: %v, want ErrNotFound", err)
	}
}
