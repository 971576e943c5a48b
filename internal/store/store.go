// Package store defines the authoritative persistence boundary. The
// simulation treats the store as remote: it subscribes to change events
// and pushes debounced position updates, never reading live engine state.
package store

import "errors"

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("store: record not found")

// FishRecord is the persisted form of a simulated entity.
type FishRecord struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Species   string  `json:"species"`
	Color     string  `json:"color"`
	SpriteURL string  `json:"spriteUrl,omitempty"`
	Size      float64 `json:"size"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	TargetY   float64 `json:"targetY"`
	Direction int     `json:"direction"`
	Frame     int     `json:"frame"`
}

// ObjectRecord is the persisted form of a placed decorative object.
type ObjectRecord struct {
	ID        string `json:"id"`
	SpriteURL string `json:"spriteUrl"`
	GridX     int    `json:"gridX"`
	GridY     int    `json:"gridY"`
	Size      int    `json:"size"`
	Layer     int    `json:"layer"`
}

// PositionUpdate is one entity's kinematic state flushed by the debouncer.
type PositionUpdate struct {
	ID        string  `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	TargetY   float64 `json:"targetY"`
	Frame     int     `json:"frame"`
	Direction int     `json:"direction"`
}

// ChangeKind discriminates change events.
type ChangeKind int

const (
	ChangeInsert ChangeKind = iota
	ChangeUpdate
	ChangeDelete
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeInsert:
		return "insert"
	case ChangeUpdate:
		return "update"
	case ChangeDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ChangeEvent carries before/after snapshots of a fish record. Before is
// zero-valued for inserts, After for deletes.
type ChangeEvent struct {
	Kind   ChangeKind `json:"kind"`
	Before FishRecord `json:"before"`
	After  FishRecord `json:"after"`
}

// Store is the authoritative record set. Implementations must deliver a
// subscriber's events in mutation order.
type Store interface {
	ListFish() ([]FishRecord, error)
	GetFish(id string) (FishRecord, error)
	PutFish(rec FishRecord) error
	DeleteFish(id string) error

	// SavePositions applies kinematic updates without emitting change
	// events for them; positions are locally simulated everywhere and
	// echoing them back would fight the simulation.
	SavePositions(updates []PositionUpdate) error

	ListObjects() ([]ObjectRecord, error)
	PutObject(rec ObjectRecord) error
	DeleteObject(id string) error

	// Subscribe returns a change-event channel and a cancel function.
	// Events arrive in the order mutations were applied.
	Subscribe() (<-chan ChangeEvent, func())
}
