package placement

import (
	"aquarium/internal/world"
)

// PlacedObject is a decorative object occupying a square tile footprint.
// GridX/GridY is the top-left tile; Size is tiles per side. Tint and Alpha
// are render hints driven by the selection blink.
type PlacedObject struct {
	ID        string  `json:"id"`
	SpriteURL string  `json:"spriteUrl"`
	GridX     int     `json:"gridX"`
	GridY     int     `json:"gridY"`
	Size      int     `json:"size"`
	Layer     int     `json:"layer"`
	Tint      string  `json:"tint,omitempty"`
	Alpha     float64 `json:"alpha"`
}

// ObjectSnapshot is a value copy handed to render and selection callbacks.
// Snapshots never alias index-owned state.
type ObjectSnapshot struct {
	ID        string  `json:"id"`
	SpriteURL string  `json:"spriteUrl"`
	GridX     int     `json:"gridX"`
	GridY     int     `json:"gridY"`
	Size      int     `json:"size"`
	Layer     int     `json:"layer"`
	WorldX    float64 `json:"worldX"`
	WorldY    float64 `json:"worldY"`
	Tint      string  `json:"tint,omitempty"`
	Alpha     float64 `json:"alpha"`
	Selected  bool    `json:"selected"`
}

func (o *PlacedObject) snapshot(w *world.World, selected bool) ObjectSnapshot {
	wx, wy := w.GridToWorld(o.GridX, o.GridY, o.Size)
	return ObjectSnapshot{
		ID:        o.ID,
		SpriteURL: o.SpriteURL,
		GridX:     o.GridX,
		GridY:     o.GridY,
		Size:      o.Size,
		Layer:     o.Layer,
		WorldX:    wx,
		WorldY:    wy,
		Tint:      o.Tint,
		Alpha:     o.Alpha,
		Selected:  selected,
	}
}

func (o *PlacedObject) footprint() (x0, y0, x1, y1 int) {
	return o.GridX, o.GridY, o.GridX + o.Size, o.GridY + o.Size
}
