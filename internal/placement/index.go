// Package placement maintains the tile-grid occupancy index for decorative
// objects: collision-aware point placement with spiral search, exact grid
// placement with stacking, stable layer ordering, and selection highlight.
package placement

import (
	"fmt"
	"log"
	"sync"
	"time"

	"aquarium/internal/world"
)

// Selection blink visuals. Originals are captured before the first toggle
// and restored exactly when the selection clears.
const (
	blinkInterval  = 300 * time.Millisecond
	highlightTint  = "#ffe680"
	highlightAlpha = 0.65
)

const defaultAlpha = 1.0

// SelectionCallback receives a snapshot of the object whose selection
// state changed; a zero-ID snapshot means the selection was cleared.
type SelectionCallback func(ObjectSnapshot)

// Index is the spatial placement index. All mutation goes through its
// methods; the occupancy table always mirrors the registered object set.
type Index struct {
	mu sync.RWMutex

	world      *world.World
	maxObjects int

	// allowOverlap switches point placement from spiral search to simple
	// bounds clamping. Grid placement stacks regardless of this flag.
	allowOverlap bool

	occupancy [][]string // [row][col] object id, "" when empty
	objects   map[string]*PlacedObject
	drawOrder []*PlacedObject // ascending layer, stable within a layer

	nextID uint64

	selected  string
	origTint  string
	origAlpha float64
	blinkOn   bool
	blinkStop chan struct{}
	onSelect  SelectionCallback
}

// NewIndex creates an empty index over the given world.
func NewIndex(w *world.World, maxObjects int) *Index {
	idx := &Index{
		world:      w,
		maxObjects: maxObjects,
		objects:    make(map[string]*PlacedObject),
	}
	idx.occupancy = newOccupancy(w.TilesHorizontal(), w.TilesVertical())
	return idx
}

func newOccupancy(tilesH, tilesV int) [][]string {
	grid := make([][]string, tilesV)
	for y := range grid {
		grid[y] = make([]string, tilesH)
	}
	return grid
}

// SetAllowOverlap switches the point-placement policy.
func (idx *Index) SetAllowOverlap(allow bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.allowOverlap = allow
}

// SetSelectionCallback registers the selection-change callback.
func (idx *Index) SetSelectionCallback(fn SelectionCallback) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.onSelect = fn
}

// IsAreaInBounds reports whether the footprint fits inside the grid.
func (idx *Index) IsAreaInBounds(gx, gy, size int) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.world.InBounds(gx, gy, size)
}

// IsAreaAvailable reports whether the footprint is in bounds and every
// cell is empty, ignoring cells held by excludeID (pass "" for none).
func (idx *Index) IsAreaAvailable(gx, gy, size int, excludeID string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.areaAvailableLocked(gx, gy, size, excludeID)
}

func (idx *Index) areaAvailableLocked(gx, gy, size int, excludeID string) bool {
	if !idx.world.InBounds(gx, gy, size) {
		return false
	}
	for y := gy; y < gy+size; y++ {
		for x := gx; x < gx+size; x++ {
			if id := idx.occupancy[y][x]; id != "" && id != excludeID {
				return false
			}
		}
	}
	return true
}

// markOccupied writes the object's id over its footprint. With stacked
// placement the newest object wins the cell.
func (idx *Index) markOccupied(o *PlacedObject) {
	x0, y0, x1, y1 := o.footprint()
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			idx.occupancy[y][x] = o.ID
		}
	}
}

// clearArea erases the object's marks, touching only cells it still
// holds, then restores any stacked objects that were shadowed in those
// cells. Occupancy must keep mirroring the object set after a removal.
func (idx *Index) clearArea(o *PlacedObject) {
	x0, y0, x1, y1 := o.footprint()
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if y >= 0 && y < len(idx.occupancy) && x >= 0 && x < len(idx.occupancy[y]) && idx.occupancy[y][x] == o.ID {
				idx.occupancy[y][x] = ""
			}
		}
	}

	for _, other := range idx.drawOrder {
		if other == o {
			continue
		}
		ox0, oy0, ox1, oy1 := other.footprint()
		iy0, iy1 := max(oy0, y0), min(oy1, y1)
		ix0, ix1 := max(ox0, x0), min(ox1, x1)
		for y := iy0; y < iy1; y++ {
			for x := ix0; x < ix1; x++ {
				if y >= 0 && y < len(idx.occupancy) && x >= 0 && x < len(idx.occupancy[y]) && idx.occupancy[y][x] == "" {
					idx.occupancy[y][x] = other.ID
				}
			}
		}
	}
}

// FindNearestFreePosition resolves a world-space drop point to a grid
// cell. An occupied or out-of-bounds start triggers an expanding ring
// search over Chebyshev radii, testing only ring perimeter cells, out to
// the larger grid dimension. With overlap allowed the point is simply
// clamped into bounds.
func (idx *Index) FindNearestFreePosition(worldX, worldY float64, size int) (world.GridPos, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.nearestFreeLocked(worldX, worldY, size)
}

func (idx *Index) nearestFreeLocked(worldX, worldY float64, size int) (world.GridPos, bool) {
	start := idx.world.WorldToGrid(worldX, worldY)

	if idx.allowOverlap {
		return idx.world.ClampGrid(start.X, start.Y, size), true
	}

	if idx.areaAvailableLocked(start.X, start.Y, size, "") {
		return start, true
	}

	maxRadius := idx.world.TilesHorizontal()
	if v := idx.world.TilesVertical(); v > maxRadius {
		maxRadius = v
	}

	for r := 1; r <= maxRadius; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if max(abs(dx), abs(dy)) != r {
					continue // interior cells were covered by smaller rings
				}
				gx, gy := start.X+dx, start.Y+dy
				if idx.areaAvailableLocked(gx, gy, size, "") {
					return world.GridPos{X: gx, Y: gy}, true
				}
			}
		}
	}
	return world.GridPos{}, false
}

// AddObjectAtPoint places an object near a world-space point, spiraling
// outward from the drop cell when it is taken. Returns the new id, or ""
// when the grid has no room or the object cap is reached.
func (idx *Index) AddObjectAtPoint(spriteURL string, worldX, worldY float64, size, layer int) string {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(idx.objects) >= idx.maxObjects {
		log.Printf("placement: object cap reached (%d)", idx.maxObjects)
		return ""
	}
	pos, ok := idx.nearestFreeLocked(worldX, worldY, size)
	if !ok {
		return ""
	}
	return idx.insertLocked(spriteURL, pos.X, pos.Y, size, layer)
}

// AddObjectAtGrid places an object at an exact cell with a bounds check
// only. Overlap is permitted here: precise editor placement stacks, while
// point placement avoids collisions. Both policies are load-bearing.
func (idx *Index) AddObjectAtGrid(spriteURL string, gx, gy, size, layer int) string {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(idx.objects) >= idx.maxObjects {
		log.Printf("placement: object cap reached (%d)", idx.maxObjects)
		return ""
	}
	if !idx.world.InBounds(gx, gy, size) {
		return ""
	}
	return idx.insertLocked(spriteURL, gx, gy, size, layer)
}

// RestoreObject reinstates a persisted object under its original id,
// clamping footprints the current grid no longer fits. Returns false for
// an empty or duplicate id or when the cap is reached.
func (idx *Index) RestoreObject(id, spriteURL string, gx, gy, size, layer int) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if id == "" {
		return false
	}
	if _, exists := idx.objects[id]; exists {
		return false
	}
	if len(idx.objects) >= idx.maxObjects {
		log.Printf("placement: object cap reached (%d)", idx.maxObjects)
		return false
	}
	if size < 1 {
		size = 1
	}
	if layer < 0 {
		layer = 0
	}

	pos := idx.world.ClampGrid(gx, gy, size)
	o := &PlacedObject{
		ID:        id,
		SpriteURL: spriteURL,
		GridX:     pos.X,
		GridY:     pos.Y,
		Size:      size,
		Layer:     layer,
		Alpha:     defaultAlpha,
	}
	idx.objects[id] = o
	idx.markOccupied(o)
	idx.insertDrawOrderLocked(o)

	// Generated ids must stay ahead of restored ones.
	var n uint64
	if _, err := fmt.Sscanf(id, "obj_%d", &n); err == nil && n > idx.nextID {
		idx.nextID = n
	}
	return true
}

func (idx *Index) insertLocked(spriteURL string, gx, gy, size, layer int) string {
	if layer < 0 {
		layer = 0
	}
	idx.nextID++
	o := &PlacedObject{
		ID:        fmt.Sprintf("obj_%d", idx.nextID),
		SpriteURL: spriteURL,
		GridX:     gx,
		GridY:     gy,
		Size:      size,
		Layer:     layer,
		Alpha:     defaultAlpha,
	}
	idx.objects[o.ID] = o
	idx.markOccupied(o)
	idx.insertDrawOrderLocked(o)
	return o.ID
}

// insertDrawOrderLocked places the object before the first entry whose
// layer is >= its own, keeping same-layer insertion order stable.
func (idx *Index) insertDrawOrderLocked(o *PlacedObject) {
	at := len(idx.drawOrder)
	for i, existing := range idx.drawOrder {
		if existing.Layer >= o.Layer {
			at = i
			break
		}
	}
	idx.drawOrder = append(idx.drawOrder, nil)
	copy(idx.drawOrder[at+1:], idx.drawOrder[at:])
	idx.drawOrder[at] = o
}

func (idx *Index) removeDrawOrderLocked(o *PlacedObject) {
	for i, existing := range idx.drawOrder {
		if existing == o {
			idx.drawOrder = append(idx.drawOrder[:i], idx.drawOrder[i+1:]...)
			return
		}
	}
}

// MoveObject relocates an object to an exact cell, ignoring its own marks
// during the availability check. Returns false when the target is taken
// or out of bounds.
func (idx *Index) MoveObject(id string, gx, gy int) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	o, ok := idx.objects[id]
	if !ok {
		return false
	}
	if !idx.areaAvailableLocked(gx, gy, o.Size, id) {
		return false
	}
	idx.clearArea(o)
	o.GridX, o.GridY = gx, gy
	idx.markOccupied(o)
	return true
}

// RemoveObject destroys an object and erases exactly its footprint.
func (idx *Index) RemoveObject(id string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	o, ok := idx.objects[id]
	if !ok {
		return false
	}
	if idx.selected == id {
		idx.stopBlinkLocked()
		idx.selected = ""
	}
	idx.clearArea(o)
	idx.removeDrawOrderLocked(o)
	delete(idx.objects, id)
	return true
}

// Clear removes every object.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.stopBlinkLocked()
	idx.selected = ""
	idx.objects = make(map[string]*PlacedObject)
	idx.drawOrder = idx.drawOrder[:0]
	idx.occupancy = newOccupancy(idx.world.TilesHorizontal(), idx.world.TilesVertical())
}

// UpdateLayer changes an object's layer and reinserts it into the draw
// order before the first entry whose layer is >= the new one.
func (idx *Index) UpdateLayer(id string, layer int) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	o, ok := idx.objects[id]
	if !ok {
		return false
	}
	if layer < 0 {
		layer = 0
	}
	idx.removeDrawOrderLocked(o)
	o.Layer = layer
	idx.insertDrawOrderLocked(o)
	return true
}

// MoveToForeground bumps the layer up by one.
func (idx *Index) MoveToForeground(id string) bool {
	idx.mu.RLock()
	o, ok := idx.objects[id]
	if !ok {
		idx.mu.RUnlock()
		return false
	}
	layer := o.Layer + 1
	idx.mu.RUnlock()
	return idx.UpdateLayer(id, layer)
}

// MoveToBackground drops the layer by one, clamped at zero.
func (idx *Index) MoveToBackground(id string) bool {
	idx.mu.RLock()
	o, ok := idx.objects[id]
	if !ok {
		idx.mu.RUnlock()
		return false
	}
	layer := o.Layer - 1
	if layer < 0 {
		layer = 0
	}
	idx.mu.RUnlock()
	return idx.UpdateLayer(id, layer)
}

// Select highlights one object with a blink cycle. The object's original
// tint and alpha are captured before the first toggle and restored
// exactly when the selection clears.
func (idx *Index) Select(id string) bool {
	idx.mu.Lock()

	o, ok := idx.objects[id]
	if !ok {
		idx.mu.Unlock()
		return false
	}
	if idx.selected == id {
		idx.mu.Unlock()
		return true
	}
	idx.restoreSelectedLocked()
	idx.stopBlinkLocked()

	idx.selected = id
	idx.origTint = o.Tint
	idx.origAlpha = o.Alpha
	idx.blinkOn = false
	idx.blinkStop = make(chan struct{})
	stop := idx.blinkStop

	cb := idx.onSelect
	snap := o.snapshot(idx.world, true)
	idx.mu.Unlock()

	if cb != nil {
		cb(snap)
	}

	go func() {
		ticker := time.NewTicker(blinkInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				idx.toggleBlink(id)
			case <-stop:
				return
			}
		}
	}()
	return true
}

func (idx *Index) toggleBlink(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.selected != id {
		return
	}
	o, ok := idx.objects[id]
	if !ok {
		return
	}
	idx.blinkOn = !idx.blinkOn
	if idx.blinkOn {
		o.Tint = highlightTint
		o.Alpha = highlightAlpha
	} else {
		o.Tint = idx.origTint
		o.Alpha = idx.origAlpha
	}
}

// ClearSelection stops the blink and restores the original visuals.
func (idx *Index) ClearSelection() {
	idx.mu.Lock()

	idx.restoreSelectedLocked()
	idx.stopBlinkLocked()
	idx.selected = ""

	cb := idx.onSelect
	idx.mu.Unlock()

	if cb != nil {
		cb(ObjectSnapshot{})
	}
}

func (idx *Index) restoreSelectedLocked() {
	if idx.selected == "" {
		return
	}
	if o, ok := idx.objects[idx.selected]; ok {
		o.Tint = idx.origTint
		o.Alpha = idx.origAlpha
	}
}

func (idx *Index) stopBlinkLocked() {
	if idx.blinkStop != nil {
		close(idx.blinkStop)
		idx.blinkStop = nil
	}
	idx.blinkOn = false
}

// Selected returns the id of the selected object, or "".
func (idx *Index) Selected() string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.selected
}

// Get returns a snapshot of one object.
func (idx *Index) Get(id string) (ObjectSnapshot, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	o, ok := idx.objects[id]
	if !ok {
		return ObjectSnapshot{}, false
	}
	return o.snapshot(idx.world, idx.selected == id), true
}

// Objects returns draw-ordered snapshots of every object.
func (idx *Index) Objects() []ObjectSnapshot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]ObjectSnapshot, 0, len(idx.drawOrder))
	for _, o := range idx.drawOrder {
		out = append(out, o.snapshot(idx.world, idx.selected == o.ID))
	}
	return out
}

// Count returns the number of placed objects.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.objects)
}

// OccupantAt returns the id occupying a cell, or "".
func (idx *Index) OccupantAt(gx, gy int) string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if gy < 0 || gy >= len(idx.occupancy) || gx < 0 || gx >= len(idx.occupancy[gy]) {
		return ""
	}
	return idx.occupancy[gy][gx]
}

// Reindex rebuilds the occupancy table after a world resize. Objects left
// out of bounds are clamped back in; occupancy is re-derived from the
// object set so no orphaned marks survive.
func (idx *Index) Reindex() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.occupancy = newOccupancy(idx.world.TilesHorizontal(), idx.world.TilesVertical())
	for _, o := range idx.drawOrder {
		if !idx.world.InBounds(o.GridX, o.GridY, o.Size) {
			pos := idx.world.ClampGrid(o.GridX, o.GridY, o.Size)
			o.GridX, o.GridY = pos.X, pos.Y
		}
		idx.markOccupied(o)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
