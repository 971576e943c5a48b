package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"aquarium/internal/placement"
	"aquarium/internal/store"

	"github.com/go-chi/chi/v5"
)

// Handler methods for routerHandlers.
// These are used by both the standalone router (for testing) and the full Server.

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	if snap == nil {
		writeJSON(w, map[string]interface{}{
			"fish":    []interface{}{},
			"bubbles": []interface{}{},
			"objects": h.objects.Objects(),
		})
		return
	}

	writeJSON(w, map[string]interface{}{
		"tick":         snap.TickNumber,
		"fish":         snap.Fish,
		"bubbles":      snap.Bubbles,
		"fishCount":    snap.FishCount,
		"visibleCount": snap.VisibleCount,
		"bubbleCount":  snap.BubbleCount,
		"objects":      h.objects.Objects(),
	})
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	// Lock-free snapshot; avoids mutex contention on every poll request
	snap := h.engine.Snapshot()
	inUse, capacity, forcedReuse, doubleReleases := h.engine.PoolStats()

	stats := map[string]interface{}{
		"tick":        h.engine.TickCount(),
		"fishCount":   h.engine.FishCount(),
		"objectCount": h.objects.Count(),
		"mood":        h.engine.Mood(),
		"bubblePool": map[string]interface{}{
			"inUse":          inUse,
			"capacity":       capacity,
			"forcedReuse":    forcedReuse,
			"doubleReleases": doubleReleases,
		},
	}
	if snap != nil {
		stats["visibleCount"] = snap.VisibleCount
		stats["bubbleCount"] = snap.BubbleCount
	}
	writeJSON(w, stats)
}

func (h *routerHandlers) handleListFish(w http.ResponseWriter, r *http.Request) {
	fish, err := h.store.ListFish()
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, fish)
}

func (h *routerHandlers) handleAddFish(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string  `json:"name"`
		Species   string  `json:"species"`
		Color     string  `json:"color"`
		SpriteURL string  `json:"spriteUrl"`
		Size      float64 `json:"size"`
		X         float64 `json:"x"`
		Y         float64 `json:"y"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	species := req.Species
	if species == "" {
		species = "fish"
	}
	if species != "fish" && species != "shark" {
		writeError(w, "Unknown species", http.StatusBadRequest)
		return
	}

	rec := store.FishRecord{
		ID:        fmt.Sprintf("fish_%d", time.Now().UnixNano()),
		Name:      req.Name,
		Species:   species,
		Color:     req.Color,
		SpriteURL: req.SpriteURL,
		Size:      req.Size,
		X:         req.X,
		Y:         req.Y,
		TargetY:   req.Y,
	}

	if err := h.store.PutFish(rec); err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, rec)
}

func (h *routerHandlers) handleUpdateFish(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.store.GetFish(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, "Fish not found", http.StatusNotFound)
			return
		}
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var req struct {
		Name      *string  `json:"name"`
		Species   *string  `json:"species"`
		Color     *string  `json:"color"`
		SpriteURL *string  `json:"spriteUrl"`
		Size      *float64 `json:"size"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if req.Name != nil {
		rec.Name = *req.Name
	}
	if req.Species != nil {
		if *req.Species != "fish" && *req.Species != "shark" {
			writeError(w, "Unknown species", http.StatusBadRequest)
			return
		}
		rec.Species = *req.Species
	}
	if req.Color != nil {
		rec.Color = *req.Color
	}
	if req.SpriteURL != nil {
		rec.SpriteURL = *req.SpriteURL
	}
	if req.Size != nil {
		rec.Size = *req.Size
	}

	if err := h.store.PutFish(rec); err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, rec)
}

func (h *routerHandlers) handleRemoveFish(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteFish(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, "Fish not found", http.StatusNotFound)
			return
		}
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleGetMood(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]float64{"mood": h.engine.Mood()})
}

func (h *routerHandlers) handleSetMood(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Multiplier float64 `json:"multiplier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Multiplier <= 0 {
		writeError(w, "Multiplier must be positive", http.StatusBadRequest)
		return
	}

	h.engine.SetMood(req.Multiplier)
	writeJSON(w, map[string]float64{"mood": h.engine.Mood()})
}

func (h *routerHandlers) handleResizeWorld(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TilesHorizontal int `json:"tilesHorizontal"`
		TilesVertical   int `json:"tilesVertical"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.TilesHorizontal < 1 || req.TilesVertical < 1 {
		writeError(w, "Dimensions must be positive", http.StatusBadRequest)
		return
	}

	h.engine.ResizeWorld(req.TilesHorizontal, req.TilesVertical)

	// The occupancy table is sized to the old grid; rebuild it and clamp
	// any decoration the shrink pushed out of bounds.
	h.objects.Reindex()
	for _, obj := range h.objects.Objects() {
		h.persistObject(obj)
	}

	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleGetFrame(w http.ResponseWriter, r *http.Request) {
	frame := h.frames.TryRead()
	if frame == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Frame-Width", strconv.Itoa(h.frameW))
	w.Header().Set("X-Frame-Height", strconv.Itoa(h.frameH))
	w.Write(frame)
}

func (h *routerHandlers) handleListObjects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.objects.Objects())
}

func (h *routerHandlers) handlePlaceAtPoint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SpriteURL string  `json:"spriteUrl"`
		X         float64 `json:"x"`
		Y         float64 `json:"y"`
		Size      int     `json:"size"`
		Layer     int     `json:"layer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Size < 1 {
		req.Size = 1
	}

	id := h.objects.AddObjectAtPoint(req.SpriteURL, req.X, req.Y, req.Size, req.Layer)
	if id == "" {
		writeError(w, "No free position", http.StatusConflict)
		return
	}

	obj, _ := h.objects.Get(id)
	h.persistObject(obj)
	writeJSON(w, obj)
}

func (h *routerHandlers) handlePlaceAtGrid(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SpriteURL string `json:"spriteUrl"`
		GridX     int    `json:"gridX"`
		GridY     int    `json:"gridY"`
		Size      int    `json:"size"`
		Layer     int    `json:"layer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Size < 1 {
		req.Size = 1
	}

	id := h.objects.AddObjectAtGrid(req.SpriteURL, req.GridX, req.GridY, req.Size, req.Layer)
	if id == "" {
		writeError(w, "Position out of bounds", http.StatusBadRequest)
		return
	}

	obj, _ := h.objects.Get(id)
	h.persistObject(obj)
	writeJSON(w, obj)
}

func (h *routerHandlers) handleMoveObject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		GridX int `json:"gridX"`
		GridY int `json:"gridY"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if !h.objects.MoveObject(id, req.GridX, req.GridY) {
		writeError(w, "Move rejected", http.StatusConflict)
		return
	}
	obj, _ := h.objects.Get(id)
	h.persistObject(obj)
	writeJSON(w, obj)
}

func (h *routerHandlers) handleObjectLayer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Layer int `json:"layer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if !h.objects.UpdateLayer(id, req.Layer) {
		writeError(w, "Object not found", http.StatusNotFound)
		return
	}
	if obj, ok := h.objects.Get(id); ok {
		h.persistObject(obj)
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleObjectForeground(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.objects.MoveToForeground(id) {
		writeError(w, "Object not found", http.StatusNotFound)
		return
	}
	if obj, ok := h.objects.Get(id); ok {
		h.persistObject(obj)
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleObjectBackground(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.objects.MoveToBackground(id) {
		writeError(w, "Object not found", http.StatusNotFound)
		return
	}
	if obj, ok := h.objects.Get(id); ok {
		h.persistObject(obj)
	}
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleSelectObject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.objects.Select(id) {
		writeError(w, "Object not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]string{"selected": id})
}

func (h *routerHandlers) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	h.objects.ClearSelection()
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleRemoveObject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.objects.RemoveObject(id) {
		writeError(w, "Object not found", http.StatusNotFound)
		return
	}
	h.deleteObjectRecord(id)
	writeJSON(w, map[string]bool{"success": true})
}

func (h *routerHandlers) handleClearObjects(w http.ResponseWriter, r *http.Request) {
	ids := make([]string, 0, h.objects.Count())
	for _, obj := range h.objects.Objects() {
		ids = append(ids, obj.ID)
	}
	h.objects.Clear()
	for _, id := range ids {
		h.deleteObjectRecord(id)
	}
	writeJSON(w, map[string]bool{"success": true})
}

// persistObject mirrors a placement into the store. Persistence is
// best-effort: a store failure never rolls back the in-memory index.
func (h *routerHandlers) persistObject(obj placement.ObjectSnapshot) {
	if obj.ID == "" {
		return
	}
	rec := store.ObjectRecord{
		ID:        obj.ID,
		SpriteURL: obj.SpriteURL,
		GridX:     obj.GridX,
		GridY:     obj.GridY,
		Size:      obj.Size,
		Layer:     obj.Layer,
	}
	if err := h.store.PutObject(rec); err != nil {
		log.Printf("failed to persist object %s: %v", obj.ID, err)
	}
}

func (h *routerHandlers) deleteObjectRecord(id string) {
	if err := h.store.DeleteObject(id); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Printf("failed to delete object record %s: %v", id, err)
	}
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
