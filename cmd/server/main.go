package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"aquarium/internal/ambient"
	"aquarium/internal/api"
	"aquarium/internal/config"
	"aquarium/internal/culling"
	"aquarium/internal/engine"
	"aquarium/internal/placement"
	"aquarium/internal/reconcile"
	"aquarium/internal/render"
	"aquarium/internal/store"
	"aquarium/internal/world"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("no .env file found, using environment variables only")
	}

	cfg := config.Load()

	canvasW := getEnvInt("CANVAS_WIDTH", 1280)
	canvasH := getEnvInt("CANVAS_HEIGHT", 720)

	log.Printf("aquarium starting: %dx%d tiles, %d tps, canvas %dx%d",
		cfg.World.TilesHorizontal, cfg.World.TilesVertical,
		cfg.Behavior.TickRate, canvasW, canvasH)
	log.Printf("resource limits: %d fish, %d bubbles, %d objects, pool %d",
		cfg.Limits.MaxFish, cfg.Limits.MaxBubbles, cfg.Limits.MaxObjects,
		cfg.Limits.PoolSize)

	// Coordinate model and viewport. The viewport feeds the culler and
	// the safe zone that spawn logic keeps clear.
	w := world.New(cfg.World)
	viewport := render.NewViewport(w)
	viewport.Resize(float64(canvasW), float64(canvasH))

	centerX := w.Width() / 2
	centerY := w.Height() / 2
	safeZone := world.NewSafeZone(centerX, centerY, float64(canvasW), float64(canvasH))

	culler := culling.New(viewport, cfg.Culling)

	eng := engine.New(engine.Config{
		World:    cfg.World,
		Behavior: cfg.Behavior,
		Limits:   cfg.Limits,
		Culler:   culler,
		SafeZone: safeZone,
	})

	objects := placement.NewIndex(eng.World(), cfg.Limits.MaxObjects)

	// Authoritative store plus the two halves of the sync loop: inbound
	// change events via the reconciler, outbound motion via the debouncer.
	st := store.NewMemStore()

	reconciler := reconcile.New(eng, st, cfg.Sync)
	reconciler.Populate = reconcile.DefaultPopulator(st, cfg.World.TilesHorizontal, cfg.World.TilesVertical)

	debouncer := reconcile.NewDebouncer(cfg.Sync, eng, st)
	eng.SetMotionObserver(debouncer.NoteMotion)
	eng.SetTickObserver(api.RecordTick)

	// Render pipeline.
	sprites := render.NewSpriteCache(render.DefaultMaxSprites)
	bubblePool := render.NewBubbleRenderPool(0)
	bubblePool.Start()
	renderer := render.NewRenderer(canvasW, canvasH, viewport, sprites, bubblePool)

	// Ambient audio (silence when the asset is missing or disabled).
	player := ambient.NewPlayer(cfg.Audio)
	if player.Loaded() {
		log.Printf("ambient audio: %s", cfg.Audio.Path)
	}

	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(api.DefaultObservabilityConfig()); err != nil {
			log.Printf("debug server disabled: %v", err)
		}
	}

	// Decorations placed in earlier sessions come back from the store.
	restoreObjects(st, objects)

	server := api.NewServerWithFrames(eng, objects, st, renderer.Ring(), canvasW, canvasH)

	// Selection blinks are pushed to viewers as they toggle.
	objects.SetSelectionCallback(func(snap placement.ObjectSnapshot) {
		server.Hub().Broadcast("object:selection", snap)
	})

	eng.Start()
	log.Println("simulation started")

	if err := reconciler.Start(); err != nil {
		log.Fatalf("reconciler: %v", err)
	}
	log.Printf("reconciler running, %d fish", eng.FishCount())

	renderStop := make(chan struct{})
	go renderLoop(renderer, eng, objects, renderStop)

	go func() {
		addr := ":" + strconv.Itoa(cfg.Server.Port)
		if err := server.Start(addr); err != nil {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	log.Println("ready, press Ctrl+C to stop")
	<-quit

	log.Println("shutting down")
	close(renderStop)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}

	reconciler.Stop()
	debouncer.Stop() // flushes pending positions
	eng.Stop()
	bubblePool.Stop()
	player.Close()
	log.Println("goodbye")
}

// renderLoop draws frames into the ring buffer at a fixed rate and keeps
// the simulation gauges current.
func renderLoop(r *render.Renderer, eng *engine.Engine, objects *placement.Index, stop <-chan struct{}) {
	ticker := time.NewTicker(33 * time.Millisecond)
	defer ticker.Stop()

	var lastDropped uint64
	for {
		select {
		case <-ticker.C:
			snap := eng.Snapshot()
			if snap == nil {
				continue
			}
			start := time.Now()
			r.RenderFrame(snap, objects.Objects())
			api.RecordRender(time.Since(start))

			api.UpdateSimulationGauges(snap.FishCount, snap.VisibleCount, snap.BubbleCount, objects.Count())
			inUse, capacity, _, _ := eng.PoolStats()
			api.UpdatePoolUtilization(inUse, capacity)

			_, dropped, _ := r.Ring().Stats()
			for ; lastDropped < dropped; lastDropped++ {
				api.RecordFrameDrop()
			}
		case <-stop:
			return
		}
	}
}

// restoreObjects rebuilds the placement index from persisted records.
func restoreObjects(st store.Store, objects *placement.Index) {
	recs, err := st.ListObjects()
	if err != nil {
		log.Printf("object restore skipped: %v", err)
		return
	}
	restored := 0
	for _, rec := range recs {
		if objects.RestoreObject(rec.ID, rec.SpriteURL, rec.GridX, rec.GridY, rec.Size, rec.Layer) {
			restored++
		}
	}
	if restored > 0 {
		log.Printf("restored %d decoration(s)", restored)
	}
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
