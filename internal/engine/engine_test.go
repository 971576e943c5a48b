package engine

import (
	"testing"
	"time"

	"aquarium/internal/config"
)

func testEngine() *Engine {
	return New(Config{
		World:    config.DefaultWorld(),
		Behavior: config.DefaultBehavior(),
		Limits:   config.DefaultLimits(),
		Seed:     1,
	})
}

func TestAddRemoveFish(t *testing.T) {
	e := testEngine()

	f := e.AddFish("fish_1", EntityOptions{Name: "Bubbles"})
	if f == nil {
		t.Fatal("AddFish returned nil")
	}
	if e.FishCount() != 1 {
		t.Fatalf("FishCount = %d, want 1", e.FishCount())
	}
	if got := e.GetFish("fish_1"); got != f {
		t.Error("GetFish returned a different entity")
	}

	// Adding the same id again is a no-op returning the existing entity.
	if again := e.AddFish("fish_1", EntityOptions{}); again != f {
		t.Error("duplicate AddFish created a new entity")
	}
	if e.FishCount() != 1 {
		t.Errorf("FishCount = %d after duplicate add, want 1", e.FishCount())
	}

	if !e.RemoveFish("fish_1") {
		t.Error("RemoveFish failed for a live id")
	}
	if e.RemoveFish("fish_1") {
		t.Error("RemoveFish succeeded twice")
	}
	if e.GetFish("fish_1") != nil {
		t.Error("removed entity still resolvable")
	}
}

func TestAddFishGeneratesID(t *testing.T) {
	e := testEngine()
	f := e.AddFish("", EntityOptions{})
	if f == nil || f.ID == "" {
		t.Fatal("empty id was not generated")
	}
}

func TestFishCapEnforced(t *testing.T) {
	cfg := Config{
		World:    config.DefaultWorld(),
		Behavior: config.DefaultBehavior(),
		Limits:   config.ResourceLimits{MaxFish: 2, MaxBubbles: 10, MaxObjects: 10, PoolSize: 8},
		Seed:     1,
	}
	e := New(cfg)

	e.AddFish("a", EntityOptions{})
	e.AddFish("b", EntityOptions{})
	if over := e.AddFish("c", EntityOptions{}); over != nil {
		t.Error("AddFish exceeded the fish cap")
	}
	if e.FishCount() != 2 {
		t.Errorf("FishCount = %d, want 2", e.FishCount())
	}
}

func TestUpdateFishFieldsInPlace(t *testing.T) {
	e := testEngine()
	f := e.AddFish("fish_1", EntityOptions{Name: "Old", Color: "#111111"})
	f.X, f.Y, f.Frame = 123, 456, 2

	name := "New"
	color := "#abcdef"
	if !e.UpdateFishFields("fish_1", FieldPatch{Name: &name, Color: &color}) {
		t.Fatal("UpdateFishFields failed")
	}

	if f.Name != "New" || f.Visual.Color != "#abcdef" {
		t.Errorf("patch not applied: name=%q color=%q", f.Name, f.Visual.Color)
	}
	// Kinematic and animation state must survive an in-place update.
	if f.X != 123 || f.Y != 456 || f.Frame != 2 {
		t.Errorf("in-place update disturbed state: x=%.0f y=%.0f frame=%d", f.X, f.Y, f.Frame)
	}

	if e.UpdateFishFields("missing", FieldPatch{Name: &name}) {
		t.Error("UpdateFishFields succeeded for an unknown id")
	}
}

func TestUpdateFishFieldsSpriteVariant(t *testing.T) {
	e := testEngine()
	f := e.AddFish("fish_1", EntityOptions{})

	url := "http://img/fish.png"
	e.UpdateFishFields("fish_1", FieldPatch{SpriteURL: &url})
	if f.Visual.Kind != VisualSprite || f.Visual.SpriteURL != url {
		t.Error("sprite URL did not switch the visual variant")
	}

	empty := ""
	e.UpdateFishFields("fish_1", FieldPatch{SpriteURL: &empty})
	if f.Visual.Kind != VisualShape {
		t.Error("clearing the sprite URL did not restore the procedural variant")
	}
}

func TestUpdateFishFieldsSpeciesRederivesTraits(t *testing.T) {
	e := testEngine()
	f := e.AddFish("fish_1", EntityOptions{Species: SpeciesFish})
	f.Frame = 5 // out of range for the new species' smaller cycle is fine either way

	shark := SpeciesShark
	e.UpdateFishFields("fish_1", FieldPatch{Species: &shark})

	traits := TraitsFor(config.DefaultBehavior(), SpeciesShark)
	if f.FrameCount != traits.FrameCount {
		t.Errorf("FrameCount = %d, want %d after species change", f.FrameCount, traits.FrameCount)
	}
	if f.maxSpeed != traits.MaxSpeed {
		t.Errorf("maxSpeed = %.1f, want %.1f", f.maxSpeed, traits.MaxSpeed)
	}
	if f.Frame >= f.FrameCount {
		t.Errorf("Frame = %d out of range for %d frames", f.Frame, f.FrameCount)
	}
}

func TestSetMoodAppliesToAll(t *testing.T) {
	e := testEngine()
	a := e.AddFish("a", EntityOptions{})
	b := e.AddFish("b", EntityOptions{})
	a.BaseSpeed, b.BaseSpeed = 1.0, 0.5

	e.SetMood(2.0)

	if a.CurrentSpeed != 2.0 {
		t.Errorf("a.CurrentSpeed = %.2f, want 2.0", a.CurrentSpeed)
	}
	if b.CurrentSpeed != 1.0 {
		t.Errorf("b.CurrentSpeed = %.2f, want 1.0", b.CurrentSpeed)
	}

	// New entities inherit the multiplier.
	c := e.AddFish("c", EntityOptions{})
	want := c.BaseSpeed * 2.0
	if want > config.DefaultBehavior().FishMaxSpeed {
		want = config.DefaultBehavior().FishMaxSpeed
	}
	if c.CurrentSpeed != want {
		t.Errorf("c.CurrentSpeed = %.3f, want %.3f", c.CurrentSpeed, want)
	}
	if e.Mood() != 2.0 {
		t.Errorf("Mood = %.1f, want 2.0", e.Mood())
	}
}

func TestCollectDirtyPositions(t *testing.T) {
	e := testEngine()
	e.AddFish("a", EntityOptions{})
	e.AddFish("b", EntityOptions{})

	e.StepOnce(33)

	first := e.CollectDirtyPositions()
	if len(first) != 2 {
		t.Fatalf("collected %d updates after motion, want 2", len(first))
	}

	// Collection drains the dirty flags.
	second := e.CollectDirtyPositions()
	if len(second) != 0 {
		t.Errorf("collected %d updates without new motion, want 0", len(second))
	}

	e.StepOnce(33)
	third := e.CollectDirtyPositions()
	if len(third) != 2 {
		t.Errorf("collected %d updates after new motion, want 2", len(third))
	}
}

func TestSnapshotReflectsState(t *testing.T) {
	e := testEngine()
	e.AddFish("a", EntityOptions{Name: "Nemo"})

	e.StepOnce(33)

	snap := e.Snapshot()
	if snap == nil {
		t.Fatal("no snapshot published")
	}
	if snap.FishCount != 1 || len(snap.Fish) != 1 {
		t.Fatalf("snapshot FishCount = %d, want 1", snap.FishCount)
	}
	if snap.Fish[0].ID != "a" || snap.Fish[0].Name != "Nemo" {
		t.Errorf("snapshot entity = %+v", snap.Fish[0])
	}
	if !snap.Fish[0].Procedural {
		t.Error("default entity should be procedural in the snapshot")
	}
	if snap.TickNumber == 0 {
		t.Error("snapshot missing tick number")
	}
}

func TestBubblesSpawnAndExpire(t *testing.T) {
	e := testEngine()

	// Enough simulated time for several spawn intervals.
	for i := 0; i < 10; i++ {
		e.StepOnce(300)
	}
	if len(e.bubbleHandles) == 0 {
		t.Fatal("no bubbles spawned")
	}

	inUse, _, _, _ := e.PoolStats()
	if inUse != len(e.bubbleHandles) {
		t.Errorf("pool InUse = %d, handle count = %d", inUse, len(e.bubbleHandles))
	}

	// A long run must recycle bubbles rather than leak them.
	for i := 0; i < 200; i++ {
		e.StepOnce(300)
	}
	if len(e.bubbleHandles) > e.limits.MaxBubbles {
		t.Errorf("bubble count %d exceeds cap %d", len(e.bubbleHandles), e.limits.MaxBubbles)
	}
}

func TestStartStop(t *testing.T) {
	e := testEngine()
	e.AddFish("a", EntityOptions{})

	e.Start()
	time.Sleep(120 * time.Millisecond)
	e.Stop()

	if e.TickCount() == 0 {
		t.Error("no ticks ran while started")
	}
	// Stop is idempotent.
	e.Stop()
}

func TestRestartAfterStop(t *testing.T) {
	e := testEngine()
	e.AddFish("a", EntityOptions{})

	e.Start()
	time.Sleep(80 * time.Millisecond)
	e.Stop()
	ticksAfterFirstRun := e.TickCount()

	e.Start()
	time.Sleep(80 * time.Millisecond)
	e.Stop()

	if e.TickCount() <= ticksAfterFirstRun {
		t.Errorf("TickCount = %d after restart, want > %d", e.TickCount(), ticksAfterFirstRun)
	}
}

func TestResizeWorld(t *testing.T) {
	e := testEngine()
	e.ResizeWorld(40, 20)

	if e.World().TilesHorizontal() != 40 || e.World().TilesVertical() != 20 {
		t.Errorf("world = %dx%d, want 40x20",
			e.World().TilesHorizontal(), e.World().TilesVertical())
	}
}

func TestResizeWorldClampsToTileLimits(t *testing.T) {
	e := testEngine()
	lo := config.DefaultWorld().MinTiles
	hi := config.DefaultWorld().MaxTiles

	e.ResizeWorld(1, 9999)
	if e.World().TilesHorizontal() != lo {
		t.Errorf("TilesHorizontal = %d, want clamp at %d", e.World().TilesHorizontal(), lo)
	}
	if e.World().TilesVertical() != hi {
		t.Errorf("TilesVertical = %d, want clamp at %d", e.World().TilesVertical(), hi)
	}
}
