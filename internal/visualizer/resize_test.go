package visualizer

import "testing"

func TestBreakpoints(t *testing.T) {
	bp := DefaultBreakpoints()
	tests := []struct {
		width int
		want  Bucket
		rows  int
	}{
		{40, Compact, 1},
		{79, Compact, 1},
		{80, Regular, 2},
		{139, Regular, 2},
		{140, Wide, 3},
	}
	for _, tt := range tests {
		b := bp.BucketFor(tt.width)
		if b != tt.want || b.WaveRows() != tt.rows {
			t.Errorf("BucketFor(%d) = %v (%d rows), want %v (%d rows)", tt.width, b, b.WaveRows(), tt.want, tt.rows)
		}
	}
}

func TestResizeAppliesOnNextTurn(t *testing.T) {
	h := newHarness(t)
	inst := h.mountReady(t, h.track("t1", 60))

	inst.Resize(150, 3)
	if w, _ := inst.Engine().Size(); w != 21 {
		t.Fatalf("resize applied synchronously: width %d", w)
	}
	inst.Resize(160, 3) // coalesced with the pending resize
	if h.queue.pending() != 1 {
		t.Fatalf("pending = %d, want 1", h.queue.pending())
	}

	h.queue.runNext(t)
	if w, hgt := inst.Engine().Size(); w != 160 || hgt != 3 {
		t.Errorf("size = %dx%d, want 160x3", w, hgt)
	}
	if inst.resize.Bucket() != Wide {
		t.Errorf("bucket = %v", inst.resize.Bucket())
	}

	inst.Resize(160, 3)
	if h.queue.pending() != 0 {
		t.Error("unchanged size scheduled a resize")
	}
}

func TestResizeBeforeActivation(t *testing.T) {
	h := newHarness(t)
	inst, _ := h.mountAt(h.track("t1", 60), 500)

	inst.Resize(90, 2)
	if h.queue.pending() != 0 {
		t.Error("resize without an engine was scheduled")
	}

	h.viewport.Scroll(480, 40)
	if w, hgt := inst.Engine().Size(); w != 90 || hgt != 2 {
		t.Errorf("engine created at %dx%d, want 90x2", w, hgt)
	}
}

func TestResizeAfterDestroyIsDropped(t *testing.T) {
	h := newHarness(t)
	inst := h.mountReady(t, h.track("t1", 60))
	e := inst.Engine()

	inst.Resize(150, 3)
	inst.Destroy()
	h.queue.runNext(t)

	if w, _ := e.Size(); w != 21 {
		t.Errorf("destroyed engine resized to %d", w)
	}
}
