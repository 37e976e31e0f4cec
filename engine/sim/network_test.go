package sim

import "testing"

func TestTrackGeometry(t *testing.T) {
	n := NewNetwork()
	tracks := n.Tracks()
	want := map[string]int{"main_loop": 200, "cross_line": 100, "scenic_route": 150}
	for name, count := range want {
		if got := len(tracks[name]); got != count {
			t.Errorf("%s has %d points, want %d", name, got, count)
		}
	}
	for _, pt := range tracks["main_loop"] {
		if pt.X < -0.81 || pt.X > 0.81 || pt.Y < -0.81 || pt.Y > 0.81 {
			t.Fatalf("main_loop point %+v outside ellipse bounds", pt)
		}
	}
}

func TestStepAdvancesTrains(t *testing.T) {
	n := NewNetwork()
	first := n.Step()
	second := n.Step()
	if len(first) != 3 {
		t.Fatalf("got %d trains, want 3", len(first))
	}
	moved := false
	for i := range first {
		if first[i].X != second[i].X || first[i].Y != second[i].Y {
			moved = true
		}
	}
	if !moved {
		t.Fatal("no train moved across two ticks")
	}
}

func TestMainLoopWrapsAround(t *testing.T) {
	n := NewNetwork()
	// Train-101 moves 2 points per tick on a 200 point loop.
	for i := 0; i < 150; i++ {
		n.Step()
	}
	positions := n.Step()
	if positions[0].ID != "Train-101" {
		t.Fatalf("unexpected train order: %v", positions[0].ID)
	}
	// Still on the track, not out of range.
	if positions[0].X < -0.81 || positions[0].X > 0.81 {
		t.Fatalf("wrapped position out of bounds: %+v", positions[0])
	}
}

func TestTriggerAndResolveIncident(t *testing.T) {
	n := NewNetwork()
	if !n.TriggerIncident("Train-404") {
		t.Fatal("train not found")
	}

	before := n.Step()
	after := n.Step()
	var stuckBefore, stuckAfter TrainPosition
	for i := range before {
		if before[i].ID == "Train-404" {
			stuckBefore, stuckAfter = before[i], after[i]
		}
	}
	if stuckBefore.Status != StatusStuck {
		t.Fatalf("status = %q, want %q", stuckBefore.Status, StatusStuck)
	}
	if stuckBefore.X != stuckAfter.X || stuckBefore.Y != stuckAfter.Y {
		t.Fatal("stuck train moved")
	}

	if !n.ResolveIncident("Train-404") {
		t.Fatal("train not found on resolve")
	}
	resumed := n.Step()
	for _, p := range resumed {
		if p.ID == "Train-404" {
			if p.Status != "On Time" {
				t.Fatalf("status = %q, want On Time", p.Status)
			}
			if p.X == stuckAfter.X && p.Y == stuckAfter.Y {
				t.Fatal("resolved train did not move")
			}
		}
	}
}

func TestUnknownTrain(t *testing.T) {
	n := NewNetwork()
	if n.TriggerIncident("Ghost-1") {
		t.Fatal("unknown train reported found")
	}
	if n.ResolveIncident("Ghost-1") {
		t.Fatal("unknown train reported found")
	}
}
