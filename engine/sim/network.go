// Package sim is a toy rail-network simulator used to demo the resolution
// engine: three precomputed tracks, three trains stepping along them, and
// endpoints to strand and resume a train.
package sim

import (
	"math"
	"sync"
)

// Point is one coordinate of a track polyline, in normalized [-1, 1] space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TrainPosition is a train's live state for the map front end.
type TrainPosition struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Color  string  `json:"color"`
}

// StatusStuck is the status set by a triggered incident. A stuck train does
// not advance until resolved.
const StatusStuck = "STUCK: DEBRIS"

type train struct {
	id     string
	track  string
	idx    int
	speed  int
	status string
	color  string
}

// Network holds the static track geometry and the mutable train state.
type Network struct {
	tracks map[string][]Point

	mu     sync.Mutex
	trains []*train
}

// NewNetwork builds the demo network: an elliptical main loop, a diagonal
// cross line, and a winding scenic route.
func NewNetwork() *Network {
	return &Network{
		tracks: map[string][]Point{
			"main_loop":    ellipse(200, 0.8, 0.8),
			"cross_line":   diagonal(100, -0.9, 0.9, -0.5),
			"scenic_route": sine(150, -1, 1, 4, 0.3, 0.5),
		},
		trains: []*train{
			{id: "Train-101", track: "main_loop", idx: 0, speed: 2, status: "On Time", color: "#3b82f6"},
			{id: "Train-404", track: "cross_line", idx: 10, speed: 1, status: "On Time", color: "#ef4444"},
			{id: "Freight-99", track: "scenic_route", idx: 50, speed: 1, status: "Delayed", color: "#10b981"},
		},
	}
}

// Tracks returns the static track geometry. Called once on front-end load.
func (n *Network) Tracks() map[string][]Point { return n.tracks }

// Step advances every moving train one tick and returns the live positions.
func (n *Network) Step() []TrainPosition {
	n.mu.Lock()
	defer n.mu.Unlock()

	updates := make([]TrainPosition, len(n.trains))
	for i, t := range n.trains {
		pts := n.tracks[t.track]
		if t.status != StatusStuck {
			if t.track == "main_loop" {
				t.idx = (t.idx + t.speed) % len(pts)
			} else {
				// Open lines restart from the origin.
				t.idx += t.speed
				if t.idx >= len(pts) {
					t.idx = 0
				}
			}
		}
		pt := pts[t.idx]
		updates[i] = TrainPosition{ID: t.id, Status: t.status, X: pt.X, Y: pt.Y, Color: t.color}
	}
	return updates
}

// TriggerIncident strands the named train. Reports whether it was found.
func (n *Network) TriggerIncident(trainID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	found := false
	for _, t := range n.trains {
		if t.id == trainID {
			t.status = StatusStuck
			t.speed = 0
			found = true
		}
	}
	return found
}

// ResolveIncident resumes the named train at unit speed.
func (n *Network) ResolveIncident(trainID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	found := false
	for _, t := range n.trains {
		if t.id == trainID {
			t.status = "On Time"
			t.speed = 1
			found = true
		}
	}
	return found
}

func ellipse(samples int, rx, ry float64) []Point {
	pts := make([]Point, samples)
	for i := range pts {
		theta := 2 * math.Pi * float64(i) / float64(samples-1)
		pts[i] = Point{X: math.Cos(theta) * rx, Y: math.Sin(theta) * ry}
	}
	return pts
}

func diagonal(samples int, from, to, slope float64) []Point {
	pts := make([]Point, samples)
	for i := range pts {
		x := from + (to-from)*float64(i)/float64(samples-1)
		pts[i] = Point{X: x, Y: x * slope}
	}
	return pts
}

func sine(samples int, from, to, freq, amp, offset float64) []Point {
	pts := make([]Point, samples)
	for i := range pts {
		x := from + (to-from)*float64(i)/float64(samples-1)
		pts[i] = Point{X: x, Y: math.Sin(x*freq)*amp + offset}
	}
	return pts
}
