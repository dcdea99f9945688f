// Package history holds the fixed-capacity rolling series shown on the
// dashboard charts.
package history

import "github.com/rusenback/nodewatch/internal/model"

// DefaultCapacity is the number of points kept per series
const DefaultCapacity = 100

// Series is an append-only window of (timestamp, value) points.
// It never holds more than its capacity; the oldest point is evicted first.
// Series is not safe for concurrent mutation: the sampling engine is the only
// writer and readers receive copies.
type Series struct {
	points   []model.Point
	capacity int
}

// New creates a Series. A non-positive capacity falls back to DefaultCapacity.
func New(capacity int) *Series {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Series{
		points:   make([]model.Point, 0, capacity+1),
		capacity: capacity,
	}
}

// Push appends a point and evicts the single oldest one on overflow
func (s *Series) Push(x, y float64) {
	s.points = append(s.points, model.Point{X: x, Y: y})
	if len(s.points) > s.capacity {
		// shift in place so the backing array does not grow
		copy(s.points, s.points[1:])
		s.points = s.points[:len(s.points)-1]
	}
}

// Len returns the number of points held
func (s *Series) Len() int {
	return len(s.points)
}

// Cap returns the configured capacity
func (s *Series) Cap() int {
	return s.capacity
}

// Latest returns the most recent value
func (s *Series) Latest() (float64, bool) {
	if len(s.points) == 0 {
		return 0, false
	}
	return s.points[len(s.points)-1].Y, true
}

// First returns the oldest timestamp
func (s *Series) First() (float64, bool) {
	if len(s.points) == 0 {
		return 0, false
	}
	return s.points[0].X, true
}

// Last returns the newest timestamp
func (s *Series) Last() (float64, bool) {
	if len(s.points) == 0 {
		return 0, false
	}
	return s.points[len(s.points)-1].X, true
}

// Points returns a copy of the points in push order
func (s *Series) Points() []model.Point {
	out := make([]model.Point, len(s.points))
	copy(out, s.points)
	return out
}
