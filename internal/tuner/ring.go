package tuner

import "sort"

// ring keeps the most recent values up to a fixed capacity
type ring struct {
	values   []float64
	capacity int
}

func newRing(capacity int) ring {
	return ring{
		values:   make([]float64, 0, capacity),
		capacity: capacity,
	}
}

// push appends v, evicting the oldest value when full
func (r *ring) push(v float64) {
	if len(r.values) == r.capacity {
		copy(r.values, r.values[1:])
		r.values = r.values[:r.capacity-1]
	}
	r.values = append(r.values, v)
}

// median returns the element at len/2 of the sorted values (the upper
// median for even lengths). The ring must not be empty.
func (r *ring) median() float64 {
	sorted := make([]float64, len(r.values))
	copy(sorted, r.values)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2]
}

func (r *ring) len() int {
	return len(r.values)
}

func (r *ring) reset() {
	r.values = r.values[:0]
}
