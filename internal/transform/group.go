//-------------------------------------------------------------------------
//
// pgEdge DuckLens
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package transform

// meanIndex accumulates a running sum and count per key. Sums are added in
// row order, so the resulting means are reproducible for a given input.
type meanIndex[K comparable] struct {
	sums   map[K]float64
	counts map[K]int
}

func newMeanIndex[K comparable]() *meanIndex[K] {
	return &meanIndex[K]{
		sums:   make(map[K]float64),
		counts: make(map[K]int),
	}
}

func (m *meanIndex[K]) add(key K, v float64) {
	m.sums[key] += v
	m.counts[key]++
}

// mean returns the mean for key, or false when the key has no members.
func (m *meanIndex[K]) mean(key K) (float64, bool) {
	n := m.counts[key]
	if n == 0 {
		return 0, false
	}
	return m.sums[key] / float64(n), true
}

// distinctIndex counts distinct members per key.
type distinctIndex[K comparable, V comparable] struct {
	sets map[K]map[V]struct{}
}

func newDistinctIndex[K comparable, V comparable]() *distinctIndex[K, V] {
	return &distinctIndex[K, V]{sets: make(map[K]map[V]struct{})}
}

func (d *distinctIndex[K, V]) add(key K, member V) {
	set, ok := d.sets[key]
	if !ok {
		set = make(map[V]struct{})
		d.sets[key] = set
	}
	set[member] = struct{}{}
}

// count returns the number of distinct members for key (0 if unseen).
func (d *distinctIndex[K, V]) count(key K) int {
	return len(d.sets[key])
}
