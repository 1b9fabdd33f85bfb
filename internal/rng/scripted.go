package rng

import (
	"fmt"
	"sync"
)

// Scripted replays fixed draws in order. Intn and Float64 consume
// independent queues. It panics when a queue runs dry or a scripted
// integer is out of range, which surfaces a mis-scripted test immediately.
type Scripted struct {
	mu     sync.Mutex
	ints   []int
	floats []float64
}

// NewScripted creates a scripted source
func NewScripted(ints []int, floats []float64) *Scripted {
	return &Scripted{ints: ints, floats: floats}
}

// PushInts appends integer draws
func (s *Scripted) PushInts(v ...int) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ints = append(s.ints, v...)
	return s
}

// PushFloats appends float draws
func (s *Scripted) PushFloats(v ...float64) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.floats = append(s.floats, v...)
	return s
}

func (s *Scripted) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ints) == 0 {
		panic(fmt.Sprintf("rng: scripted Intn(%d) with no draws left", n))
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	if v < 0 || v >= n {
		panic(fmt.Sprintf("rng: scripted draw %d out of range [0,%d)", v, n))
	}
	return v
}

func (s *Scripted) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.floats) == 0 {
		panic("rng: scripted Float64 with no draws left")
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

// Remaining reports how many draws are still queued
func (s *Scripted) Remaining() (ints, floats int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ints), len(s.floats)
}

// Fixed always returns the same draws, clamped into range
type Fixed struct {
	Int   int
	Float float64
}

func (f Fixed) Intn(n int) int {
	if f.Int >= n {
		return n - 1
	}
	if f.Int < 0 {
		return 0
	}
	return f.Int
}

func (f Fixed) Float64() float64 { return f.Float }
