// Package dicetest provides scripted dice sources for deterministic tests.
package dicetest

import "fmt"

// Sequence replays a fixed list of die faces.
//
// Each IntN call consumes one face and returns face-1, so the dice package
// sees exactly the scripted face. It panics when a face is outside [1, n] or
// the script runs out, which surfaces an unexpected extra draw in a test.
type Sequence struct {
	faces []int
	pos   int
}

// NewSequence returns a source that yields faces in order.
func NewSequence(faces ...int) *Sequence {
	return &Sequence{faces: append([]int(nil), faces...)}
}

// IntN returns the next scripted face minus one.
func (s *Sequence) IntN(n int) int {
	if s.pos >= len(s.faces) {
		panic(fmt.Sprintf("dicetest: sequence exhausted after %d draws", s.pos))
	}
	face := s.faces[s.pos]
	if face < 1 || face > n {
		panic(fmt.Sprintf("dicetest: face %d at draw %d is outside 1..%d", face, s.pos, n))
	}
	s.pos++
	return face - 1
}

// Consumed reports how many faces have been drawn.
func (s *Sequence) Consumed() int {
	return s.pos
}

// Remaining reports how many faces are left.
func (s *Sequence) Remaining() int {
	return len(s.faces) - s.pos
}
