// Package random provides cryptographic seed generation helpers.
//
// Simulation runs derive every block stream from one root seed. NewSeed
// supplies that seed when the caller does not pin one.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
)

// NewSeed generates a non-zero random seed using crypto/rand.
func NewSeed() (uint64, error) {
	return seedFrom(crand.Reader)
}

func seedFrom(r io.Reader) (uint64, error) {
	var b [8]byte
	for {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, fmt.Errorf("read random seed: %w", err)
		}
		if seed := binary.LittleEndian.Uint64(b[:]); seed != 0 {
			return seed, nil
		}
	}
}
