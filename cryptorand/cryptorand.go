// Package cryptorand provides a math/rand source backed by crypto/rand, for
// games that aren't given a seed.
package cryptorand

import (
	"crypto/rand"
	"encoding/binary"
)

// NewSource returns a source of unpredictable numbers. It can't be seeded.
func NewSource() Source {
	return Source{}
}

type Source struct{}

func (s Source) Int63() int64 {
	return int64(s.Uint64() &^ (1 << 63))
}

func (Source) Uint64() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err)
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// Seed is a no-op.
func (Source) Seed(int64) {}
