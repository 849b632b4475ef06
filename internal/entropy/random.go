// Package entropy provides the seeded random source shared by the motion
// and task layers. Every roll in a tick goes through one Source so a run
// replays exactly from its seed.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	mrand "math/rand"
	"sync"
)

// Source is a locked, seeded pseudo-random generator.
type Source struct {
	mu   sync.Mutex
	seed int64
	rng  *mrand.Rand
}

// New returns a source seeded with seed. A zero seed draws one from
// crypto/rand.
func New(seed int64) *Source {
	if seed == 0 {
		seed = CryptoSeed()
		slog.Debug("entropy seeded from crypto/rand", "seed", seed)
	}
	return &Source{seed: seed, rng: mrand.New(mrand.NewSource(seed))}
}

// Seed returns the seed the source was created with.
func (s *Source) Seed() int64 { return s.seed }

// RandomNumber returns a value in [0, max], inclusive of max. A
// non-positive max always returns 0.
func (s *Source) RandomNumber(max int) int {
	if max <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(max + 1)
}

// Float returns a value in [0, 1).
func (s *Source) Float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Reseed restarts the sequence from seed.
func (s *Source) Reseed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seed = seed
	s.rng.Seed(seed)
}

// CryptoSeed returns a non-zero seed from crypto/rand.
func CryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// This should never happen; fall back to a fixed seed.
		return 1
	}
	n := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if n == 0 {
		n = 1
	}
	return n
}
