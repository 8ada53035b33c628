package scoring

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"
)

// Random is the only source of nondeterminism in the engine.
type Random interface {
	// Intn returns a value in [0, n). n is always > 0.
	Intn(n int) int
}

// lockedRand makes a seeded *rand.Rand safe for concurrent sessions.
type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandom returns a goroutine-safe source seeded with seed.
func NewRandom(seed int64) Random {
	return &lockedRand{rnd: rand.New(rand.NewSource(seed))}
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

// NewSeed generates a seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// FirstPick always chooses the first tied category.
type FirstPick struct{}

func (FirstPick) Intn(int) int { return 0 }
