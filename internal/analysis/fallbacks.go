package analysis

import (
	"math/rand/v2"
	"slices"
	"sync"
)

// GenreFallback supplies a genre for tracks that declare none
type GenreFallback interface {
	Genre(path string) string
}

// FixedGenre always returns the same genre
type FixedGenre string

// Genre implements GenreFallback
func (g FixedGenre) Genre(string) string {
	return string(g)
}

// RandomGenre picks uniformly from a pool. It is safe for concurrent use.
type RandomGenre struct {
	mu   sync.Mutex
	pool []string
	rng  *rand.Rand
}

// NewRandomGenre creates a RandomGenre over pool. A nil src seeds from the
// runtime; pass a fixed source for reproducible picks.
func NewRandomGenre(pool []string, src rand.Source) *RandomGenre {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &RandomGenre{pool: slices.Clone(pool), rng: rand.New(src)}
}

// Genre implements GenreFallback. An empty pool yields "Unknown".
func (g *RandomGenre) Genre(string) string {
	if len(g.pool) == 0 {
		return "Unknown"
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pool[g.rng.IntN(len(g.pool))]
}

// InstrumentProvider lists the instruments heard in a track
type InstrumentProvider interface {
	Instruments(path string) []string
}

// StaticInstruments returns the same list for every track
type StaticInstruments []string

// Instruments implements InstrumentProvider
func (s StaticInstruments) Instruments(string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}

// PlaceholderInstruments stands in until real instrument recognition exists
var PlaceholderInstruments = StaticInstruments{"piano", "drums", "guitar"}
