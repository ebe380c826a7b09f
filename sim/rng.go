package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two simulations with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Stream names ===

// StreamAttempt returns the stream name for retry attempt N. Each attempt of
// a run draws from its own stream so a rejected attempt cannot perturb the
// draws of the next one.
func StreamAttempt(attempt int) string {
	return fmt.Sprintf("attempt_%d", attempt)
}

// StreamReplicate returns the stream name for replicate N. Replicates are
// fully isolated from each other (see replicate.go).
func StreamReplicate(id int) string {
	return fmt.Sprintf("replicate_%d", id)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per named
// stream, derived as masterSeed XOR fnv1a64(streamName).
//
// Thread-safety: NOT thread-safe. Callers that fan out across goroutines must
// create one PartitionedRNG (or one derived stream) per goroutine.
type PartitionedRNG struct {
	key     SimulationKey
	streams map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:     key,
		streams: make(map[string]*rand.Rand),
	}
}

// ForStream returns a deterministically-seeded RNG for the named stream.
// The same stream name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForStream(name string) *rand.Rand {
	if rng, ok := p.streams[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(p.StreamSeed(name)))
	p.streams[name] = rng
	return rng
}

// StreamSeed returns the derived seed for the named stream without
// instantiating an RNG. Used by replicate workers that need a raw seed.
func (p *PartitionedRNG) StreamSeed(name string) int64 {
	return int64(p.key) ^ fnv1a64(name)
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
