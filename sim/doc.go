// Package sim provides the core stochastic birth-death simulation engine for cladesim.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - record.go: Lineage lifecycle (born → dead or extant at the horizon) and the output Record
//   - hazard.go: Waiting-time sampling under arbitrary time- and age-dependent hazards
//   - engine.go: The event loop, acceptance constraints, and the bounded retry combinator
//
// # Architecture
//
// The sim package owns simulation state and the event loop; supporting concerns
// live in sub-packages:
//   - sim/rates/: rate specification variants, normalization, environment tables
//   - sim/newick/: Record ⇄ tree transforms and Newick serialization
//
// A simulation run is driven by Config: founder count, horizon, speciation and
// extinction rates (already normalized to rates.Rate), optional age-dependence
// shapes, and acceptance constraints on the final lineage counts. Run retries
// rejected attempts up to a hard cap and returns a Result that distinguishes
// success from cap exhaustion.
//
// # Reproducibility
//
// All randomness flows through per-attempt *rand.Rand streams derived from a
// single master seed (see rng.go). Two runs with the same seed and identical
// configuration MUST produce bit-for-bit identical records.
package sim
