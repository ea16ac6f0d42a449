// Package core holds the two pieces of process-wide mutable state shared
// across the orchestrator's jobs: the LLM concurrency semaphore and the
// post-startup new-outcomes counter that drives incremental learning.
// Everything else in the system is stateless between ticks.
package core

// DefaultLLMConcurrency is the number of simultaneous model calls permitted
// across the whole process, regardless of how many markets are in flight.
const DefaultLLMConcurrency = 3

// DefaultLearningBatchSize is how many newly recorded outcomes accumulate
// before the incremental learning cycle fires.
const DefaultLearningBatchSize = 10

// Core bundles the shared semaphore and counter. A single value is
// constructed at process entry and passed by reference to every job; no
// package-level mutable state exists anywhere else.
type Core struct {
	// Semaphore gates concurrent LLM calls across every in-flight forecast.
	Semaphore chan struct{}

	// LearningBatchSize is the outcome-count threshold that triggers an
	// incremental calibration+threshold cycle.
	LearningBatchSize int

	// newOutcomes is a plain int, not an atomic: the scheduler's
	// max_instances=1 guard means only one goroutine (the resolution-check
	// job) ever mutates it, and never concurrently with itself.
	newOutcomes int
}

// New constructs a Core with the given LLM concurrency and learning batch
// size. Non-positive values fall back to the package defaults.
func New(llmConcurrency, learningBatchSize int) *Core {
	if llmConcurrency <= 0 {
		llmConcurrency = DefaultLLMConcurrency
	}
	if learningBatchSize <= 0 {
		learningBatchSize = DefaultLearningBatchSize
	}
	return &Core{
		Semaphore:         make(chan struct{}, llmConcurrency),
		LearningBatchSize: learningBatchSize,
	}
}

// RecordOutcomes adds n newly observed outcomes to the running count and
// reports whether the count has now crossed LearningBatchSize. Crossing
// resets the counter back to zero so the caller's lightweight learning
// cycle fires at most once per batch.
func (c *Core) RecordOutcomes(n int) (triggered bool) {
	if n <= 0 {
		return false
	}
	c.newOutcomes += n
	if c.newOutcomes >= c.LearningBatchSize {
		c.newOutcomes = 0
		return true
	}
	return false
}

// PendingOutcomes returns the current unconsumed outcome count, for
// diagnostics.
func (c *Core) PendingOutcomes() int {
	return c.newOutcomes
}
