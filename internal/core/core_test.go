package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAppliesDefaults(t *testing.T) {
	c := New(0, 0)
	assert.Equal(t, DefaultLLMConcurrency, cap(c.Semaphore))
	assert.Equal(t, DefaultLearningBatchSize, c.LearningBatchSize)
}

func TestNewHonoursExplicitSizes(t *testing.T) {
	c := New(7, 3)
	assert.Equal(t, 7, cap(c.Semaphore))
	assert.Equal(t, 3, c.LearningBatchSize)
}

func TestRecordOutcomesTriggersAtBatchSize(t *testing.T) {
	c := New(3, 3)

	assert.False(t, c.RecordOutcomes(1))
	assert.Equal(t, 1, c.PendingOutcomes())

	assert.False(t, c.RecordOutcomes(1))
	assert.True(t, c.RecordOutcomes(1))
	assert.Equal(t, 0, c.PendingOutcomes())
}

func TestRecordOutcomesIgnoresNonPositive(t *testing.T) {
	c := New(3, 5)
	assert.False(t, c.RecordOutcomes(0))
	assert.False(t, c.RecordOutcomes(-2))
	assert.Equal(t, 0, c.PendingOutcomes())
}

func TestRecordOutcomesCanOvershootAndStillTrigger(t *testing.T) {
	c := New(3, 5)
	assert.True(t, c.RecordOutcomes(9))
	assert.Equal(t, 0, c.PendingOutcomes())
}
