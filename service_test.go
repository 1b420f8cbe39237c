package ensemble

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConcurrencyNoneIsOneWorker(t *testing.T) {
	assert.Equal(t, 1, ConcurrencyNone().workerCount(false))
}

func TestConcurrencyOnePerCoreMatchesNumCPU(t *testing.T) {
	assert.Equal(t, runtime.NumCPU(), ConcurrencyOnePerCore().workerCount(false))
}

func TestConcurrencyOneEachTwoCoreNeverZero(t *testing.T) {
	n := ConcurrencyOneEachTwoCore().workerCount(false)
	assert.GreaterOrEqual(t, n, 1)
}

func TestConcurrencyFixedClampsBelowOne(t *testing.T) {
	assert.Equal(t, 1, ConcurrencyFixed(0).workerCount(false))
	assert.Equal(t, 1, ConcurrencyFixed(-3).workerCount(false))
	assert.Equal(t, 7, ConcurrencyFixed(7).workerCount(false))
}

func TestConcurrencyUnlimitedIsSingleDispatchLoop(t *testing.T) {
	assert.Equal(t, 1, ConcurrencyUnlimited().workerCount(false))
	assert.True(t, ConcurrencyUnlimited().unlimited(false))
}

func TestConcurrencyAutomaticFollowsValueSize(t *testing.T) {
	c := ConcurrencyAutomatic()

	assert.True(t, c.unlimited(true))
	assert.False(t, c.unlimited(false))
	assert.Equal(t, runtime.NumCPU(), c.workerCount(false))
}
