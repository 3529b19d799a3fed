package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{FailureThreshold: 3, RecoveryTimeout: 50 * time.Millisecond, SuccessThreshold: 2}
}

func TestBreaker_ClosedToOpen(t *testing.T) {
	b := New(testConfig())
	require.Equal(t, Closed, b.State())

	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, Closed, b.State(), "below threshold stays closed")

	b.RecordFailure()
	assert.Equal(t, Open, b.State(), "reaching the threshold opens the breaker")
	assert.False(t, b.CheckAllowed())
}

func TestBreaker_ClosedSuccessResetsFailureCount(t *testing.T) {
	b := New(testConfig())
	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	assert.Equal(t, 0, b.FailureCount())

	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_OpenToHalfOpenOnObservation(t *testing.T) {
	b := New(testConfig())
	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	require.Equal(t, Open, b.State())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, HalfOpen, b.State(), "recovery timeout elapsed, observing should transition to half_open")
	assert.True(t, b.CheckAllowed())
}

func TestBreaker_HalfOpenToClosedRequiresSuccessThreshold(t *testing.T) {
	b := New(testConfig())
	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, HalfOpen, b.State())

	b.RecordSuccess()
	assert.Equal(t, HalfOpen, b.State(), "one success is below the success threshold of 2")

	b.RecordSuccess()
	assert.Equal(t, Closed, b.State())
	assert.Equal(t, 0, b.FailureCount())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := New(testConfig())
	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, HalfOpen, b.State())

	b.RecordFailure()
	assert.Equal(t, Open, b.State())
}

func TestBreaker_Reset(t *testing.T) {
	b := New(testConfig())
	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	require.Equal(t, Open, b.State())

	b.Reset()
	assert.Equal(t, Closed, b.State())
	assert.Equal(t, 0, b.FailureCount())
	assert.True(t, b.CheckAllowed())
}

func TestBreaker_LoadStateOpenStartsRecoveryTimerFromNow(t *testing.T) {
	b := New(testConfig())
	b.LoadState(Open, 5)
	assert.Equal(t, Open, b.State(), "recovery timeout hasn't elapsed since load")
	assert.Equal(t, 5, b.FailureCount())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, HalfOpen, b.State())
}

func TestBreaker_CannotSkipClosedToHalfOpen(t *testing.T) {
	b := New(testConfig())
	b.RecordFailure()
	assert.Equal(t, Closed, b.State())
	assert.NotEqual(t, HalfOpen, b.State())
}
