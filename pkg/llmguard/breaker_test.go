package llmguard_test

import (
	"testing"
	"time"

	"github.com/chessannotate/core/pkg/llmguard"
	"github.com/stretchr/testify/assert"
)

func TestBreakerStartsClosedAndAllows(t *testing.T) {
	b := llmguard.NewDefault()
	assert.Equal(t, llmguard.Closed, b.State())
	assert.True(t, b.Allow())
}

func TestBreakerTripsAfterFailureThreshold(t *testing.T) {
	b := llmguard.NewDefault()
	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	assert.Equal(t, llmguard.Open, b.State())
	assert.False(t, b.Allow())
}

func TestBreakerDoesNotTripBelowThreshold(t *testing.T) {
	b := llmguard.NewDefault()
	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	assert.Equal(t, llmguard.Closed, b.State())
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := llmguard.NewDefault()
	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	b.RecordSuccess()
	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	assert.Equal(t, llmguard.Closed, b.State())
}

func TestBreakerHalfOpensAfterResetTimeoutAndCloses(t *testing.T) {
	params := llmguard.DefaultParams
	params.ResetTimeout = 1 * time.Millisecond
	b := llmguard.New(params)

	for i := 0; i < params.FailureThreshold; i++ {
		b.RecordFailure()
	}
	require := assert.New(t)
	require.Equal(llmguard.Open, b.State())

	time.Sleep(2 * time.Millisecond)
	require.True(b.Allow())
	require.Equal(llmguard.HalfOpen, b.State())

	b.RecordSuccess()
	b.RecordSuccess()
	require.Equal(llmguard.Closed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	params := llmguard.DefaultParams
	params.ResetTimeout = 1 * time.Millisecond
	b := llmguard.New(params)

	for i := 0; i < params.FailureThreshold; i++ {
		b.RecordFailure()
	}
	time.Sleep(2 * time.Millisecond)
	b.Allow()
	assert.Equal(t, llmguard.HalfOpen, b.State())

	b.RecordFailure()
	assert.Equal(t, llmguard.Open, b.State())
}
