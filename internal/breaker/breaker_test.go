package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	customError "github.com/swissconsulthub/intake-engine/pkg/errors"
)

var errBackendDown = errors.New("backend down")

func newTestBreaker(threshold int, cooldown time.Duration) (*Breaker, *time.Time) {
	b := New(zap.NewNop(), threshold, cooldown)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	return b, &now
}

func failing(context.Context) error    { return errBackendDown }
func succeeding(context.Context) error { return nil }

func trip(t *testing.T, b *Breaker, times int) {
	t.Helper()
	for i := 0; i < times; i++ {
		err := b.Execute(context.Background(), failing)
		require.ErrorIs(t, err, errBackendDown)
	}
}

func TestBreaker_OpensAfterThresholdFailures(t *testing.T) {
	b, _ := newTestBreaker(3, 30*time.Second)

	trip(t, b, 3)
	assert.Equal(t, StateOpen, b.State())

	// Rejected immediately, fn never invoked.
	invoked := false
	err := b.Execute(context.Background(), func(context.Context) error {
		invoked = true
		return nil
	})
	assert.ErrorIs(t, err, customError.ErrCircuitOpen)
	assert.False(t, invoked)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(3, 30*time.Second)

	trip(t, b, 2)
	require.NoError(t, b.Execute(context.Background(), succeeding))

	// Two more failures alone must not trip a threshold of three.
	trip(t, b, 2)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenProbeSuccessCloses(t *testing.T) {
	b, now := newTestBreaker(3, 30*time.Second)

	trip(t, b, 3)
	require.Equal(t, StateOpen, b.State())

	*now = now.Add(31 * time.Second)

	require.NoError(t, b.Execute(context.Background(), succeeding))
	assert.Equal(t, StateClosed, b.State())

	// Fully reset: the next failures count from zero again.
	trip(t, b, 2)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	b, now := newTestBreaker(3, 30*time.Second)

	trip(t, b, 3)
	*now = now.Add(31 * time.Second)

	err := b.Execute(context.Background(), failing)
	require.ErrorIs(t, err, errBackendDown)
	assert.Equal(t, StateOpen, b.State())

	// Cooldown restarts from the probe failure.
	*now = now.Add(10 * time.Second)
	err = b.Execute(context.Background(), succeeding)
	assert.ErrorIs(t, err, customError.ErrCircuitOpen)
}

func TestBreaker_RejectsBeforeCooldownElapses(t *testing.T) {
	b, now := newTestBreaker(2, time.Minute)

	trip(t, b, 2)

	*now = now.Add(59 * time.Second)
	err := b.Execute(context.Background(), succeeding)
	assert.ErrorIs(t, err, customError.ErrCircuitOpen)

	*now = now.Add(2 * time.Second)
	assert.NoError(t, b.Execute(context.Background(), succeeding))
}
