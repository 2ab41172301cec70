package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customError "github.com/swissconsulthub/intake-engine/pkg/errors"

	"github.com/swissconsulthub/intake-engine/internal/storage"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewStore(storage.NewRedisSessionStore(client), time.Hour)
	return NewService(NewEngine(testConfig()), store)
}

func TestService_SimulateOverwritesPreviousSnapshot(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Simulate(ctx, "sess-1", Input{Amount: decimal.NewFromInt(10000), DurationMonths: 36})
	require.NoError(t, err)

	_, err = svc.Simulate(ctx, "sess-1", Input{Amount: decimal.NewFromInt(20000), DurationMonths: 48})
	require.NoError(t, err)

	// At most one live snapshot: only the latest survives.
	snapshot, err := svc.LastSnapshot(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, snapshot.Amount.Equal(decimal.NewFromInt(20000)))
	assert.Equal(t, 48, snapshot.DurationMonths)
}

func TestService_LastSnapshotMissing(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.LastSnapshot(context.Background(), "sess-unknown")
	assert.ErrorIs(t, err, customError.ErrSnapshotNotFound)
}

func TestService_ResetClearsSnapshot(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Simulate(ctx, "sess-1", Input{Amount: decimal.NewFromInt(10000), DurationMonths: 36})
	require.NoError(t, err)

	require.NoError(t, svc.Reset(ctx, "sess-1"))

	_, err = svc.LastSnapshot(ctx, "sess-1")
	assert.ErrorIs(t, err, customError.ErrSnapshotNotFound)
}

func TestService_SessionsAreIsolated(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Simulate(ctx, "sess-a", Input{Amount: decimal.NewFromInt(10000), DurationMonths: 36})
	require.NoError(t, err)

	_, err = svc.LastSnapshot(ctx, "sess-b")
	assert.ErrorIs(t, err, customError.ErrSnapshotNotFound)
}
