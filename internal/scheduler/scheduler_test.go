package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/jarvis/internal/assistant"
	"github.com/xaenox/jarvis/internal/responder"
	"github.com/xaenox/jarvis/internal/storage"
)

func TestScheduler_RunsOnStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := storage.NewMemoryStorage()
	svc := assistant.New(store, responder.NewLocalResponder(), assistant.Config{}, zap.NewNop())

	sched := New(svc, "5 0 * * *", zap.NewNop())
	require.NoError(t, sched.Start(ctx))
	defer sched.Stop()

	stats, err := store.ListStats(ctx)
	require.NoError(t, err)
	assert.Len(t, stats, 4)
}

func TestScheduler_InvalidScheduleFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := storage.NewMemoryStorage()
	svc := assistant.New(store, responder.NewLocalResponder(), assistant.Config{}, zap.NewNop())

	sched := New(svc, "not a schedule", zap.NewNop())
	assert.Error(t, sched.Start(ctx))
}
