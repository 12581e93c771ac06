package cache

import (
	"context"
	"testing"
	"time"

	"wearable-analytics/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeKVStore 内存版 KV，替代 Redis
type fakeKVStore struct {
	data map[string]string
}

func newFakeKVStore() *fakeKVStore {
	return &fakeKVStore{data: make(map[string]string)}
}

func (f *fakeKVStore) Get(ctx context.Context, key string) (string, error) {
	val, ok := f.data[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return val, nil
}

func (f *fakeKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	f.data[key] = value
	return nil
}

func TestSummaryCache_RoundTrip(t *testing.T) {
	kv := newFakeKVStore()
	c := NewSummaryCache(kv, time.Hour, zap.NewNop())
	ctx := context.Background()

	avgHR := 82.5
	run := &models.RunSummary{
		RunID:       "run-1",
		Trigger:     "stream",
		SessionsIn:  2,
		WindowCount: 40,
	}
	summaries := []models.SessionSummary{
		{SessionID: "s1", SubjectID: "S01", SessionType: models.SessionTypeStress, AvgHR: &avgHR, WindowCount: 20},
	}

	require.NoError(t, c.CacheRunResults(ctx, run, summaries))

	gotRun, err := c.GetLatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", gotRun.RunID)
	assert.Equal(t, 40, gotRun.WindowCount)

	gotSummary, err := c.GetSessionSummary(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "S01", gotSummary.SubjectID)
	require.NotNil(t, gotSummary.AvgHR)
	assert.Equal(t, 82.5, *gotSummary.AvgHR)
}

func TestSummaryCache_Miss(t *testing.T) {
	c := NewSummaryCache(newFakeKVStore(), time.Hour, zap.NewNop())
	ctx := context.Background()

	_, err := c.GetSessionSummary(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	_, err = c.GetLatestRun(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)
}
