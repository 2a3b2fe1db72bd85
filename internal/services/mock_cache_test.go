package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockCache_TTL(t *testing.T) {
	now := time.Unix(1000, 0)
	m := NewMockCache()
	m.Now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	now = now.Add(time.Minute)
	got, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, m.Keys())
}

func TestMockCache_SetNXAndHooks(t *testing.T) {
	m := NewMockCache()
	ctx := context.Background()

	ok, _ := m.SetNX(ctx, "k", "a", 0)
	assert.True(t, ok)
	ok, _ = m.SetNX(ctx, "k", "b", 0)
	assert.False(t, ok)

	exists, _ := m.Exists(ctx, "missing", "k")
	assert.True(t, exists)

	boom := errors.New("boom")
	m.GetFunc = func(ctx context.Context, key string) (string, error) { return "", boom }
	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, boom)

	m.SetPingError(boom)
	assert.ErrorIs(t, m.Ping(ctx), boom)
	m.SetPingSuccess()
	assert.NoError(t, m.Ping(ctx))
	assert.Equal(t, 2, m.PingCalls)
	assert.Len(t, m.SetCalls, 2)
}
