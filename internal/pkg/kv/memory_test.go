package kv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySetGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", "1", 0))
	v, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	v, err = m.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestMemoryTTLExpiry(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Now()
	m.SetClock(func() time.Time { return now })

	require.NoError(t, m.Set(ctx, "a", "1", time.Minute))

	v, _ := m.Get(ctx, "a")
	assert.Equal(t, "1", v)

	now = now.Add(time.Minute)
	v, _ = m.Get(ctx, "a")
	assert.Equal(t, "", v)
}

func TestMemoryIncr(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	n, err := m.Incr(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, _ = m.Incr(ctx, "c")
	assert.Equal(t, int64(2), n)
}

func TestMemoryIncrAfterExpiry(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Now()
	m.SetClock(func() time.Time { return now })

	_, _ = m.Incr(ctx, "c")
	require.NoError(t, m.Expire(ctx, "c", time.Hour))

	now = now.Add(2 * time.Hour)
	n, err := m.Incr(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "expired counter restarts from zero")
}

func TestMemoryDel(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_ = m.Set(ctx, "a", "1", 0)
	_ = m.Set(ctx, "b", "2", 0)
	require.NoError(t, m.Del(ctx, "a", "b", "missing"))
	assert.Equal(t, 0, m.Len())
}

func TestMemorySweep(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Now()
	m.SetClock(func() time.Time { return now })

	_ = m.Set(ctx, "short", "1", time.Minute)
	_ = m.Set(ctx, "long", "2", time.Hour)
	_ = m.Set(ctx, "forever", "3", 0)

	now = now.Add(30 * time.Minute)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 2, m.Len())
}
