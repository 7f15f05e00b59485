package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRunMarker(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	marker, err := NewRunMarker(mr.Addr(), "", 0, time.Hour)
	require.NoError(t, err)
	_, isRedis := marker.(*redisRunMarker)
	require.True(t, isRedis)

	done, err := marker.IsDone(ctx, "2024-03-10")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, marker.MarkDone(ctx, "2024-03-10"))
	done, err = marker.IsDone(ctx, "2024-03-10")
	require.NoError(t, err)
	assert.True(t, done)

	assert.True(t, mr.Exists("autocheckout:done:2024-03-10"))
	assert.Equal(t, time.Hour, mr.TTL("autocheckout:done:2024-03-10"))

	mr.FastForward(2 * time.Hour)
	done, err = marker.IsDone(ctx, "2024-03-10")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestRedisRunMarkerErrorsWhenServerGone(t *testing.T) {
	mr := miniredis.RunT(t)
	marker, err := NewRunMarker(mr.Addr(), "", 0, time.Hour)
	require.NoError(t, err)

	mr.Close()
	_, err = marker.IsDone(context.Background(), "2024-03-10")
	assert.Error(t, err)
}

func TestNewRunMarkerFallsBackToMemory(t *testing.T) {
	marker, err := NewRunMarker("", "", 0, 0)
	require.NoError(t, err)
	_, isMemory := marker.(*memoryRunMarker)
	assert.True(t, isMemory)

	marker, err = NewRunMarker("127.0.0.1:1", "", 0, time.Hour)
	assert.Error(t, err)
	_, isMemory = marker.(*memoryRunMarker)
	assert.True(t, isMemory)
}

func TestMemoryRunMarker(t *testing.T) {
	ctx := context.Background()
	m := newMemoryRunMarker(time.Hour)

	done, _ := m.IsDone(ctx, "2024-03-10")
	assert.False(t, done)

	require.NoError(t, m.MarkDone(ctx, "2024-03-10"))
	done, _ = m.IsDone(ctx, "2024-03-10")
	assert.True(t, done)

	done, _ = m.IsDone(ctx, "2024-03-11")
	assert.False(t, done)

	m.done["2024-03-09"] = time.Now().Add(-time.Minute)
	done, _ = m.IsDone(ctx, "2024-03-09")
	assert.False(t, done)
}
