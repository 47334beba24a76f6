package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPool(t *testing.T) {
	p, err := NewPool("test", DefaultPoolConfig())
	require.NoError(t, err)
	defer p.Release()

	assert.Equal(t, "test", p.Name())
	assert.Equal(t, 1000, p.Cap())
}

func TestNewPool_InvalidCapacity(t *testing.T) {
	_, err := NewPool("bad", &Config{Capacity: 0})
	assert.Error(t, err)
}

func TestPoolSubmit(t *testing.T) {
	p, err := NewPool("test", EmbeddingPoolConfig(10))
	require.NoError(t, err)
	defer p.Release()

	var counter atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		if err := p.Submit(func() {
			defer wg.Done()
			counter.Add(1)
		}); err != nil {
			wg.Done()
			t.Errorf("submit failed: %v", err)
		}
	}
	wg.Wait()

	assert.Equal(t, int32(100), counter.Load())
}

func TestPoolMap(t *testing.T) {
	p, err := NewPool("map", EmbeddingPoolConfig(3))
	require.NoError(t, err)
	defer p.Release()

	var running, peak atomic.Int32
	errs := p.Map(context.Background(), 10, func(_ context.Context, i int) error {
		n := running.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		if i == 4 {
			return errors.New("boom")
		}
		return nil
	})

	require.Len(t, errs, 10)
	for i, err := range errs {
		if i == 4 {
			assert.EqualError(t, err, "boom")
		} else {
			assert.NoError(t, err)
		}
	}
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestPoolMap_Panic(t *testing.T) {
	p, err := NewPool("panic", EmbeddingPoolConfig(2))
	require.NoError(t, err)
	defer p.Release()

	errs := p.Map(context.Background(), 2, func(_ context.Context, i int) error {
		if i == 1 {
			panic("bad batch")
		}
		return nil
	})
	assert.NoError(t, errs[0])
	assert.ErrorContains(t, errs[1], "panicked")
}

func TestPoolMap_Canceled(t *testing.T) {
	p, err := NewPool("cancel", EmbeddingPoolConfig(1))
	require.NoError(t, err)
	defer p.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	errs := p.Map(ctx, 3, func(context.Context, int) error { return nil })
	for _, err := range errs {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestPoolRelease(t *testing.T) {
	p, err := NewPool("release", EmbeddingPoolConfig(1))
	require.NoError(t, err)

	p.Release()
	p.Release()
	assert.ErrorIs(t, p.Submit(func() {}), ErrPoolClosed)
}
