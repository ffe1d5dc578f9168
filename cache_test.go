package menulens

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultCache_Do(t *testing.T) {
	c, err := NewResultCache(4)
	require.NoError(t, err)

	var calls int
	fn := func(context.Context) (any, error) {
		calls++
		return "menu text", nil
	}

	v, hit, err := c.Do(context.Background(), "ocr:zh:abc", fn)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "menu text", v)

	v, hit, err = c.Do(context.Background(), "ocr:zh:abc", fn)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "menu text", v)
	assert.Equal(t, 1, calls)
}

func TestResultCache_ErrorsNotCached(t *testing.T) {
	c, err := NewResultCache(4)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, _, err = c.Do(context.Background(), "k", func(context.Context) (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	v, hit, err := c.Do(context.Background(), "k", func(context.Context) (any, error) { return 42, nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 42, v)
}

func TestResultCache_Eviction(t *testing.T) {
	c, err := NewResultCache(2)
	require.NoError(t, err)

	c.Put("a", 1)
	c.Put("b", 2)
	_, ok := c.Get("a") // a becomes most recent
	require.True(t, ok)
	c.Put("c", 3)

	assert.Equal(t, 2, c.Len())
	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestResultCache_EntryMetadata(t *testing.T) {
	c, err := NewResultCache(0)
	require.NoError(t, err)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Put(CacheKey(ModeOCR, "zh", "fp"), "text")
	e, ok := c.Get("ocr:zh:fp")
	require.True(t, ok)
	assert.Equal(t, now, e.InsertedAt)
	assert.Equal(t, "text", e.Result)
}

func TestResultCache_Nil(t *testing.T) {
	var c *ResultCache
	var calls int
	for i := 0; i < 2; i++ {
		v, hit, err := c.Do(context.Background(), "k", func(context.Context) (any, error) { calls++; return "x", nil })
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, "x", v)
	}
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, c.Len())
	c.Put("k", 1)
	c.Purge()
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestResultCache_ConcurrentMissesShareCall(t *testing.T) {
	c, err := NewResultCache(4)
	require.NoError(t, err)

	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := c.Do(context.Background(), "same", fn)
			assert.NoError(t, err)
			assert.Equal(t, "v", v)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestResultCache_CallerCancelDoesNotFailSharedCall(t *testing.T) {
	c, err := NewResultCache(4)
	require.NoError(t, err)

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	var fnErr atomic.Value
	fn := func(ctx context.Context) (any, error) {
		calls.Add(1)
		close(started)
		<-release
		fnErr.Store(fmt.Sprint(ctx.Err()))
		return "v", nil
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, _, err := c.Do(ctxA, "same", fn)
		errA <- err
	}()
	<-started

	type result struct {
		v   any
		err error
	}
	resB := make(chan result, 1)
	go func() {
		v, _, err := c.Do(context.Background(), "same", fn)
		resB <- result{v, err}
	}()

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(release)
	select {
	case r := <-resB:
		require.NoError(t, r.err)
		assert.Equal(t, "v", r.v)
	case <-time.After(time.Second):
		t.Fatal("second caller did not return")
	}

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "<nil>", fnErr.Load())
	e, ok := c.Get("same")
	require.True(t, ok)
	assert.Equal(t, "v", e.Result)
}
