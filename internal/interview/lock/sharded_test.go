package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "scholarops/pkg/domain"
	dErrors "scholarops/pkg/domain-errors"
)

func TestKey(t *testing.T) {
	interviewer := id.NewInterviewerID()
	morning := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 6, 1, 21, 30, 0, 0, time.UTC)

	assert.Equal(t, Key(interviewer, morning), Key(interviewer, evening))
	assert.Equal(t, interviewer.String()+":2026-06-01", Key(interviewer, morning))
	assert.NotEqual(t, Key(interviewer, morning), Key(interviewer, morning.AddDate(0, 0, 1)))
}

func TestShardedMutualExclusion(t *testing.T) {
	locker := NewSharded()
	key := Key(id.NewInterviewerID(), time.Now())

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Lock(context.Background(), key)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestShardedTimeout(t *testing.T) {
	locker := NewSharded(WithTimeout(20 * time.Millisecond))
	key := Key(id.NewInterviewerID(), time.Now())

	release, err := locker.Lock(context.Background(), key)
	require.NoError(t, err)
	defer release()

	_, err = locker.Lock(context.Background(), key)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
}

func TestShardedCancelledContext(t *testing.T) {
	locker := NewSharded()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := locker.Lock(ctx, "k")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
}

func TestShardedMultiKey(t *testing.T) {
	locker := NewSharded(WithTimeout(20 * time.Millisecond))
	a, b := "interviewer-a:2026-06-01", "interviewer-a:2026-06-02"

	t.Run("duplicate and colliding keys lock once", func(t *testing.T) {
		release, err := locker.Lock(context.Background(), a, a, b)
		require.NoError(t, err)
		release()
	})

	t.Run("releases partial acquisition on timeout", func(t *testing.T) {
		holdB, err := locker.Lock(context.Background(), b)
		require.NoError(t, err)

		_, err = locker.Lock(context.Background(), a, b)
		require.Error(t, err)
		holdB()

		release, err := locker.Lock(context.Background(), a)
		require.NoError(t, err, "a must be free after the failed multi-key attempt")
		release()
	})

	t.Run("opposite order does not deadlock", func(t *testing.T) {
		shared := NewSharded()
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				release, err := shared.Lock(context.Background(), a, b)
				if err == nil {
					release()
				}
			}()
			go func() {
				defer wg.Done()
				release, err := shared.Lock(context.Background(), b, a)
				if err == nil {
					release()
				}
			}()
		}
		wg.Wait()
	})
}
