package suppression

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuck1s/sparkySuppress/internal/sparkpost"
)

// fakeDeleter counts calls and fails configured recipients.
type fakeDeleter struct {
	calls    atomic.Int64
	inFlight atomic.Int64
	maxSeen  atomic.Int64
	delay    time.Duration

	mu     sync.Mutex
	failed map[string]error
}

func (f *fakeDeleter) DeleteSuppression(ctx context.Context, recipient string) error {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		max := f.maxSeen.Load()
		if cur <= max || f.maxSeen.CompareAndSwap(max, cur) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.calls.Add(1)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failed[recipient]; ok {
		return err
	}
	return nil
}

func newPool(t *testing.T, d RecipientDeleter, size int, joinTimeout time.Duration) *DeletePool {
	t.Helper()
	sessions := make([]RecipientDeleter, size)
	for i := range sessions {
		sessions[i] = d
	}
	pool, err := NewDeletePool(sessions, joinTimeout)
	require.NoError(t, err)
	return pool
}

func TestDeletePool_AllSucceed(t *testing.T) {
	d := &fakeDeleter{}
	pool := newPool(t, d, 4, 0)

	done, err := pool.Dispatch(context.Background(), batchOf("a@x.com", "b@x.com", "c@x.com"))
	require.NoError(t, err)
	assert.Equal(t, 3, done)
	assert.EqualValues(t, 3, d.calls.Load())
}

func TestDeletePool_RejectsOversizedSubBatch(t *testing.T) {
	pool := newPool(t, &fakeDeleter{}, 2, 0)

	_, err := pool.Dispatch(context.Background(), batchOf("a@x.com", "b@x.com", "c@x.com"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds pool size")
}

func TestDeletePool_APIFailureCountedNotFatal(t *testing.T) {
	d := &fakeDeleter{failed: map[string]error{
		"b@x.com": &sparkpost.APIError{Status: 404, Body: "recipient could not be found"},
	}}
	pool := newPool(t, d, 4, 0)

	done, err := pool.Dispatch(context.Background(), batchOf("a@x.com", "b@x.com", "c@x.com"))
	require.NoError(t, err)
	assert.Equal(t, 2, done)
}

func TestDeletePool_NonJSONErrorBodyTolerated(t *testing.T) {
	d := &fakeDeleter{failed: map[string]error{
		"b@x.com": &sparkpost.APIError{Status: 502, Body: "<html>Bad Gateway</html>"},
	}}
	pool := newPool(t, d, 2, 0)

	done, err := pool.Dispatch(context.Background(), batchOf("a@x.com", "b@x.com"))
	require.NoError(t, err)
	assert.Equal(t, 1, done)
}

func TestDeletePool_TransportErrorIsFatal(t *testing.T) {
	d := &fakeDeleter{failed: map[string]error{
		"b@x.com": errors.New("dial tcp: connection refused"),
	}}
	pool := newPool(t, d, 4, 0)

	done, err := pool.Dispatch(context.Background(), batchOf("a@x.com", "b@x.com", "c@x.com"))
	require.Error(t, err)
	// Successful workers are still counted before the fatal propagates
	assert.Equal(t, 2, done)
}

func TestDeletePool_ConcurrencyBoundedByPool(t *testing.T) {
	d := &fakeDeleter{delay: 20 * time.Millisecond}
	pool := newPool(t, d, 3, time.Minute)

	action := &DeleteAction{Pool: pool}
	done, err := action.Apply(context.Background(), batchOf(
		"a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com", "f@x.com", "g@x.com"))
	require.NoError(t, err)
	assert.Equal(t, 7, done)
	// Sub-batches are strictly sequential, so in-flight never exceeds the pool
	assert.LessOrEqual(t, d.maxSeen.Load(), int64(3))
}

func TestDeletePool_JoinTimeout(t *testing.T) {
	d := &fakeDeleter{delay: 200 * time.Millisecond}
	pool := newPool(t, d, 2, 20*time.Millisecond)

	_, err := pool.Dispatch(context.Background(), batchOf("a@x.com", "b@x.com"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestNewDeletePool_NeedsSessions(t *testing.T) {
	_, err := NewDeletePool(nil, 0)
	require.Error(t, err)
}
