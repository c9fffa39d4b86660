package suppression

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tuck1s/sparkySuppress/internal/pkg/logger"
	"github.com/tuck1s/sparkySuppress/internal/sparkpost"
)

// DeletePool runs delete calls across a fixed set of client sessions, one
// concurrent call per record. The sessions are owned by the pool for its
// whole lifetime and sized once at construction; a session is never shared
// between two in-flight calls.
type DeletePool struct {
	sessions    []RecipientDeleter
	joinTimeout time.Duration
}

// NewDeletePool creates a pool over the given sessions. joinTimeout bounds
// the wait for a dispatched sub-batch and should be modestly longer than the
// per-call network timeout.
func NewDeletePool(sessions []RecipientDeleter, joinTimeout time.Duration) (*DeletePool, error) {
	if len(sessions) == 0 {
		return nil, errors.New("delete pool needs at least one session")
	}
	if joinTimeout <= 0 {
		joinTimeout = 90 * time.Second
	}
	return &DeletePool{sessions: sessions, joinTimeout: joinTimeout}, nil
}

// Size returns the number of sessions, which is also the largest sub-batch
// Dispatch accepts.
func (p *DeletePool) Size() int { return len(p.sessions) }

// Dispatch issues one concurrent delete per record and joins them all before
// returning. Each call embeds its own rate-limit retry, so one throttled
// record does not block the others beyond its own retries. A call that does
// not come back "deleted" is counted as a failure and logged with whatever
// diagnostic the remote sent; a transport-level failure is fatal.
func (p *DeletePool) Dispatch(ctx context.Context, batch []Record) (int, error) {
	if len(batch) > len(p.sessions) {
		return 0, fmt.Errorf("sub-batch of %d exceeds pool size %d", len(batch), len(p.sessions))
	}

	var deleted int64
	fatals := make([]error, len(batch))

	var wg sync.WaitGroup
	for i := range batch {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := batch[i]
			err := p.sessions[i].DeleteSuppression(ctx, rec.Recipient)
			if err == nil {
				atomic.AddInt64(&deleted, 1)
				return
			}
			var apiErr *sparkpost.APIError
			if errors.As(err, &apiErr) {
				// Body may not be JSON; logged verbatim
				logger.Warn("delete failed",
					"recipient", logger.RedactEmail(rec.Recipient),
					"status", apiErr.Status,
					"body", apiErr.Body)
				return
			}
			fatals[i] = err
		}(i)
	}

	joined := make(chan struct{})
	go func() {
		wg.Wait()
		close(joined)
	}()

	select {
	case <-joined:
	case <-time.After(p.joinTimeout):
		return int(atomic.LoadInt64(&deleted)), fmt.Errorf("delete pool: timed out after %s waiting for %d calls", p.joinTimeout, len(batch))
	}

	for _, err := range fatals {
		if err != nil {
			return int(deleted), err
		}
	}
	return int(deleted), nil
}
