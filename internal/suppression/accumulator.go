package suppression

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action is a remote operation applied to each full batch. Apply returns the
// number of entries actually transacted, which may be less than the batch
// size on partial failure.
type Action interface {
	Name() string
	Apply(ctx context.Context, batch []Record) (int, error)
}

// Summary holds the aggregate counters for one file pass.
type Summary struct {
	RunID      uuid.UUID
	Processed  int // rows examined
	Good       int // valid, non-duplicate recipients batched
	Invalid    int // recipient failed validation
	Duplicates int // identity key already seen
	FlagsGood  int // type resolved from the row itself
	Defaulted  int // type fell back to the configured default
	Done       int // entries the remote action reports transacted
	Elapsed    time.Duration
}

// Accumulator streams normalized records through in-file deduplication into
// fixed-size batches, flushing each full batch synchronously through the
// action. The dedup set and counters belong to a single file pass and are
// not safe for concurrent use.
type Accumulator struct {
	action    Action
	batchSize int
	seen      map[identityKey]struct{}
	batch     []Record
	sum       Summary
	started   time.Time
}

// NewAccumulator creates an accumulator flushing through action every
// batchSize accepted records.
func NewAccumulator(action Action, batchSize int) *Accumulator {
	if batchSize <= 0 {
		batchSize = 10000
	}
	return &Accumulator{
		action:    action,
		batchSize: batchSize,
		seen:      make(map[identityKey]struct{}),
		batch:     make([]Record, 0, batchSize),
		sum:       Summary{RunID: uuid.New()},
		started:   time.Now(),
	}
}

// Add counts and, when the record is usable and first-seen, batches it.
// A flush error is fatal and propagated.
func (a *Accumulator) Add(ctx context.Context, rec Record, st RowStatus) error {
	a.sum.Processed++

	if !st.Valid {
		a.sum.Invalid++
		return nil
	}
	if st.Defaulted {
		a.sum.Defaulted++
	} else {
		a.sum.FlagsGood++
	}

	key := identityKey{recipient: rec.Recipient, typ: rec.Type}
	if _, dup := a.seen[key]; dup {
		a.sum.Duplicates++
		return nil
	}
	a.seen[key] = struct{}{}

	a.sum.Good++
	a.batch = append(a.batch, rec)
	if len(a.batch) >= a.batchSize {
		return a.flush(ctx)
	}
	return nil
}

// Summary returns the counters so far without flushing, for reporting when
// a run aborts.
func (a *Accumulator) Summary() Summary {
	s := a.sum
	s.Elapsed = time.Since(a.started)
	return s
}

// Close flushes any remaining partial batch and returns the final summary.
func (a *Accumulator) Close(ctx context.Context) (Summary, error) {
	err := a.flush(ctx)
	a.sum.Elapsed = time.Since(a.started)
	return a.sum, err
}

func (a *Accumulator) flush(ctx context.Context) error {
	if len(a.batch) == 0 {
		return nil
	}
	done, err := a.action.Apply(ctx, a.batch)
	a.sum.Done += done
	a.batch = a.batch[:0]
	return err
}
