package suppression

import (
	"context"
	"errors"

	"github.com/tuck1s/sparkySuppress/internal/pkg/logger"
	"github.com/tuck1s/sparkySuppress/internal/sparkpost"
)

// Upserter sends one batched write to the remote suppression list.
// *sparkpost.Client satisfies this.
type Upserter interface {
	UpsertSuppressions(ctx context.Context, entries []sparkpost.SuppressionEntry) error
}

// RecipientDeleter removes one recipient from the remote suppression list.
// *sparkpost.Client satisfies this.
type RecipientDeleter interface {
	DeleteSuppression(ctx context.Context, recipient string) error
}

// wireEntries converts a batch to its wire representation.
func wireEntries(batch []Record) []sparkpost.SuppressionEntry {
	entries := make([]sparkpost.SuppressionEntry, len(batch))
	for i, rec := range batch {
		entries[i] = sparkpost.SuppressionEntry{
			Recipient:   rec.Recipient,
			Type:        rec.Type,
			Description: rec.Description,
		}
	}
	return entries
}

// NoopAction exercises validation without touching remote state. Used by
// check.
type NoopAction struct{}

// Name implements Action
func (NoopAction) Name() string { return "check" }

// Apply implements Action
func (NoopAction) Apply(ctx context.Context, batch []Record) (int, error) {
	return 0, nil
}

// UpsertAction writes each batch with a single PUT. A rejected batch is
// split in half and each half retried independently, isolating the
// offending subset; a rejected batch of one is logged and contributes zero.
type UpsertAction struct {
	Client Upserter
}

// Name implements Action
func (u *UpsertAction) Name() string { return "update" }

// Apply implements Action. The divide-and-conquer runs over an explicit
// span stack so pathological batch sizes cannot exhaust the call stack.
func (u *UpsertAction) Apply(ctx context.Context, batch []Record) (int, error) {
	entries := wireEntries(batch)

	type span struct{ lo, hi int }
	stack := []span{{0, len(entries)}}
	done := 0

	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.lo >= s.hi {
			continue
		}

		err := u.Client.UpsertSuppressions(ctx, entries[s.lo:s.hi])
		if err == nil {
			done += s.hi - s.lo
			continue
		}

		var apiErr *sparkpost.APIError
		if !errors.As(err, &apiErr) {
			// Transport-level failure: fatal for the run
			return done, err
		}

		if s.hi-s.lo == 1 {
			logger.Warn("recipient rejected by suppression list",
				"recipient", logger.RedactEmail(entries[s.lo].Recipient),
				"status", apiErr.Status,
				"body", apiErr.Body)
			continue
		}

		// Lower half pushed last so CSV order is preserved
		mid := s.lo + (s.hi-s.lo)/2
		logger.Info("batch rejected, splitting",
			"size", s.hi-s.lo, "status", apiErr.Status)
		stack = append(stack, span{mid, s.hi}, span{s.lo, mid})
	}

	return done, nil
}

// DeleteAction removes each record with its own call, dispatched through a
// bounded pool. The full batch is sliced into pool-sized sub-batches which
// run strictly sequentially.
type DeleteAction struct {
	Pool *DeletePool
}

// Name implements Action
func (d *DeleteAction) Name() string { return "delete" }

// Apply implements Action
func (d *DeleteAction) Apply(ctx context.Context, batch []Record) (int, error) {
	total := 0
	size := d.Pool.Size()
	for lo := 0; lo < len(batch); lo += size {
		hi := lo + size
		if hi > len(batch) {
			hi = len(batch)
		}
		n, err := d.Pool.Dispatch(ctx, batch[lo:hi])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
