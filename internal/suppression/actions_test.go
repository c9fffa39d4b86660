package suppression

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuck1s/sparkySuppress/internal/sparkpost"
)

// fakeUpserter rejects any batch containing a recipient from the reject set.
type fakeUpserter struct {
	reject map[string]bool
	calls  [][]string
	err    error // overrides the APIError when set
}

func (f *fakeUpserter) UpsertSuppressions(ctx context.Context, entries []sparkpost.SuppressionEntry) error {
	recips := make([]string, len(entries))
	bad := false
	for i, e := range entries {
		recips[i] = e.Recipient
		if f.reject[e.Recipient] {
			bad = true
		}
	}
	f.calls = append(f.calls, recips)
	if !bad {
		return nil
	}
	if f.err != nil {
		return f.err
	}
	return &sparkpost.APIError{Status: 400, Body: `{"errors":[{"message":"bad recipient"}]}`}
}

func batchOf(recips ...string) []Record {
	batch := make([]Record, len(recips))
	for i, r := range recips {
		batch[i] = Record{Recipient: r, Type: "non_transactional"}
	}
	return batch
}

func TestNoopAction(t *testing.T) {
	done, err := NoopAction{}.Apply(context.Background(), batchOf("a@x.com", "b@x.com"))
	require.NoError(t, err)
	assert.Equal(t, 0, done)
}

func TestUpsertAction_CleanBatchSingleCall(t *testing.T) {
	f := &fakeUpserter{}
	u := &UpsertAction{Client: f}

	done, err := u.Apply(context.Background(), batchOf("a@x.com", "b@x.com", "c@x.com"))
	require.NoError(t, err)
	assert.Equal(t, 3, done)
	assert.Len(t, f.calls, 1)
}

func TestUpsertAction_BisectionIsolatesOneBadRecord(t *testing.T) {
	f := &fakeUpserter{reject: map[string]bool{"c@x.com": true}}
	u := &UpsertAction{Client: f}

	done, err := u.Apply(context.Background(), batchOf("a@x.com", "b@x.com", "c@x.com", "d@x.com"))
	require.NoError(t, err)
	assert.Equal(t, 3, done)

	// [abcd] fail → [ab] ok → [cd] fail → [c] fail → [d] ok
	require.Len(t, f.calls, 5)
	assert.Equal(t, []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com"}, f.calls[0])
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, f.calls[1])
	assert.Equal(t, []string{"c@x.com", "d@x.com"}, f.calls[2])
	assert.Equal(t, []string{"c@x.com"}, f.calls[3])
	assert.Equal(t, []string{"d@x.com"}, f.calls[4])
}

func TestUpsertAction_HalfBatchFailureCountsHalf(t *testing.T) {
	// Batch of 4 where the whole upper half is bad: done must be 2,
	// not 4 and not 0.
	f := &fakeUpserter{reject: map[string]bool{"c@x.com": true, "d@x.com": true}}
	u := &UpsertAction{Client: f}

	done, err := u.Apply(context.Background(), batchOf("a@x.com", "b@x.com", "c@x.com", "d@x.com"))
	require.NoError(t, err)
	assert.Equal(t, 2, done)
}

func TestUpsertAction_SplitPreservesSuccessCount(t *testing.T) {
	recips := []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com", "f@x.com", "g@x.com"}
	for _, bad := range recips {
		f := &fakeUpserter{reject: map[string]bool{bad: true}}
		u := &UpsertAction{Client: f}
		done, err := u.Apply(context.Background(), batchOf(recips...))
		require.NoError(t, err)
		assert.Equal(t, len(recips)-1, done, "bad=%s", bad)
	}
}

func TestUpsertAction_SingleRecordBatchFailure(t *testing.T) {
	f := &fakeUpserter{reject: map[string]bool{"a@x.com": true}}
	u := &UpsertAction{Client: f}

	done, err := u.Apply(context.Background(), batchOf("a@x.com"))
	require.NoError(t, err)
	assert.Equal(t, 0, done)
	assert.Len(t, f.calls, 1)
}

func TestUpsertAction_TransportErrorIsFatal(t *testing.T) {
	f := &fakeUpserter{
		reject: map[string]bool{"a@x.com": true},
		err:    errors.New("dial tcp: connection refused"),
	}
	u := &UpsertAction{Client: f}

	done, err := u.Apply(context.Background(), batchOf("a@x.com", "b@x.com"))
	require.Error(t, err)
	assert.Equal(t, 0, done)
	// No bisection on transport failure
	assert.Len(t, f.calls, 1)
}

func TestDeleteAction_SlicesIntoPoolSizedSubBatches(t *testing.T) {
	d := &fakeDeleter{}
	sessions := []RecipientDeleter{d, d}
	pool, err := NewDeletePool(sessions, 0)
	require.NoError(t, err)

	action := &DeleteAction{Pool: pool}
	done, err := action.Apply(context.Background(), batchOf("a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com"))
	require.NoError(t, err)
	assert.Equal(t, 5, done)
	assert.EqualValues(t, 5, d.calls.Load())
}
