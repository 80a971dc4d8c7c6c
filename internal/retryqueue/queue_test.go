package retryqueue

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDoer answers every request with 503 while down and 200 otherwise,
// whatever the URL, without a real listener.
type fakeDoer struct {
	down bool
}

func (d *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	if d.down {
		return &http.Response{StatusCode: http.StatusServiceUnavailable, Body: http.NoBody}, nil
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
}

func newTestQueue(t *testing.T, doer *fakeDoer) (*Queue, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "retry.jsonl")
	return New(path, doer, nil), path
}

// TestDrainRetriesThenDrainsOnRecovery exercises scenario 6: three
// entries are enqueued against a downstream that is failing; the first
// drain retries all three and increments their counters; once the
// downstream recovers, the next drain succeeds for all three and the
// queue file is left empty.
func TestDrainRetriesThenDrainsOnRecovery(t *testing.T) {
	ctx := context.Background()
	doer := &fakeDoer{down: true}
	q, path := newTestQueue(t, doer)

	for i := 0; i < 3; i++ {
		err := q.Enqueue("https://hooks.example.com/feedback", "bounce",
			map[string]any{"n": i}, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, q.Depth())

	result, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Succeeded)
	assert.Equal(t, 3, result.Retried)
	assert.Equal(t, 0, result.Dropped)
	assert.Equal(t, 3, q.Depth())

	entries, err := q.readAll()
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, 1, e.Retries)
	}

	doer.down = false
	result, err = q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Succeeded)
	assert.Equal(t, 0, result.Retried)
	assert.Equal(t, 0, result.Dropped)
	assert.Equal(t, 0, q.Depth())

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr, "drain leaves an empty (but present) queue file behind")
}

// TestDrainDropsEntryAtMaxRetries exercises the ceiling half of
// scenario 6: an entry already at Retries=9 that fails one more drain
// is dropped rather than written back, since 9+1 == MaxRetries.
func TestDrainDropsEntryAtMaxRetries(t *testing.T) {
	ctx := context.Background()
	doer := &fakeDoer{down: true}
	q, _ := newTestQueue(t, doer)

	require.NoError(t, q.Enqueue("https://hooks.example.com/feedback", "spam", nil, nil))
	entries, err := q.readAll()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	entries[0].Retries = MaxRetries - 1
	require.NoError(t, q.writeAll(entries))

	result, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Succeeded)
	assert.Equal(t, 0, result.Retried)
	assert.Equal(t, 1, result.Dropped)
	assert.Equal(t, 0, q.Depth())
}

// TestDepthOnMissingFile exercises the cold-start path: before any
// entry is ever enqueued the queue file does not exist, and Depth must
// degrade to zero rather than error.
func TestDepthOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	q := New(filepath.Join(dir, "never-written.jsonl"), &fakeDoer{}, nil)
	assert.Equal(t, 0, q.Depth())
}

// fakeLock is an in-memory DistLock that can be pre-held to simulate a
// concurrent drain elsewhere in the fleet.
type fakeLock struct {
	held bool
}

func (l *fakeLock) Acquire(ctx context.Context) (bool, error) {
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *fakeLock) Release(ctx context.Context) error {
	l.held = false
	return nil
}

// TestDrainNoOpsWhenLockHeld confirms a Drain call that loses the race
// for the distributed lock does nothing and reports a zero result
// rather than contending with the holder.
func TestDrainNoOpsWhenLockHeld(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "retry.jsonl")
	lock := &fakeLock{held: true}
	q := New(path, &fakeDoer{down: true}, lock)

	require.NoError(t, q.Enqueue("https://hooks.example.com/feedback", "bounce", nil, nil))
	result, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, DrainResult{}, result)
	assert.Equal(t, 1, q.Depth(), "entry must remain untouched when another drain holds the lock")
}
