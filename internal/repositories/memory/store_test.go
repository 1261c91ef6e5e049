package memory

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepstack/attempt-engine/internal/cache"
	"github.com/prepstack/attempt-engine/internal/models"
)

func newStore() (*Store, cache.BlobStore) {
	blobs := cache.NewMemoryBlobStore()
	return NewStore(blobs, slog.New(slog.NewTextHandler(io.Discard, nil))), blobs
}

func TestSaveInProgress_ReplacesPerTest(t *testing.T) {
	store, _ := newStore()
	ctx := context.Background()

	first := &models.TestAttempt{ID: models.InProgressAttemptID("t1"), TestID: "t1", CurrentIndex: 1}
	second := &models.TestAttempt{ID: models.InProgressAttemptID("t1"), TestID: "t1", CurrentIndex: 5}

	require.NoError(t, store.Attempt().SaveInProgress(ctx, first))
	require.NoError(t, store.Attempt().SaveInProgress(ctx, second))

	all, err := store.Attempt().ListInProgress(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 5, all[0].CurrentIndex)
}

func TestGetInProgress_Missing(t *testing.T) {
	store, _ := newStore()
	_, err := store.Attempt().GetInProgress(context.Background(), "none")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendCompleted_DeduplicatesByID(t *testing.T) {
	store, _ := newStore()
	ctx := context.Background()

	attempt := &models.TestAttempt{ID: "a1", TestID: "t1", Status: models.AttemptCompleted}
	require.NoError(t, store.Attempt().AppendCompleted(ctx, attempt))
	require.NoError(t, store.Attempt().AppendCompleted(ctx, attempt))

	history, err := store.Attempt().ListCompleted(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestLibraryUpsert_LastWriteWins(t *testing.T) {
	store, _ := newStore()
	ctx := context.Background()

	newer := &models.LibraryItem{
		ID:         "newer",
		QuestionID: "q1",
		Type:       models.LibrarySaved,
		UpdatedAt:  time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
	}
	older := &models.LibraryItem{
		ID:         "older",
		QuestionID: "q1",
		Type:       models.LibrarySaved,
		UpdatedAt:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, store.Library().Upsert(ctx, newer))
	require.NoError(t, store.Library().Upsert(ctx, older))

	kept, err := store.Library().Get(ctx, newer.Key())
	require.NoError(t, err)
	assert.Equal(t, "newer", kept.ID)
}

func TestPendingUploads_FIFOAndDedupe(t *testing.T) {
	store, _ := newStore()
	ctx := context.Background()

	for _, id := range []string{"u1", "u2", "u1"} {
		require.NoError(t, store.PendingUpload().Enqueue(ctx, &models.PendingUpload{ID: id}))
	}

	pending, err := store.PendingUpload().List(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "u1", pending[0].ID)
	assert.Equal(t, "u2", pending[1].ID)

	require.NoError(t, store.PendingUpload().Remove(ctx, "u1"))
	pending, err = store.PendingUpload().List(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "u2", pending[0].ID)
}

func TestRehydrate_RestoresStateAcrossRestart(t *testing.T) {
	store, blobs := newStore()
	ctx := context.Background()

	require.NoError(t, store.Attempt().SaveInProgress(ctx, &models.TestAttempt{
		ID:      models.InProgressAttemptID("t1"),
		TestID:  "t1",
		Answers: map[string]int{"q1": 2},
		Status:  models.AttemptInProgress,
	}))
	require.NoError(t, store.Attempt().AppendCompleted(ctx, &models.TestAttempt{
		ID: "a1", TestID: "t2", Status: models.AttemptCompleted,
	}))
	require.NoError(t, store.Library().Upsert(ctx, &models.LibraryItem{
		ID: "lib-1", QuestionID: "q1", Type: models.LibraryWrong,
	}))
	require.NoError(t, store.PendingUpload().Enqueue(ctx, &models.PendingUpload{ID: "u1"}))

	// simulate a process restart over the same blob store
	reborn := NewStore(blobs, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, reborn.Rehydrate(ctx))

	snap, err := reborn.Attempt().GetInProgress(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"q1": 2}, snap.Answers)

	history, err := reborn.Attempt().ListCompleted(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	item, err := reborn.Library().Get(ctx, models.LibraryKey{QuestionID: "q1", Type: models.LibraryWrong})
	require.NoError(t, err)
	assert.Equal(t, "lib-1", item.ID)

	pending, err := reborn.PendingUpload().List(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestRehydrate_EmptyBlobStoreIsFine(t *testing.T) {
	store, _ := newStore()
	assert.NoError(t, store.Rehydrate(context.Background()))
}
