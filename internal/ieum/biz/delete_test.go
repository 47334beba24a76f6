package biz

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/ieum/internal/ieum/store"
	"github.com/kart-io/ieum/pkg/utils/errors"
)

func TestDeleter_RemovesBlobAndEntries(t *testing.T) {
	blobs := newBlobs(t)
	index := store.NewMemoryIndex(testDim)
	ctx := context.Background()

	require.NoError(t, blobs.EnsureContainer(ctx, "history"))
	_, err := blobs.Upload(ctx, "history", "0301.pdf", strings.NewReader("pdf"), true)
	require.NoError(t, err)
	seed(t, index,
		store.Document{ID: "a0", Title: "0301.pdf", Category: "history", Content: "one"},
		store.Document{ID: "a1", Title: "0301.pdf", Category: "history", Content: "two"},
		store.Document{ID: "b0", Title: "0302.pdf", Category: "history", Content: "three"},
	)

	report, err := NewDeleter(blobs, index).Delete(ctx, "0301.pdf", CategoryHistory)
	require.NoError(t, err)

	assert.True(t, report.BlobDeleted)
	assert.Equal(t, 2, report.EntriesFound)
	assert.Equal(t, int64(2), report.EntriesDeleted)
	assert.Equal(t, 1, index.Len())

	ok, err := blobs.Exists(ctx, "history", "0301.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleter_MissingBlobIsNotAnError(t *testing.T) {
	index := store.NewMemoryIndex(testDim)
	seed(t, index, store.Document{ID: "a0", Title: "gone.pdf", Category: "history", Content: "x"})

	report, err := NewDeleter(newBlobs(t), index).Delete(context.Background(), "gone.pdf", CategoryHistory)
	require.NoError(t, err)
	assert.False(t, report.BlobDeleted)
	assert.Equal(t, int64(1), report.EntriesDeleted)
	assert.Zero(t, index.Len())
}

func TestDeleter_NothingToDelete(t *testing.T) {
	report, err := NewDeleter(newBlobs(t), store.NewMemoryIndex(testDim)).Delete(context.Background(), "none.pdf", CategoryReference)
	require.NoError(t, err)
	assert.False(t, report.BlobDeleted)
	assert.Zero(t, report.EntriesFound)
}

func TestDeleter_StepsAreIndependent(t *testing.T) {
	ctx := context.Background()

	t.Run("index failure still deletes blob", func(t *testing.T) {
		blobs := newBlobs(t)
		require.NoError(t, blobs.EnsureContainer(ctx, "history"))
		_, err := blobs.Upload(ctx, "history", "a.pdf", strings.NewReader("pdf"), true)
		require.NoError(t, err)
		index := &failingIndex{SearchIndex: store.NewMemoryIndex(testDim), queryErr: errUpstream}

		report, err := NewDeleter(blobs, index).Delete(ctx, "a.pdf", CategoryHistory)
		assert.ErrorIs(t, err, errors.ErrDeleteFailed)
		assert.ErrorIs(t, err, errUpstream)
		assert.True(t, report.BlobDeleted)

		ok, err := blobs.Exists(ctx, "history", "a.pdf")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("blob failure still deletes entries", func(t *testing.T) {
		local := newBlobs(t)
		require.NoError(t, local.EnsureContainer(ctx, "history"))
		_, err := local.Upload(ctx, "history", "a.pdf", strings.NewReader("pdf"), true)
		require.NoError(t, err)
		index := store.NewMemoryIndex(testDim)
		seed(t, index, store.Document{ID: "a0", Title: "a.pdf", Category: "history", Content: "x"})

		report, err := NewDeleter(&failingBlobs{ObjectStore: local, deleteErr: errUpstream}, index).Delete(ctx, "a.pdf", CategoryHistory)
		assert.ErrorIs(t, err, errors.ErrDeleteFailed)
		assert.False(t, report.BlobDeleted)
		assert.Equal(t, int64(1), report.EntriesDeleted)
		assert.Zero(t, index.Len())
	})
}

func TestDeleter_RequiresFilename(t *testing.T) {
	_, err := NewDeleter(newBlobs(t), store.NewMemoryIndex(testDim)).Delete(context.Background(), "", CategoryHistory)
	assert.ErrorIs(t, err, errors.ErrInvalidRequest)
}
