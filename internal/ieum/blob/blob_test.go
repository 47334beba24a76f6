package blob

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	blobopts "github.com/kart-io/ieum/pkg/options/blob"
)

func newLocal(t *testing.T) *LocalStore {
	t.Helper()
	opts := blobopts.NewOptions()
	opts.Backend = blobopts.BackendLocal
	opts.BaseDir = t.TempDir()

	s, err := NewLocalStore(opts)
	require.NoError(t, err)
	return s
}

func TestLocalStore_Lifecycle(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureContainer(ctx, "history"))

	url, err := s.Upload(ctx, "history", "회의록.pdf", strings.NewReader("v1"), true)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "file://"))
	assert.Equal(t, s.URL("history", "회의록.pdf"), url)

	ok, err := s.Exists(ctx, "history", "회의록.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.Upload(ctx, "history", "회의록.pdf", strings.NewReader("v2"), true)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.Download(ctx, "history", "회의록.pdf", &buf))
	assert.Equal(t, "v2", buf.String())

	infos, err := s.List(ctx, "history")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "회의록.pdf", infos[0].Name)
	assert.Equal(t, int64(2), infos[0].Size)

	require.NoError(t, s.Delete(ctx, "history", "회의록.pdf"))
	ok, err = s.Exists(ctx, "history", "회의록.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStore_NoOverwrite(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureContainer(ctx, "style"))

	_, err := s.Upload(ctx, "style", "t.docx", strings.NewReader("a"), false)
	require.NoError(t, err)
	_, err = s.Upload(ctx, "style", "t.docx", strings.NewReader("b"), false)
	assert.ErrorIs(t, err, ErrObjectExists)
}

func TestLocalStore_Missing(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Delete(ctx, "history", "none.pdf"), ErrObjectNotExist)
	assert.ErrorIs(t, s.Download(ctx, "history", "none.pdf", &bytes.Buffer{}), ErrObjectNotExist)

	infos, err := s.List(ctx, "history")
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestValidateName(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	_, err := s.Upload(ctx, "history", "../escape.txt", strings.NewReader("x"), true)
	assert.Error(t, err)
	_, err = s.Upload(ctx, "..", "a.txt", strings.NewReader("x"), true)
	assert.Error(t, err)
	assert.Error(t, s.EnsureContainer(ctx, "a/b"))
}

func TestPublicURL(t *testing.T) {
	opts := blobopts.NewOptions()
	opts.BaseDir = t.TempDir()
	opts.PublicBaseURL = "https://files.example.com/"

	s, err := NewLocalStore(opts)
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/history/a%20b.pdf", s.URL("history", "a b.pdf"))
}

func TestNew_UnknownBackend(t *testing.T) {
	opts := blobopts.NewOptions()
	opts.Backend = "s3"
	_, err := New(context.Background(), opts)
	assert.Error(t, err)
}

func TestLocalStore_Close(t *testing.T) {
	var s ObjectStore = newLocal(t)
	assert.NoError(t, s.Close())
}
