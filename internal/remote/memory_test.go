package remote

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/checksum"
)

func TestMemory_PutFetchRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	rev, err := m.Put(ctx, "data/keywords.csv", []byte("keyword\n"), "", "create table")
	require.NoError(t, err)
	assert.Equal(t, checksum.GitBlob([]byte("keyword\n")), rev)

	blob, err := m.Fetch(ctx, "data/keywords.csv")
	require.NoError(t, err)
	assert.Equal(t, "keyword\n", string(blob.Content))
	assert.Equal(t, rev, blob.Revision)

	commits := m.Commits()
	require.Len(t, commits, 1)
	assert.Equal(t, "create table", commits[0].Message)
}

func TestMemory_StaleRevisionConflicts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	first := m.Seed("t.csv", []byte("a"))
	second, err := m.Put(ctx, "t.csv", []byte("b"), first, "update")
	require.NoError(t, err)

	_, err = m.Put(ctx, "t.csv", []byte("c"), first, "stale update")
	require.ErrorIs(t, err, apperr.ErrRevisionConflict)
	var ce *apperr.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, first, ce.ExpectedRevision)
	assert.Equal(t, second, ce.CurrentRevision)
	assert.Equal(t, second, m.Revision("t.csv"), "conflict must not change the remote")
	assert.Len(t, m.Commits(), 2)
}

func TestMemory_CreateOverExistingConflicts(t *testing.T) {
	m := NewMemory()
	m.Seed("t.csv", []byte("a"))
	_, err := m.Put(context.Background(), "t.csv", []byte("b"), "", "create")
	assert.ErrorIs(t, err, apperr.ErrRevisionConflict)
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	rev := m.Seed("content/blog/a.md", []byte("# A"))

	err := m.Delete(ctx, "content/blog/a.md", "", "no rev")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	err = m.Delete(ctx, "content/blog/a.md", "deadbeef", "wrong rev")
	assert.ErrorIs(t, err, apperr.ErrRevisionConflict)

	require.NoError(t, m.Delete(ctx, "content/blog/a.md", rev, "delete a"))
	_, err = m.Fetch(ctx, "content/blog/a.md")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = m.Delete(ctx, "content/blog/a.md", rev, "again")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemory_ListDirectChildrenSorted(t *testing.T) {
	m := NewMemory()
	m.Seed("content/blog/zeta.md", []byte("z"))
	m.Seed("content/blog/alpha.mdx", []byte("a"))
	m.Seed("content/blog/nested/deep.md", []byte("d"))
	m.Seed("content/other.md", []byte("o"))

	entries, err := m.List(context.Background(), "content/blog")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "alpha.mdx", entries[0].Name)
	assert.Equal(t, "content/blog/zeta.md", entries[1].Path)

	_, err = m.List(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemory_FailureInjection(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Fail(OpPut)

	_, err := m.Put(ctx, "t.csv", []byte("x"), "", "msg")
	require.ErrorIs(t, err, apperr.ErrRemoteUnavailable)
	assert.True(t, apperr.Retryable(err))
	assert.Empty(t, m.Commits())

	m.Recover()
	_, err = m.Put(ctx, "t.csv", []byte("x"), "", "msg")
	assert.NoError(t, err)
}
