package dualwrite

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/remote"
	"github.com/starford/inkwell/internal/storage"
	"github.com/starford/inkwell/internal/table"
)

const (
	tablePath  = "data/keywords.csv"
	contentDir = "content/blog"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newCoordinator(t *testing.T, mode Mode, withLocal bool, mem *remote.Memory) (*Coordinator, *storage.FS) {
	t.Helper()
	var fs *storage.FS
	var local storage.Provider
	if withLocal {
		var err error
		fs, err = storage.NewFS(t.TempDir())
		require.NoError(t, err)
		local = fs
	}
	var rem remote.Store
	if mem != nil {
		rem = mem
	}
	c, err := New(Config{Mode: mode, TablePath: tablePath, ContentDir: contentDir}, local, rem, quietLogger())
	require.NoError(t, err)
	return c, fs
}

func records(keywords ...string) []models.KeywordRecord {
	out := make([]models.KeywordRecord, len(keywords))
	for i, k := range keywords {
		out[i] = models.KeywordRecord{Keyword: k, Status: models.StatusQueued}
	}
	return out
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Mode: ModeLocal, TablePath: tablePath}, nil, nil, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = New(Config{Mode: ModeRemote, TablePath: tablePath}, nil, nil, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = New(Config{Mode: "both", TablePath: tablePath}, nil, remote.NewMemory(), nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLoadTable_MissingIsEmpty(t *testing.T) {
	c, _ := newCoordinator(t, ModeLocal, true, nil)
	tbl, err := c.LoadTable(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tbl.Records)

	c, _ = newCoordinator(t, ModeRemote, false, remote.NewMemory())
	tbl, err = c.LoadTable(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tbl.Records)
	assert.Empty(t, tbl.Revision)
}

func TestLoadTable_Malformed(t *testing.T) {
	mem := remote.NewMemory()
	mem.Seed(tablePath, []byte("status,stage\nqueued,TOFU\n"))
	c, _ := newCoordinator(t, ModeRemote, false, mem)
	_, err := c.LoadTable(context.Background())
	assert.ErrorIs(t, err, apperr.ErrMalformedTable)
}

func TestCommitTable_LocalModeWritesBoth(t *testing.T) {
	ctx := context.Background()
	mem := remote.NewMemory()
	mem.Seed(tablePath, []byte("keyword\nstale\n"))
	c, fs := newCoordinator(t, ModeLocal, true, mem)

	out, err := c.CommitTable(ctx, records("seo"), "", "add seo")
	require.NoError(t, err)
	assert.True(t, out.Local)
	assert.True(t, out.Remote)
	assert.False(t, out.Partial())

	want, _ := table.Encode(records("seo"))
	got, err := fs.Read(tablePath)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	blob, err := mem.Fetch(ctx, tablePath)
	require.NoError(t, err)
	assert.Equal(t, want, blob.Content)
	assert.Equal(t, blob.Revision, out.Revision)
	assert.Equal(t, "add seo", mem.Commits()[1].Message)
}

func TestCommitTable_LocalModeRemoteFailureIsWarning(t *testing.T) {
	ctx := context.Background()
	mem := remote.NewMemory()
	mem.Fail(remote.OpPut)
	c, fs := newCoordinator(t, ModeLocal, true, mem)

	out, err := c.CommitTable(ctx, records("seo"), "", "add seo")
	require.NoError(t, err)
	assert.True(t, out.Partial())
	assert.True(t, out.Local)
	assert.False(t, out.Remote)
	assert.Contains(t, out.Warning, "remote sync failed")

	_, err = fs.Read(tablePath)
	assert.NoError(t, err, "local write must stand")
	assert.Empty(t, mem.Commits())
}

func TestCommitTable_LocalOnly(t *testing.T) {
	c, _ := newCoordinator(t, ModeLocal, true, nil)
	out, err := c.CommitTable(context.Background(), records("seo"), "", "add seo")
	require.NoError(t, err)
	assert.True(t, out.Local)
	assert.False(t, out.Partial())
	assert.False(t, c.HasRemote())
}

func TestCommitTable_RemoteModeFailureIsFatalButLocalStays(t *testing.T) {
	ctx := context.Background()
	mem := remote.NewMemory()
	mem.Fail(remote.OpPut)
	c, fs := newCoordinator(t, ModeRemote, true, mem)

	out, err := c.CommitTable(ctx, records("seo"), "", "add seo")
	require.ErrorIs(t, err, apperr.ErrRemoteUnavailable)
	assert.ErrorContains(t, err, LocalAheadWarning)
	assert.True(t, out.Local)
	assert.False(t, out.Remote)
	assert.Equal(t, LocalAheadWarning, out.Warning)

	_, err = fs.Read(tablePath)
	assert.NoError(t, err, "already-applied local write stays")
}

func TestCommitTable_RemoteModeFailureWithoutMirror(t *testing.T) {
	mem := remote.NewMemory()
	mem.Fail(remote.OpPut)
	c, _ := newCoordinator(t, ModeRemote, false, mem)

	out, err := c.CommitTable(context.Background(), records("seo"), "", "add seo")
	require.ErrorIs(t, err, apperr.ErrRemoteUnavailable)
	assert.NotContains(t, err.Error(), LocalAheadWarning)
	assert.False(t, out.Partial())
}

func TestDeleteArtifact_RemoteModeFailureReportsLocalMirror(t *testing.T) {
	ctx := context.Background()
	mem := remote.NewMemory()
	p := contentDir + "/seo-tips.md"
	rev := mem.Seed(p, []byte("# SEO Tips"))
	c, fs := newCoordinator(t, ModeRemote, true, mem)
	require.NoError(t, fs.Write(p, []byte("# SEO Tips")))
	mem.Fail(remote.OpDelete)

	out, err := c.DeleteArtifact(ctx, ArtifactRef{Name: "seo-tips.md", Path: p, Revision: rev}, "delete seo-tips")
	require.ErrorIs(t, err, apperr.ErrRemoteUnavailable)
	assert.ErrorContains(t, err, LocalAheadWarning)
	assert.True(t, out.Local)
	assert.Equal(t, rev, mem.Revision(p))
}

func TestCommitTable_RemoteModeStaleRevision(t *testing.T) {
	ctx := context.Background()
	mem := remote.NewMemory()
	mem.Seed(tablePath, []byte("keyword\nseo\n"))
	c, _ := newCoordinator(t, ModeRemote, false, mem)

	tbl, err := c.LoadTable(ctx)
	require.NoError(t, err)

	// Another writer commits in between.
	current, err := mem.Put(ctx, tablePath, []byte("keyword\nseo\nppc\n"), tbl.Revision, "concurrent")
	require.NoError(t, err)

	_, err = c.CommitTable(ctx, records("seo", "mine"), tbl.Revision, "add mine")
	require.ErrorIs(t, err, apperr.ErrRevisionConflict)
	assert.True(t, apperr.Retryable(err))
	assert.Equal(t, current, mem.Revision(tablePath))
}

func TestArtifacts_ListReadDelete_Remote(t *testing.T) {
	ctx := context.Background()
	mem := remote.NewMemory()
	rev := mem.Seed(contentDir+"/seo-tips.md", []byte("# SEO Tips"))
	mem.Seed(contentDir+"/drafts/wip.md", []byte("wip"))
	c, _ := newCoordinator(t, ModeRemote, false, mem)

	refs, err := c.ListArtifacts(ctx)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, ArtifactRef{Name: "seo-tips.md", Path: contentDir + "/seo-tips.md", Revision: rev}, refs[0])

	data, gotRev, err := c.ReadArtifact(ctx, refs[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "# SEO Tips", string(data))
	assert.Equal(t, rev, gotRev)

	stale := refs[0]
	stale.Revision = "0000"
	_, err = c.DeleteArtifact(ctx, stale, "delete")
	require.ErrorIs(t, err, apperr.ErrRevisionConflict)

	out, err := c.DeleteArtifact(ctx, refs[0], "delete seo-tips")
	require.NoError(t, err)
	assert.True(t, out.Remote)
	refs, err = c.ListArtifacts(ctx)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestArtifacts_LocalModeDelete(t *testing.T) {
	ctx := context.Background()
	mem := remote.NewMemory()
	c, fs := newCoordinator(t, ModeLocal, true, mem)
	require.NoError(t, fs.Write(contentDir+"/a.md", []byte("# A")))
	require.NoError(t, fs.Write(contentDir+"/b.html", []byte("<h1>B</h1>")))
	require.NoError(t, fs.Write(contentDir+"/nested/c.md", []byte("# C")))
	mem.Seed(contentDir+"/a.md", []byte("# A remote"))

	refs, err := c.ListArtifacts(ctx)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "a.md", refs[0].Name)

	out, err := c.DeleteArtifact(ctx, refs[0], "delete a")
	require.NoError(t, err)
	assert.True(t, out.Local)
	assert.True(t, out.Remote, "local mode deletes the remote copy at its current revision")
	assert.Empty(t, mem.Revision(contentDir+"/a.md"))

	// Only local has b; the remote side is a no-op.
	out, err = c.DeleteArtifact(ctx, refs[1], "delete b")
	require.NoError(t, err)
	assert.True(t, out.Local)
	assert.False(t, out.Partial())

	_, err = c.DeleteArtifact(ctx, refs[1], "delete b again")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestArtifacts_LocalModeRemoteDeleteFailureIsWarning(t *testing.T) {
	ctx := context.Background()
	mem := remote.NewMemory()
	c, fs := newCoordinator(t, ModeLocal, true, mem)
	require.NoError(t, fs.Write(contentDir+"/a.md", []byte("# A")))
	mem.Seed(contentDir+"/a.md", []byte("# A"))
	mem.Fail(remote.OpDelete)

	refs, err := c.ListArtifacts(ctx)
	require.NoError(t, err)
	out, err := c.DeleteArtifact(ctx, refs[0], "delete a")
	require.NoError(t, err)
	assert.True(t, out.Partial())
	assert.NotEmpty(t, mem.Revision(contentDir+"/a.md"))
}
