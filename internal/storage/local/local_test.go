package local

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-tams/blobsweep/internal/storage/blob"
)

func writeFile(t *testing.T, base, rel, body string) {
	t.Helper()
	p := filepath.Join(base, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func listAll(t *testing.T, st *Storage, prefix string) []blob.Object {
	t.Helper()
	var out []blob.Object
	cursor := ""
	for {
		page, err := st.List(context.Background(), prefix, cursor)
		require.NoError(t, err)
		out = append(out, page.Objects...)
		if page.NextCursor == "" {
			return out
		}
		cursor = page.NextCursor
	}
}

func keysOf(objs []blob.Object) []string {
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		out = append(out, o.Key)
	}
	return out
}

func TestListWalksPrefixWithPagination(t *testing.T) {
	base := t.TempDir()
	writeFile(t, base, "chats/production/chat-a.json", "{}")
	writeFile(t, base, "chats/production/chat-b.json", "{}")
	writeFile(t, base, "chats/preview/chat-c.json", "{}")
	writeFile(t, base, "chats/preview/upload.tmp", "partial")
	writeFile(t, base, "audit/production/x.json", "{}")
	require.NoError(t, os.MkdirAll(filepath.Join(base, "chats", "development"), 0o755))

	st, err := New("local", base, 2)
	require.NoError(t, err)

	objs := listAll(t, st, "chats/")
	assert.Equal(t, []string{
		"chats/development/",
		"chats/preview/chat-c.json",
		"chats/production/chat-a.json",
		"chats/production/chat-b.json",
	}, keysOf(objs))

	assert.Zero(t, objs[0].Size)
	assert.Equal(t, int64(2), objs[1].Size)
	assert.False(t, objs[1].UploadedAt.IsZero())
}

func TestListPartialSegmentPrefix(t *testing.T) {
	base := t.TempDir()
	writeFile(t, base, "chats/production/chat-a.json", "{}")
	writeFile(t, base, "chats/preview/chat-c.json", "{}")

	st, err := New("local", base, 10)
	require.NoError(t, err)

	assert.Equal(t, []string{"chats/production/chat-a.json"}, keysOf(listAll(t, st, "chats/prod")))
	assert.Empty(t, listAll(t, st, "missing/"))
}

func TestDeleteRemovesFileAndReportsMissing(t *testing.T) {
	base := t.TempDir()
	writeFile(t, base, "audit/preview/x.json", "{}")

	st, err := New("local", base, 10)
	require.NoError(t, err)

	objs := listAll(t, st, "audit/")
	require.Len(t, objs, 1)

	require.NoError(t, st.Delete(context.Background(), objs[0].URL))
	_, err = os.Stat(filepath.Join(base, "audit", "preview", "x.json"))
	assert.True(t, os.IsNotExist(err))

	err = st.Delete(context.Background(), objs[0].URL)
	assert.True(t, errors.Is(err, blob.ErrNotFound))
}

func TestDeleteRefusesPathsOutsideBase(t *testing.T) {
	base := t.TempDir()
	st, err := New("local", base, 10)
	require.NoError(t, err)

	outside := filepath.Join(filepath.Dir(base), "elsewhere.json")
	assert.Error(t, st.Delete(context.Background(), "file://"+filepath.ToSlash(outside)))
	assert.Error(t, st.Delete(context.Background(), "file://"+filepath.ToSlash(base)))
	assert.Error(t, st.Delete(context.Background(), "mem://x"))
}

func TestDeleteEmptyDirectoryMarker(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "uploads", "tmp"), 0o755))

	st, err := New("local", base, 10)
	require.NoError(t, err)

	objs := listAll(t, st, "")
	require.Equal(t, []string{"uploads/tmp/"}, keysOf(objs))
	require.NoError(t, st.Delete(context.Background(), objs[0].URL))

	_, err = os.Stat(filepath.Join(base, "uploads", "tmp"))
	assert.True(t, os.IsNotExist(err))
}
