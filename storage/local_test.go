package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

// exerciseStorage runs the shared contract against any backend
func exerciseStorage(t *testing.T, s Storage) {
	ctx := context.Background()

	path, err := s.Upload(ctx, "dos-0000beef", strings.NewReader(`{"v":1}`))
	require.NoError(t, err)
	assert.Contains(t, path, "dos-0000beef.json")

	rc, err := s.Download(ctx, "dos-0000beef")
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, readAll(t, rc))

	_, err = s.Upload(ctx, "dos-0000beef", strings.NewReader(`{"v":2}`))
	require.NoError(t, err)
	rc, err = s.Download(ctx, "dos-0000beef")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, readAll(t, rc))

	_, err = s.Upload(ctx, "dos-0000cafe", strings.NewReader(`{}`))
	require.NoError(t, err)

	keys, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"dos-0000beef", "dos-0000cafe"}, keys)

	require.NoError(t, s.Delete(ctx, "dos-0000beef"))
	require.NoError(t, s.Delete(ctx, "dos-0000beef"))

	_, err = s.Download(ctx, "dos-0000beef")
	assert.ErrorIs(t, err, ErrNotFound)

	keys, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"dos-0000cafe"}, keys)
}

func TestLocalStorage(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	exerciseStorage(t, s)
}

func TestLocalStorage_KeysCannotEscapeBasePath(t *testing.T) {
	base := t.TempDir()
	s, err := NewLocalStorage(filepath.Join(base, "store"))
	require.NoError(t, err)

	path, err := s.Upload(context.Background(), "../escape", strings.NewReader("x"))
	require.NoError(t, err)
	assert.NotContains(t, path, "/")

	_, err = os.Stat(filepath.Join(base, "escape.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorage_ListIgnoresForeignFiles(t *testing.T) {
	base := t.TempDir()
	s, err := NewLocalStorage(base)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(base, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(base, "sub.json"), 0755))

	keys, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestNewStorage(t *testing.T) {
	s, err := NewStorage(StorageConfig{Type: StorageTypeLocal, LocalPath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	_, err = NewStorage(StorageConfig{Type: StorageTypeS3})
	assert.Error(t, err)

	_, err = NewStorage(StorageConfig{Type: StorageTypeRedis})
	assert.Error(t, err)

	_, err = NewStorage(StorageConfig{Type: "ftp"})
	assert.Error(t, err)
}
