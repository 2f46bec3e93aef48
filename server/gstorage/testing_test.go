package gstorage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "phonebook.db")
	dest := filepath.Join(dir, "restored.db")
	require.Nil(t, os.WriteFile(src, []byte("sqlite bytes"), 0600))

	ms := NewMemoryStorage()

	err := ms.DownloadFile(context.Background(), "bucket", "prefix/phonebook.db", dest)
	assert.ErrorIs(t, err, ErrObjectNotExist)

	require.Nil(t, ms.UploadFile(context.Background(), "bucket", "prefix/phonebook.db", src))
	require.Nil(t, ms.DownloadFile(context.Background(), "bucket", "prefix/phonebook.db", dest))

	data, err := os.ReadFile(dest)
	require.Nil(t, err)
	assert.Equal(t, "sqlite bytes", string(data))
}
