package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiskStoreUploadDownload(t *testing.T) {
	store := NewDiskStore(t.TempDir())

	err := store.Upload("bot_scripts/team/abc.py", strings.NewReader("print('hi')"), "text/x-python")
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "bot.py")
	require.NoError(t, store.Download("bot_scripts/team/abc.py", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "print('hi')", string(data))
}

func TestDiskStoreDownloadMissingKey(t *testing.T) {
	store := NewDiskStore(t.TempDir())

	err := store.Download("nope/missing.py", filepath.Join(t.TempDir(), "out"))
	require.Error(t, err)
}
