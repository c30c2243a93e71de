package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureParentDir(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "data", "nested", "docverify.db")

	require.NoError(t, EnsureParentDir(path))
	fi, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	require.True(t, fi.IsDir())
	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm()&0o700)
	}

	require.NoError(t, EnsureParentDir(path), "idempotent")
	require.NoError(t, EnsureParentDir("docverify.db"), "bare file name needs nothing")
}

func TestReadFile(t *testing.T) {
	tmp := t.TempDir()
	pdf := filepath.Join(tmp, "cert.PDF")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4 body"), 0o600))

	f, err := ReadFile(pdf, 0)
	require.NoError(t, err)
	assert.Equal(t, "cert.PDF", f.Name)
	assert.Equal(t, "application/pdf", f.ContentType)
	assert.Equal(t, []byte("%PDF-1.4 body"), f.Data)
}

func TestReadFile_SniffsUnknownExtension(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "scan.bin1")
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	require.NoError(t, os.WriteFile(p, png, 0o600))

	f, err := ReadFile(p, 0)
	require.NoError(t, err)
	assert.Equal(t, "image/png", f.ContentType)
}

func TestReadFile_Limit(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "big.jpg")
	require.NoError(t, os.WriteFile(p, make([]byte, 2048), 0o600))

	_, err := ReadFile(p, 1024)
	assert.ErrorIs(t, err, ErrTooLarge)

	f, err := ReadFile(p, 2048)
	require.NoError(t, err)
	assert.Len(t, f.Data, 2048)

	_, err = ReadFile(filepath.Join(tmp, "missing.png"), 0)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
