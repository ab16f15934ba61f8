package atomicfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func listDir(t *testing.T, dir string) []string {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestWriteFile(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "dump.bin")
	content := []byte{0x7f, 'E', 'L', 'F', 0, 1, 2, 3}

	require.NoError(t, WriteFile(dst, content))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestWriteFileOverwrites(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "dump.bin")

	require.NoError(t, WriteFile(dst, []byte("first version, rather long")))
	require.NoError(t, WriteFile(dst, []byte("second")))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, []byte("second"), got)
}

func TestDiscardLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "dump.bin")

	f, err := Create(dst)
	require.NoError(t, err)
	_, err = f.Write([]byte("doomed"))
	require.NoError(t, err)
	require.NoError(t, f.Discard())

	require.Empty(t, listDir(t, dir))
}

func TestDiscardKeepsPreviousContent(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "dump.bin")
	require.NoError(t, WriteFile(dst, []byte("stable")))

	f, err := Create(dst)
	require.NoError(t, err)
	_, err = f.Write([]byte("aborted"))
	require.NoError(t, err)
	require.NoError(t, f.Discard())

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, []byte("stable"), got)
	require.Equal(t, []string{"dump.bin"}, listDir(t, dir))
}

func TestCloseTwice(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "dump.bin")

	f, err := Create(dst, WithSync())
	require.NoError(t, err)
	_, err = f.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.Error(t, f.Close())
}

func TestWithMode(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "dump.bin")

	require.NoError(t, WriteFile(dst, []byte("x"), WithMode(0o444)))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o444), info.Mode().Perm())
}
