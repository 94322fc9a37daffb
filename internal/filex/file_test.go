package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	return func() { _ = os.Chdir(old) }
}

func TestEnsureDataDir_RelativeResolvesAgainstCWD(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	got, err := EnsureDataDir(filepath.Join("data", "deadletters"))
	require.NoError(t, err)

	want := filepath.Join(tmp, "data", "deadletters")
	gotEval, _ := filepath.EvalSymlinks(got)
	wantEval, _ := filepath.EvalSymlinks(want)
	require.Equal(t, wantEval, gotEval)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm()&0o700)
	}
}

func TestEnsureDataDir_AbsoluteAndIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "jetstream")

	first, err := EnsureDataDir(dir)
	require.NoError(t, err)
	require.Equal(t, dir, first)

	second, err := EnsureDataDir(dir)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEnsureDataDir_FailsIfFileWithSameNameExists(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "store")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o660))

	_, err := EnsureDataDir(path)
	require.Error(t, err, "should fail when a file exists with the same name")
}
