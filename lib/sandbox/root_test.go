package sandbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeExecutable creates a small executable file outside any sandbox root.
func writeExecutable(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool")
	require.NoError(t, os.WriteFile(path, []byte(content), 0755))
	return path
}

func TestNewRoot_Unique(t *testing.T) {
	a, err := NewRoot()
	require.NoError(t, err)
	defer a.Close()

	b, err := NewRoot()
	require.NoError(t, err)
	defer b.Close()

	assert.NotEqual(t, a.Path(), b.Path())
	assert.DirExists(t, a.Path())
	assert.DirExists(t, b.Path())
}

func TestRoot_Close(t *testing.T) {
	root, err := NewRoot()
	require.NoError(t, err)
	path := root.Path()

	require.NoError(t, root.Close())
	assert.NoDirExists(t, path)

	// Idempotent
	require.NoError(t, root.Close())
}

func TestStageCommand_AbsolutePath(t *testing.T) {
	src := writeExecutable(t, "#!/bin/sh\necho hi\n")

	root, err := NewRoot()
	require.NoError(t, err)
	defer root.Close()

	staged, err := root.StageCommand(src)
	require.NoError(t, err)

	// The staged copy sits strictly under the root at the source's
	// root-relative path.
	assert.True(t, strings.HasPrefix(staged, root.Path()+string(os.PathSeparator)))
	assert.Equal(t, filepath.Join(root.Path(), strings.TrimPrefix(src, "/")), staged)

	content, err := os.ReadFile(staged)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\necho hi\n", string(content))

	info, err := os.Stat(staged)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o111, "exec bit must survive staging")
}

func TestStageCommand_TraversalClamped(t *testing.T) {
	src := writeExecutable(t, "#!/bin/sh\n")

	root, err := NewRoot()
	require.NoError(t, err)
	defer root.Close()

	// A hostile relative path must not place the copy outside the root.
	t.Chdir("/")
	staged, err := root.StageCommand("../../" + strings.TrimPrefix(src, "/"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(staged, root.Path()+string(os.PathSeparator)))
}

func TestStageCommand_MissingSource(t *testing.T) {
	root, err := NewRoot()
	require.NoError(t, err)
	defer root.Close()

	_, err = root.StageCommand("/nonexistent/definitely/missing")
	require.Error(t, err)
}

func TestCreateDevNull(t *testing.T) {
	root, err := NewRoot()
	require.NoError(t, err)
	defer root.Close()

	require.NoError(t, root.CreateDevNull())

	info, err := os.Stat(filepath.Join(root.Path(), "dev", "null"))
	require.NoError(t, err)
	assert.Zero(t, info.Mode().Perm()&0o222, "dev/null must not be writable")

	info, err = os.Stat(filepath.Join(root.Path(), "dev"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Zero(t, info.Mode().Perm()&0o222, "dev must not be writable")
}

func TestNopIsolator(t *testing.T) {
	iso := NewNop()
	assert.NoError(t, iso.EnterRoot("/anywhere"))
	assert.NoError(t, iso.UnsharePID())
}
