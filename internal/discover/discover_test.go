package discover

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pyOnly = Options{Extensions: []string{".py"}}

func TestDiscoverPythonFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "tables.py", "def get(): pass")
	writeFile(t, dir, "columns/metadata.py", "def list_(): pass")
	// Non-Python file should be ignored
	writeFile(t, dir, "readme.txt", "hello")

	entries, err := Files(dir, pyOnly)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join("columns", "metadata.py"), "tables.py"}, paths(entries))
}

func TestDiscoverSkipsUnderscoreFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "_internal.py", "pass")
	writeFile(t, dir, "__init__.py", "pass")
	writeFile(t, dir, "endpoints.py", "pass")
	writeFile(t, dir, "sub/_private.py", "pass")
	writeFile(t, dir, "sub/endpoints.py", "pass")

	entries, err := Files(dir, pyOnly)
	require.NoError(t, err)

	assert.Equal(t, []string{"endpoints.py", filepath.Join("sub", "endpoints.py")}, paths(entries))
}

func TestDiscoverSortedByPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "b.py", "pass")
	writeFile(t, dir, "a/z.py", "pass")
	writeFile(t, dir, "a.py", "pass")

	entries, err := Files(dir, pyOnly)
	require.NoError(t, err)

	got := paths(entries)
	assert.True(t, slices.IsSorted(got), "not sorted: %v", got)
	assert.Len(t, got, 3)
}

func TestDiscoverKeepsToolAndHiddenDirsByDefault(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "endpoints.py", "pass")
	writeFile(t, dir, "env/tables.py", "pass")
	writeFile(t, dir, "venv/columns.py", "pass")
	writeFile(t, dir, ".hidden/roles.py", "pass")
	writeFile(t, dir, ".dotfile.py", "pass")

	entries, err := Files(dir, pyOnly)
	require.NoError(t, err)
	assert.Equal(t, []string{
		".dotfile.py",
		filepath.Join(".hidden", "roles.py"),
		"endpoints.py",
		filepath.Join("env", "tables.py"),
		filepath.Join("venv", "columns.py"),
	}, paths(entries))
}

func TestDiscoverPrune(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "main.py", "pass")
	writeFile(t, dir, "node_modules/pkg.py", "pass")
	writeFile(t, dir, "__pycache__/cached.py", "pass")
	writeFile(t, dir, "venv/lib.py", "pass")
	writeFile(t, dir, ".hidden/secret.py", "pass")
	writeFile(t, dir, ".dotfile.py", "pass")

	entries, err := Files(dir, Options{Extensions: []string{".py"}, Prune: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.py"}, paths(entries))
}

func TestDiscoverExtensions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "main.py", "pass")
	writeFile(t, dir, "stubs.pyi", "pass")

	entries, err := Files(dir, Options{Extensions: []string{".py", ".pyi"}})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = Files(dir, Options{Extensions: []string{".rb"}})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiscoverExclude(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "tables.py", "pass")
	writeFile(t, dir, "legacy/old.py", "pass")
	writeFile(t, dir, "schemas_test.py", "pass")

	entries, err := Files(dir, Options{
		Extensions: []string{".py"},
		Exclude:    []string{"legacy/", "*_test.py"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"tables.py"}, paths(entries))
}

func TestDiscoverRespectGitignoreFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "generated.py\n")
	writeFile(t, dir, "generated.py", "pass")
	writeFile(t, dir, "tables.py", "pass")

	entries, err := Files(dir, Options{Extensions: []string{".py"}, RespectGitignore: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"tables.py"}, paths(entries))

	entries, err = Files(dir, pyOnly)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestDiscoverSymlinks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "real.py", "pass")

	err := os.Symlink(filepath.Join(dir, "real.py"), filepath.Join(dir, "link.py"))
	if err != nil {
		t.Skip("symlinks not supported")
	}
	// Dangling links are never returned.
	require.NoError(t, os.Symlink(filepath.Join(dir, "gone.py"), filepath.Join(dir, "dangling.py")))

	entries, err := Files(dir, pyOnly)
	require.NoError(t, err)
	assert.Equal(t, []string{"link.py", "real.py"}, paths(entries))

	entries, err = Files(dir, Options{Extensions: []string{".py"}, Prune: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"real.py"}, paths(entries))
}

func TestDiscoverRootNotFound(t *testing.T) {
	t.Parallel()

	_, err := Files(filepath.Join(t.TempDir(), "missing"), pyOnly)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRootNotFound))
}

func TestDiscoverRootIsFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "tables.py", "pass")

	_, err := Files(filepath.Join(dir, "tables.py"), pyOnly)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRootNotFound))
}

func TestAllRestartable(t *testing.T) {
	t.Parallel()

	entries := []FileEntry{{Path: "a.py"}, {Path: "b.py"}}
	seq := All(entries)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, []string{"a.py", "b.py"}, first)
	assert.Equal(t, first, second)
}

func paths(entries []FileEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
