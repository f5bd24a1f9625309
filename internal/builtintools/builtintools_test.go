package builtintools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgeloop/agentcore/internal/tools"
)

func newRegistryAt(t *testing.T, root string) *tools.Registry {
	t.Helper()
	registry := tools.NewRegistry()
	require.NoError(t, Register(registry, root))
	return registry
}

func TestRegisterInstallsAllSixTools(t *testing.T) {
	registry := newRegistryAt(t, t.TempDir())
	names := []string{"read_file", "write_file", "edit_file", "list_directory", "search_files", "run_shell"}
	for _, n := range names {
		_, err := registry.Lookup(n)
		require.NoError(t, err, n)
	}
}

func TestReadFileReturnsContents(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))
	registry := newRegistryAt(t, dir)

	d, _ := registry.Lookup("read_file")
	out, err := d.Handler(context.Background(), map[string]any{"path": "a.txt"})
	require.NoError(t, err)
	require.Equal(t, "hello", out)
}

func TestWriteFileCreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	registry := newRegistryAt(t, dir)

	d, _ := registry.Lookup("write_file")
	_, err := d.Handler(context.Background(), map[string]any{"path": "nested/out.txt", "content": "data"})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "nested", "out.txt"))
	require.NoError(t, err)
	require.Equal(t, "data", string(data))
}

func TestEditFileReplacesFirstOccurrence(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("foo foo"), 0o644))
	registry := newRegistryAt(t, dir)

	d, _ := registry.Lookup("edit_file")
	_, err := d.Handler(context.Background(), map[string]any{"path": "a.txt", "old_text": "foo", "new_text": "bar"})
	require.NoError(t, err)

	data, _ := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.Equal(t, "bar foo", string(data))
}

func TestEditFileErrorsWhenOldTextAbsent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("foo"), 0o644))
	registry := newRegistryAt(t, dir)

	d, _ := registry.Lookup("edit_file")
	_, err := d.Handler(context.Background(), map[string]any{"path": "a.txt", "old_text": "missing", "new_text": "x"})
	require.Error(t, err)
}

func TestListDirectorySuffixesDirectoriesAndSorts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "zdir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "afile"), []byte(""), 0o644))
	registry := newRegistryAt(t, dir)

	d, _ := registry.Lookup("list_directory")
	out, err := d.Handler(context.Background(), map[string]any{})
	require.NoError(t, err)
	require.Equal(t, "afile\nzdir/", out)
}

func TestSearchFilesFindsMatchingLine(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\nfunc Foo() {}\n"), 0o644))
	registry := newRegistryAt(t, dir)

	d, _ := registry.Lookup("search_files")
	out, err := d.Handler(context.Background(), map[string]any{"query": "func Foo"})
	require.NoError(t, err)
	require.Contains(t, out, "a.go:2:func Foo() {}")
}

func TestSearchFilesReportsNoMatches(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n"), 0o644))
	registry := newRegistryAt(t, dir)

	d, _ := registry.Lookup("search_files")
	out, err := d.Handler(context.Background(), map[string]any{"query": "nonexistent"})
	require.NoError(t, err)
	require.Equal(t, "no matches", out)
}

func TestRunShellReturnsOutput(t *testing.T) {
	dir := t.TempDir()
	registry := newRegistryAt(t, dir)

	d, _ := registry.Lookup("run_shell")
	out, err := d.Handler(context.Background(), map[string]any{"command": "echo hi"})
	require.NoError(t, err)
	require.Contains(t, out, "hi")
}

func TestRunShellRejectsDangerousCommands(t *testing.T) {
	dir := t.TempDir()
	registry := newRegistryAt(t, dir)
	d, _ := registry.Lookup("run_shell")

	for _, cmd := range []string{"rm -rf /", "sudo rm -rf /tmp", "mkfs.ext4 /dev/sda1", "dd if=/dev/zero of=/dev/sda", "shutdown -h now"} {
		_, err := d.Handler(context.Background(), map[string]any{"command": cmd})
		require.Error(t, err, cmd)
	}
}

func TestRunShellAllowsOrdinaryRmInsideWorkspace(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.txt"), []byte(""), 0o644))
	registry := newRegistryAt(t, dir)
	d, _ := registry.Lookup("run_shell")

	_, err := d.Handler(context.Background(), map[string]any{"command": "rm scratch.txt"})
	require.NoError(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "scratch.txt"))
	require.True(t, os.IsNotExist(statErr))
}
