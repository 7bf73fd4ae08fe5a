package fileops_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratovia/cpi/pkg/extensions/fileops"
)

func newExtension(t *testing.T) *fileops.Extension {
	t.Helper()

	ext, err := fileops.NewExtension(t.TempDir())
	require.NoError(t, err)

	return ext
}

func execute(t *testing.T, ext *fileops.Extension, action string, args map[string]any) map[string]any {
	t.Helper()

	result, err := ext.Execute(context.Background(), action, args)
	require.NoError(t, err)

	envelope, ok := result.(map[string]any)
	require.True(t, ok)

	return envelope
}

func TestNewExtension_Metadata(t *testing.T) {
	ext := newExtension(t)

	assert.Equal(t, "fileops", ext.Name())
	assert.Equal(t, "command", ext.ProviderType())
	assert.Equal(t, []string{
		"delete_file", "file_exists", "list_dir", "read_file", "write_file",
	}, ext.Actions())
	assert.True(t, filepath.IsAbs(ext.BaseDir()))
}

func TestWriteReadRoundtrip(t *testing.T) {
	ext := newExtension(t)

	written := execute(t, ext, "write_file", map[string]any{
		"path":    "notes/today.txt",
		"content": "first line\n",
	})
	data, ok := written["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "notes/today.txt", data["path"])
	assert.Equal(t, len("first line\n"), data["bytes_written"])

	read := execute(t, ext, "read_file", map[string]any{"path": "notes/today.txt"})
	data, ok = read["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "first line\n", data["content"])
	assert.Equal(t, len("first line\n"), data["size"])
}

func TestWriteFile_Append(t *testing.T) {
	ext := newExtension(t)

	execute(t, ext, "write_file", map[string]any{"path": "log.txt", "content": "a"})
	execute(t, ext, "write_file", map[string]any{"path": "log.txt", "content": "b", "append": true})
	execute(t, ext, "write_file", map[string]any{"path": "log.txt", "content": "c", "append": true})

	read := execute(t, ext, "read_file", map[string]any{"path": "log.txt"})
	data, ok := read["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "abc", data["content"])

	// Without append the file is truncated.
	execute(t, ext, "write_file", map[string]any{"path": "log.txt", "content": "fresh"})

	read = execute(t, ext, "read_file", map[string]any{"path": "log.txt"})
	data, ok = read["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "fresh", data["content"])
}

func TestFileExistsAndDelete(t *testing.T) {
	ext := newExtension(t)
	ctx := context.Background()

	exists := execute(t, ext, "file_exists", map[string]any{"path": "ghost.txt"})
	assert.Equal(t, false, exists["result"])

	execute(t, ext, "write_file", map[string]any{"path": "ghost.txt", "content": "boo"})

	exists = execute(t, ext, "file_exists", map[string]any{"path": "ghost.txt"})
	assert.Equal(t, true, exists["result"])

	deleted := execute(t, ext, "delete_file", map[string]any{"path": "ghost.txt"})
	assert.Equal(t, true, deleted["success"])

	exists = execute(t, ext, "file_exists", map[string]any{"path": "ghost.txt"})
	assert.Equal(t, false, exists["result"])

	_, err := ext.Execute(ctx, "delete_file", map[string]any{"path": "ghost.txt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete 'ghost.txt'")
}

func TestListDir(t *testing.T) {
	ext := newExtension(t)

	execute(t, ext, "write_file", map[string]any{"path": "a.txt", "content": "a"})
	execute(t, ext, "write_file", map[string]any{"path": "sub/b.txt", "content": "b"})

	listing := execute(t, ext, "list_dir", nil)
	data, ok := listing["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, ".", data["path"])
	assert.Equal(t, 2, data["count"])

	entries, ok := data["entries"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.txt", entries[0]["name"])
	assert.Equal(t, false, entries[0]["is_dir"])
	assert.Equal(t, "sub", entries[1]["name"])
	assert.Equal(t, true, entries[1]["is_dir"])

	nested := execute(t, ext, "list_dir", map[string]any{"path": "sub"})
	data, ok = nested["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, data["count"])
}

func TestPathConfinement(t *testing.T) {
	ext := newExtension(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{
			name:    "parent escape",
			path:    "../outside.txt",
			wantErr: "escapes the base directory",
		},
		{
			name:    "nested escape",
			path:    "sub/../../outside.txt",
			wantErr: "escapes the base directory",
		},
		{
			name:    "absolute path",
			path:    "/etc/passwd",
			wantErr: "must be relative to the base directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, action := range []string{"read_file", "delete_file", "file_exists"} {
				_, err := ext.Execute(ctx, action, map[string]any{"path": tt.path})
				require.Error(t, err, "action %s should refuse %s", action, tt.path)
				assert.Contains(t, err.Error(), tt.wantErr)
			}

			_, err := ext.Execute(ctx, "write_file", map[string]any{"path": tt.path, "content": "x"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	// Dot-dot segments that stay inside the base are fine.
	execute(t, ext, "write_file", map[string]any{"path": "sub/../inside.txt", "content": "ok"})

	exists := execute(t, ext, "file_exists", map[string]any{"path": "inside.txt"})
	assert.Equal(t, true, exists["result"])
}

func TestInstallProbesWritability(t *testing.T) {
	ext := newExtension(t)

	result, err := ext.TestInstall(context.Background())
	require.NoError(t, err)

	report, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ok", report["status"])
	assert.Equal(t, ext.BaseDir(), report["base_dir"])

	// No probe file is left behind.
	entries, err := os.ReadDir(ext.BaseDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInstallFailsOnMissingBase(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone")

	ext, err := fileops.NewExtension(missing)
	require.NoError(t, err)

	_, err = ext.TestInstall(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not accessible")
}

func TestValidationErrors(t *testing.T) {
	ext := newExtension(t)
	ctx := context.Background()

	_, err := ext.Execute(ctx, "write_file", map[string]any{"content": "x"})
	require.Error(t, err)
	assert.Equal(t, "Required parameter 'path' not provided", err.Error())

	_, err = ext.Execute(ctx, "write_file", map[string]any{"path": "a.txt"})
	require.Error(t, err)
	assert.Equal(t, "Required parameter 'content' not provided", err.Error())

	_, err = ext.Execute(ctx, "write_file", map[string]any{"path": "a.txt", "content": "x", "append": "yes"})
	require.Error(t, err)
	assert.Equal(t, "Parameter 'append' must be a boolean", err.Error())

	_, err = ext.Execute(ctx, "read_file", map[string]any{"path": "missing.txt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read 'missing.txt'")
}
