// Package fileops provides the built-in sandboxed file provider. Every
// path argument is resolved against a base directory; anything escaping
// the base is refused before touching the filesystem.
package fileops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stratovia/cpi/pkg/extension"
	"github.com/stratovia/cpi/pkg/models"
	"github.com/stratovia/cpi/pkg/protocol"
	"github.com/stratovia/cpi/pkg/response"
	"github.com/stratovia/cpi/pkg/validation"
)

var (
	_ protocol.Extension     = (*Extension)(nil)
	_ protocol.InstallTester = (*Extension)(nil)
)

// Extension implements the provider contract over a confined directory
// tree.
type Extension struct {
	actions *extension.ActionSet
	baseDir string
}

// NewExtension builds the provider rooted at baseDir. An empty baseDir
// means the current working directory.
func NewExtension(baseDir string) (*Extension, error) {
	if baseDir == "" {
		baseDir = "."
	}

	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory %s: %w", baseDir, err)
	}

	ext := &Extension{baseDir: abs}

	set := extension.NewActionSet()

	set.Register(models.ActionDefinition{
		Name:        "write_file",
		Description: "Write content to a file, creating parent directories as needed",
		Parameters: []models.ActionParameter{
			models.RequiredParam("path", "file path relative to the base directory", models.ParamTypeString),
			models.RequiredParam("content", "content to write", models.ParamTypeString),
			models.OptionalParamDefault("append", "append instead of truncating", models.ParamTypeBoolean, false),
		},
	}, ext.writeFile)

	set.Register(models.ActionDefinition{
		Name:        "read_file",
		Description: "Read a file's content",
		Parameters: []models.ActionParameter{
			models.RequiredParam("path", "file path relative to the base directory", models.ParamTypeString),
		},
	}, ext.readFile)

	set.Register(models.ActionDefinition{
		Name:        "delete_file",
		Description: "Delete a file",
		Parameters: []models.ActionParameter{
			models.RequiredParam("path", "file path relative to the base directory", models.ParamTypeString),
		},
	}, ext.deleteFile)

	set.Register(models.ActionDefinition{
		Name:        "file_exists",
		Description: "Report whether a file or directory exists",
		Parameters: []models.ActionParameter{
			models.RequiredParam("path", "path relative to the base directory", models.ParamTypeString),
		},
	}, ext.fileExists)

	set.Register(models.ActionDefinition{
		Name:        "list_dir",
		Description: "List a directory's entries",
		Parameters: []models.ActionParameter{
			models.OptionalParamDefault("path", "directory path relative to the base directory", models.ParamTypeString, "."),
		},
	}, ext.listDir)

	ext.actions = set

	return ext, nil
}

func (e *Extension) Name() string         { return "fileops" }
func (e *Extension) ProviderType() string { return "command" }
func (e *Extension) Actions() []string    { return e.actions.Actions() }

// BaseDir returns the absolute directory all paths are confined to.
func (e *Extension) BaseDir() string { return e.baseDir }

func (e *Extension) ActionDefinition(name string) (models.ActionDefinition, bool) {
	return e.actions.ActionDefinition(name)
}

func (e *Extension) Execute(ctx context.Context, action string, args map[string]any) (any, error) {
	return e.actions.Execute(ctx, action, args)
}

// TestInstall probes that the base directory exists and is writable.
func (e *Extension) TestInstall(ctx context.Context) (any, error) {
	info, err := os.Stat(e.baseDir)
	if err != nil {
		return nil, fmt.Errorf("base directory %s is not accessible: %w", e.baseDir, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("base path %s is not a directory", e.baseDir)
	}

	probe, err := os.CreateTemp(e.baseDir, ".cpi-probe-*")
	if err != nil {
		return nil, fmt.Errorf("base directory %s is not writable: %w", e.baseDir, err)
	}

	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)

	return map[string]any{"status": "ok", "base_dir": e.baseDir}, nil
}

// resolve confines a relative path to the base directory.
func (e *Extension) resolve(path string) (string, error) {
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("Path '%s' must be relative to the base directory", path)
	}

	joined := filepath.Join(e.baseDir, path)
	if joined != e.baseDir && !strings.HasPrefix(joined, e.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("Path '%s' escapes the base directory", path)
	}

	return joined, nil
}

func (e *Extension) writeFile(ctx context.Context, args map[string]any) (any, error) {
	path, err := validation.ExtractString(args, "path")
	if err != nil {
		return nil, err
	}

	content, err := validation.ExtractString(args, "content")
	if err != nil {
		return nil, err
	}

	appendMode, ok, err := validation.ExtractOptionalBool(args, "append")
	if err != nil {
		return nil, err
	}

	if !ok {
		appendMode = false
	}

	target, err := e.resolve(path)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories for '%s': %w", path, err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if appendMode {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}

	file, err := os.OpenFile(target, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open '%s': %w", path, err)
	}

	written, err := file.WriteString(content)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return nil, fmt.Errorf("failed to write '%s': %w", path, err)
	}

	return response.Success(map[string]any{
		"path":          path,
		"bytes_written": written,
	}), nil
}

func (e *Extension) readFile(ctx context.Context, args map[string]any) (any, error) {
	path, err := validation.ExtractString(args, "path")
	if err != nil {
		return nil, err
	}

	target, err := e.resolve(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("failed to read '%s': %w", path, err)
	}

	return response.Success(map[string]any{
		"path":    path,
		"content": string(data),
		"size":    len(data),
	}), nil
}

func (e *Extension) deleteFile(ctx context.Context, args map[string]any) (any, error) {
	path, err := validation.ExtractString(args, "path")
	if err != nil {
		return nil, err
	}

	target, err := e.resolve(path)
	if err != nil {
		return nil, err
	}

	if err := os.Remove(target); err != nil {
		return nil, fmt.Errorf("failed to delete '%s': %w", path, err)
	}

	return response.Success(nil), nil
}

func (e *Extension) fileExists(ctx context.Context, args map[string]any) (any, error) {
	path, err := validation.ExtractString(args, "path")
	if err != nil {
		return nil, err
	}

	target, err := e.resolve(path)
	if err != nil {
		return nil, err
	}

	_, err = os.Stat(target)

	return response.Bool(err == nil), nil
}

func (e *Extension) listDir(ctx context.Context, args map[string]any) (any, error) {
	path, ok, err := validation.ExtractOptionalString(args, "path")
	if err != nil {
		return nil, err
	}

	if !ok {
		path = "."
	}

	target, err := e.resolve(path)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		return nil, fmt.Errorf("failed to list '%s': %w", path, err)
	}

	listing := make([]map[string]any, 0, len(entries))

	for _, entry := range entries {
		item := map[string]any{
			"name":   entry.Name(),
			"is_dir": entry.IsDir(),
		}

		if info, err := entry.Info(); err == nil {
			item["size"] = info.Size()
		}

		listing = append(listing, item)
	}

	return response.Success(map[string]any{
		"path":    path,
		"entries": listing,
		"count":   len(listing),
	}), nil
}
