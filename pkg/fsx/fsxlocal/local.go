package fsxlocal

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Abraxas-365/hybridparse/pkg/fsx"
)

// LocalFileSystem implements fsx.PathReader over a directory on local disk.
// Paths are resolved relative to the base and may not escape it.
type LocalFileSystem struct {
	basePath string
}

// NewLocalFileSystem creates a new local file system
// basePath: root directory (e.g., "./documents" or "/srv/hybridparse")
func NewLocalFileSystem(basePath string) (*LocalFileSystem, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	return &LocalFileSystem{
		basePath: absPath,
	}, nil
}

func (lfs *LocalFileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	fullPath, err := lfs.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, wrap("read file", path, err)
	}
	return data, nil
}

func (lfs *LocalFileSystem) ReadFileStream(ctx context.Context, path string) (io.ReadCloser, error) {
	fullPath, err := lfs.resolve(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, wrap("open file", path, err)
	}
	return file, nil
}

func (lfs *LocalFileSystem) Stat(ctx context.Context, path string) (fsx.FileInfo, error) {
	fullPath, err := lfs.resolve(path)
	if err != nil {
		return fsx.FileInfo{}, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		return fsx.FileInfo{}, wrap("stat file", path, err)
	}

	return fsx.FileInfo{
		Name:        info.Name(),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		IsDir:       info.IsDir(),
		ContentType: detectContentType(fullPath),
		Metadata:    make(map[string]string),
	}, nil
}

func (lfs *LocalFileSystem) List(ctx context.Context, path string) ([]fsx.FileInfo, error) {
	fullPath, err := lfs.resolve(path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, wrap("list directory", path, err)
	}

	fileInfos := make([]fsx.FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}

		fileInfos = append(fileInfos, fsx.FileInfo{
			Name:        info.Name(),
			Size:        info.Size(),
			ModTime:     info.ModTime(),
			IsDir:       info.IsDir(),
			ContentType: detectContentType(info.Name()),
			Metadata:    make(map[string]string),
		})
	}

	return fileInfos, nil
}

func (lfs *LocalFileSystem) Exists(ctx context.Context, path string) (bool, error) {
	fullPath, err := lfs.resolve(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (lfs *LocalFileSystem) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// LocalPath returns the on-disk path for path, letting the parser read the
// document in place. Escaping paths resolve to the base directory itself.
func (lfs *LocalFileSystem) LocalPath(path string) string {
	fullPath, err := lfs.resolve(path)
	if err != nil {
		return lfs.basePath
	}
	return fullPath
}

// GetBasePath returns the base path
func (lfs *LocalFileSystem) GetBasePath() string {
	return lfs.basePath
}

// resolve joins path under the base, rejecting traversal outside it.
func (lfs *LocalFileSystem) resolve(path string) (string, error) {
	fullPath := filepath.Join(lfs.basePath, filepath.FromSlash(path))
	if fullPath != lfs.basePath && !strings.HasPrefix(fullPath, lfs.basePath+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes base directory: %w", path, fs.ErrPermission)
	}
	return fullPath, nil
}

// wrap keeps fs.ErrNotExist reachable through errors.Is.
func wrap(op, path string, err error) error {
	if os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s: %w", path, fs.ErrNotExist)
	}
	return fmt.Errorf("failed to %s %s: %w", op, path, err)
}

func detectContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".webp":
		return "image/webp"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".html", ".htm":
		return "text/html"
	case ".md":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	case ".json":
		return "application/json"
	case ".xml":
		return "application/xml"
	default:
		return "application/octet-stream"
	}
}
