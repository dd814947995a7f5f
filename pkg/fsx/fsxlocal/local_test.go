package fsxlocal_test

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/Abraxas-365/hybridparse/pkg/fsx/fsxlocal"
)

func newFS(t *testing.T) (*fsxlocal.LocalFileSystem, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "docs"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "docs", "a.pdf"), []byte("%PDF-1.4"), 0644); err != nil {
		t.Fatal(err)
	}
	lfs, err := fsxlocal.NewLocalFileSystem(dir)
	if err != nil {
		t.Fatalf("NewLocalFileSystem: %v", err)
	}
	return lfs, dir
}

func TestReadAndStat(t *testing.T) {
	lfs, _ := newFS(t)
	ctx := context.Background()

	info, err := lfs.Stat(ctx, "docs/a.pdf")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size != 8 || info.ContentType != "application/pdf" {
		t.Fatalf("info = %+v", info)
	}

	rc, err := lfs.ReadFileStream(ctx, "docs/a.pdf")
	if err != nil {
		t.Fatalf("ReadFileStream: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "%PDF-1.4" {
		t.Fatalf("data = %q", data)
	}

	list, err := lfs.List(ctx, "docs")
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %v, %v", list, err)
	}
}

func TestMissingFileWrapsNotExist(t *testing.T) {
	lfs, _ := newFS(t)
	_, err := lfs.Stat(context.Background(), "docs/missing.pdf")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
	ok, err := lfs.Exists(context.Background(), "docs/missing.pdf")
	if err != nil || ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
}

func TestTraversalRejected(t *testing.T) {
	lfs, dir := newFS(t)
	if _, err := lfs.ReadFile(context.Background(), "../../etc/passwd"); !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if got := lfs.LocalPath("docs/a.pdf"); got != filepath.Join(dir, "docs", "a.pdf") {
		t.Fatalf("LocalPath = %q", got)
	}
}
