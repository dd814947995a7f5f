package parsing

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Abraxas-365/hybridparse/pkg/parsing/extract"
)

// LocalPather is implemented by file sources that keep documents on local
// disk, letting the parser hand their paths to extractors and renderers
// without a copy.
type LocalPather interface {
	LocalPath(path string) string
}

// sourceDoc is a document resolved to a readable local file.
type sourceDoc struct {
	path    string
	local   string
	size    int64
	modTime time.Time
	format  extract.Format
	cleanup func()
}

func (p *Parser) open(ctx context.Context, path string) (*sourceDoc, error) {
	if p.files == nil {
		info, err := os.Stat(path)
		if err != nil {
			return nil, sourceErr(err, path)
		}
		return &sourceDoc{
			path:    path,
			local:   path,
			size:    info.Size(),
			modTime: info.ModTime(),
			format:  extract.Detect(path),
			cleanup: func() {},
		}, nil
	}

	info, err := p.files.Stat(ctx, path)
	if err != nil {
		return nil, sourceErr(err, path)
	}
	doc := &sourceDoc{
		path:    path,
		size:    info.Size,
		modTime: info.ModTime,
		format:  extract.Detect(path),
		cleanup: func() {},
	}
	if lp, ok := p.files.(LocalPather); ok {
		doc.local = lp.LocalPath(path)
		return doc, nil
	}

	local, err := p.download(ctx, path)
	if err != nil {
		return nil, err
	}
	doc.local = local
	doc.cleanup = func() { _ = os.Remove(local) }
	return doc, nil
}

// download copies a remote document to a temp file keeping its extension,
// which the extractors and renderer dispatch on.
func (p *Parser) download(ctx context.Context, path string) (string, error) {
	rc, err := p.files.ReadFileStream(ctx, path)
	if err != nil {
		return "", sourceErr(err, path)
	}
	defer rc.Close()

	f, err := os.CreateTemp("", "hybridparse-*"+filepath.Ext(path))
	if err != nil {
		return "", ErrRegistry.NewWithCause(ErrSource, err).WithDetail("path", path)
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", ErrRegistry.NewWithCause(ErrSource, err).WithDetail("path", path)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", ErrRegistry.NewWithCause(ErrSource, err).WithDetail("path", path)
	}
	return f.Name(), nil
}

func sourceErr(err error, path string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return ErrRegistry.NewWithCause(ErrSourceNotFound, err).WithDetail("path", path)
	}
	return ErrRegistry.NewWithCause(ErrSource, err).WithDetail("path", path)
}
