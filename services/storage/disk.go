// Package storagesvc implements core.FileStorage on the local disk.
package storagesvc

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/pathway/core"
)

// DiskStorage saves files under the media dir; they are served under the media URL.
type DiskStorage struct {
	root    string
	baseURL string
}

var _ core.FileStorage = (*DiskStorage)(nil)

func NewDiskStorage(conf *core.Config) *DiskStorage {
	return &DiskStorage{root: conf.MediaDir, baseURL: conf.MediaURL}
}

func (s *DiskStorage) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	name = path.Clean("/" + name)[1:]
	if name == "" || strings.HasPrefix(name, "..") {
		return "", errors.Errorf("invalid file name %q", name)
	}
	fp := filepath.Join(s.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return "", errors.Wrap(err, "creating media dir")
	}

	f, err := os.Create(fp)
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	if _, err = io.Copy(f, readerWithContext(ctx, r)); err != nil {
		_ = f.Close()
		_ = os.Remove(fp)
		return "", errors.Wrap(err, "writing file")
	}
	if err = f.Close(); err != nil {
		return "", errors.Wrap(err, "closing file")
	}
	return s.baseURL + "/" + name, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}

// readerWithContext stops reading once ctx is done.
func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
