package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStore writes objects below a root directory served by the router
// under URLPrefix.
type LocalStore struct {
	root      string
	urlPrefix string
}

// NewLocalStore creates root if needed.
func NewLocalStore(root, urlPrefix string) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("media root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{root: root, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// Root returns the directory objects are written to.
func (l *LocalStore) Root() string { return l.root }

// URLPrefix returns the route prefix objects are served under.
func (l *LocalStore) URLPrefix() string { return l.urlPrefix }

// Put writes the object through a temp file and renames it into place.
func (l *LocalStore) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) error {
	dst, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, readerWithContext(ctx, r)); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// Delete removes the object. Missing objects are not an error.
func (l *LocalStore) Delete(_ context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// URL returns the route path of the object.
func (l *LocalStore) URL(key string) string {
	return l.urlPrefix + "/" + strings.TrimLeft(key, "/")
}

func (l *LocalStore) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if key == "" || clean == "/" || clean != "/"+key {
		return "", ErrInvalidKey
	}
	return filepath.Join(l.root, filepath.FromSlash(clean[1:])), nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
