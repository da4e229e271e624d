package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// LocalStore writes objects under a directory served at PublicPrefix.
type LocalStore struct {
	Dir          string
	PublicPrefix string
}

func NewLocalStore(dir, publicPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("media: create %s: %w", dir, err)
	}
	return &LocalStore{Dir: dir, PublicPrefix: strings.TrimRight(publicPrefix, "/")}, nil
}

// Put writes r to folder/key. An empty key gets a random name.
func (s *LocalStore) Put(ctx context.Context, r io.Reader, folder, key string) (Object, error) {
	folder, err := cleanSegment(folder)
	if err != nil {
		return Object{}, err
	}
	key, err = cleanSegment(key)
	if err != nil {
		return Object{}, err
	}
	if key == "" {
		key = uuid.NewString()
	}
	handle := path.Join(folder, key)
	target := filepath.Join(s.Dir, filepath.FromSlash(handle))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Object{}, fmt.Errorf("media: create folder: %w", err)
	}

	f, err := os.Create(target)
	if err != nil {
		return Object{}, fmt.Errorf("media: create %s: %w", handle, err)
	}
	if _, err := io.Copy(f, &ctxReader{ctx: ctx, r: r}); err != nil {
		f.Close()
		os.Remove(target)
		return Object{}, fmt.Errorf("media: write %s: %w", handle, err)
	}
	if err := f.Close(); err != nil {
		return Object{}, fmt.Errorf("media: close %s: %w", handle, err)
	}
	log.Debug("stored media object", "handle", handle)
	return Object{Handle: handle, URL: s.PublicPrefix + "/" + handle}, nil
}

func (s *LocalStore) Delete(_ context.Context, handle string) error {
	handle, err := cleanSegment(handle)
	if err != nil {
		return err
	}
	if handle == "" {
		return nil
	}
	err = os.Remove(filepath.Join(s.Dir, filepath.FromSlash(handle)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("media: delete %s: %w", handle, err)
	}
	return nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
