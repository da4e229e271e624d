// Package media stores uploaded images on local disk or on Cloudinary.
package media

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// Object is a stored media file. Handle is what Delete accepts later.
type Object struct {
	Handle string
	URL    string
}

// Store puts and removes media objects. Deleting an absent object is a no-op.
type Store interface {
	Put(ctx context.Context, r io.Reader, folder, key string) (Object, error)
	Delete(ctx context.Context, handle string) error
}

// ErrInvalidKey is returned for keys or folders that escape the store root.
var ErrInvalidKey = errors.New("media: invalid key")

// cleanSegment normalizes a folder or key, rejecting traversal.
func cleanSegment(s string) (string, error) {
	s = strings.Trim(strings.ReplaceAll(s, "\\", "/"), "/")
	if s == "" {
		return "", nil
	}
	cleaned := path.Clean(s)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") || strings.Contains(cleaned, "/../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
