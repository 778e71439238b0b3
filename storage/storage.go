package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrInvalidKey = errors.New("invalid blob key")
)

// Store keeps uploaded blobs under slash separated keys such as "images/<uuid>.jpg".
type Store interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// SaveUpload copies an uploaded file into store as "<dir>/<uuid><ext>" and returns the key.
// The extension is the sniffed content type's. The client file name only picks among the
// extensions of that same type, so ".jpeg" survives but "x.html" holding text does not.
func SaveUpload(ctx context.Context, store Store, dir string, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer src.Close()

	mt, err := mimetype.DetectReader(src)
	if err != nil {
		return "", fmt.Errorf("sniff upload %q: %w", fh.Filename, err)
	}
	if _, err = src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload %q: %w", fh.Filename, err)
	}

	ext := uploadExt(fh.Filename, mt)
	key := path.Join(dir, uuid.NewString()+ext)

	if err = store.Save(ctx, key, src, mt.String()); err != nil {
		return "", err
	}
	return key, nil
}

func uploadExt(filename string, mt *mimetype.MIME) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != "" && ext != mt.Extension() {
		claimed, _, err := mime.ParseMediaType(mime.TypeByExtension(ext))
		if err != nil || !mt.Is(claimed) {
			ext = ""
		}
	}
	if ext == "" {
		ext = mt.Extension()
	}
	return ext
}

// CleanKey validates a key and returns it in canonical form.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, `\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	clean := path.Clean(key)
	if clean != key || !filepath.IsLocal(filepath.FromSlash(clean)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return clean, nil
}
