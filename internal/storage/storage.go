// Package storage holds uploaded files.  An Uploader names each upload and
// hands the bytes to a BlobStore; the generated name is the storage
// reference recorded on the registry row.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned by BlobStore.Open for unknown names.
var ErrNotFound = errors.New("blob not found")

// ErrExists is returned by BlobStore.Put when name is already taken.
var ErrExists = errors.New("blob already exists")

// Object is an opened blob.  Size is -1 when unknown.
type Object struct {
	io.ReadCloser
	Size        int64
	ContentType string
	ModTime     time.Time
}

// BlobStore is an opaque key/value store for file bytes.
type BlobStore interface {
	// Put writes r under name.  It must fail with ErrExists rather than
	// overwrite an existing blob.
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, name string) (*Object, error)
	Delete(ctx context.Context, name string) error
}

// Upload is a single incoming file.
type Upload struct {
	Filename    string // client-side name; only its extension is kept
	ContentType string
	Size        int64
	Body        io.Reader
}

// Uploader names uploads and stores them.  No content-type checks, scanning
// or size caps are applied.
type Uploader struct {
	store BlobStore
	now   func() time.Time
}

func NewUploader(store BlobStore) *Uploader {
	return &Uploader{store: store, now: time.Now}
}

// maxNameAttempts bounds retries when two uploads land on the same instant.
const maxNameAttempts = 5

// Store writes up and returns the generated storage reference: the upload
// time in Unix nanoseconds followed by the original file's extension.
func (u *Uploader) Store(ctx context.Context, up Upload) (string, error) {
	ext := Ext(up.Filename)
	ts := u.now().UnixNano()
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := strconv.FormatInt(ts+int64(attempt), 10) + ext
		err := u.store.Put(ctx, name, up.Body, up.Size, up.ContentType)
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, ErrExists) {
			return "", fmt.Errorf("store upload: %w", err)
		}
	}
	return "", fmt.Errorf("store upload: %w after %d attempts", ErrExists, maxNameAttempts)
}

// Remove deletes a stored upload.
func (u *Uploader) Remove(ctx context.Context, ref string) error {
	return u.store.Delete(ctx, ref)
}

// Open returns the stored upload for ref.
func (u *Uploader) Open(ctx context.Context, ref string) (*Object, error) {
	if !ValidName(ref) {
		return nil, ErrNotFound
	}
	return u.store.Open(ctx, ref)
}

// Ext returns the lower-cased extension of a client file name, or "" when
// it has none.  Any directory part sent by the client is ignored.
func Ext(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext := filepath.Ext(base)
	if ext == base { // dotfile such as ".env"
		return ""
	}
	return strings.ToLower(ext)
}

// ValidName reports whether name is a plain file name that can be resolved
// inside a blob store, i.e. no separators and no parent references.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}
