// Package blobstore keeps the images the clinic uploads: staff photos and
// branch letterheads.
package blobstore

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"regexp"
	"time"
)

var (
	ErrImageNotFound      = errors.New("image not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
	ErrEmptyFile          = errors.New("file is empty")
)

// MaxImageSize is the largest accepted upload (5 MB).
const MaxImageSize = 5 << 20

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

var idPattern = regexp.MustCompile(`^[0-9a-f-]{36}\.(png|jpg|webp)$`)

// Image describes an upload before it is stored.
type Image struct {
	FileName string
	// Purpose groups images, e.g. "photo" or "letterhead".
	Purpose string
}

// Stored is what callers keep on their records: an opaque id and the URL the
// image is served from.
type Stored struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ImageStore interface {
	Upload(ctx context.Context, img Image, content io.Reader) (*Stored, error)
	Open(ctx context.Context, id string) (io.ReadCloser, *Stored, error)
	Delete(ctx context.Context, id string) error
}

// readImage reads at most MaxImageSize bytes and sniffs the content type
// from the data itself rather than trusting the client.
func readImage(content io.Reader) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(content, MaxImageSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return nil, "", ErrEmptyFile
	}
	if len(data) > MaxImageSize {
		return nil, "", ErrFileTooLarge
	}
	ct := http.DetectContentType(data)
	if _, ok := extensions[ct]; !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrInvalidContentType, ct)
	}
	return data, ct, nil
}

func hashOf(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

func contentTypeOf(id string) string {
	switch path.Ext(id) {
	case ".png":
		return "image/png"
	case ".jpg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	}
	return "application/octet-stream"
}

// ValidID reports whether id has the shape the stores generate.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}
