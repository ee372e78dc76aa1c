package blobstore

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memImage struct {
	meta Stored
	data []byte
}

// MemoryStore keeps images in memory for tests and STORE=memory.
type MemoryStore struct {
	mu      sync.RWMutex
	images  map[string]*memImage
	baseURL string
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{images: make(map[string]*memImage), baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *MemoryStore) Upload(_ context.Context, _ Image, content io.Reader) (*Stored, error) {
	data, ct, err := readImage(content)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString() + extensions[ct]
	meta := Stored{
		ID:          id,
		URL:         s.baseURL + "/" + id,
		ContentType: ct,
		Size:        int64(len(data)),
		Hash:        hashOf(data),
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.images[id] = &memImage{meta: meta, data: data}
	s.mu.Unlock()

	out := meta
	return &out, nil
}

func (s *MemoryStore) Open(_ context.Context, id string) (io.ReadCloser, *Stored, error) {
	s.mu.RLock()
	img, ok := s.images[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, ErrImageNotFound
	}
	meta := img.meta
	return io.NopCloser(bytes.NewReader(img.data)), &meta, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.images[id]; !ok {
		return ErrImageNotFound
	}
	delete(s.images, id)
	return nil
}
