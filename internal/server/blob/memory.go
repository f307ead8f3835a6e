package blob

import (
	"context"
	"sync"
)

type Object struct {
	ContentType string
	Data        []byte
}

// MemoryStore keeps objects in a map.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object)}
}

func (m *MemoryStore) Put(ctx context.Context, container, key, contentType string, data []byte) (string, error) {
	cp := make([]byte, len(data))
	copy(cp, data)

	k := objectKey(container, key)
	m.mu.Lock()
	m.objects[k] = Object{ContentType: contentType, Data: cp}
	m.mu.Unlock()
	return k, nil
}

// Delete removes the object. Deleting a missing object is not an error,
// matching S3 semantics.
func (m *MemoryStore) Delete(ctx context.Context, container, key string) error {
	m.mu.Lock()
	delete(m.objects, objectKey(container, key))
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(container, key string) (Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.objects[objectKey(container, key)]
	if !ok {
		return Object{}, ErrNotFound
	}
	return o, nil
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
