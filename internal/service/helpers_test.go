package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/campusworks/college-cms-api/internal/models"
	appErrors "github.com/campusworks/college-cms-api/pkg/errors"
)

type mockActivity struct {
	entries []*models.AuditLog
}

func (m *mockActivity) Record(ctx context.Context, entry *models.AuditLog) {
	m.entries = append(m.entries, entry)
}

func (m *mockActivity) lastAction() string {
	if len(m.entries) == 0 {
		return ""
	}
	return m.entries[len(m.entries)-1].Action
}

// memCacheRepo is an in-memory CacheRepository without TTL handling.
type memCacheRepo struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCacheRepo() *memCacheRepo {
	return &memCacheRepo{data: make(map[string][]byte)}
}

func (m *memCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	return nil
}

func (m *memCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			delete(m.data, key)
		}
	}
	return nil
}

// memBlobStorage is an in-memory BlobStorage.
type memBlobStorage struct {
	files       map[string][]byte
	deleteErr   error
	deleteErrOn string
	attempts    []string
	deletes     []string
	treePurges  []string
}

func newMemBlobStorage() *memBlobStorage {
	return &memBlobStorage{files: make(map[string][]byte)}
}

func (m *memBlobStorage) SaveStream(key string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.files[key] = data
	return key, nil
}

func (m *memBlobStorage) Exists(key string) bool {
	_, ok := m.files[key]
	return ok
}

func (m *memBlobStorage) Delete(key string) error {
	m.attempts = append(m.attempts, key)
	if m.deleteErr != nil && (m.deleteErrOn == "" || m.deleteErrOn == key) {
		return m.deleteErr
	}
	delete(m.files, key)
	m.deletes = append(m.deletes, key)
	return nil
}

func (m *memBlobStorage) DeleteTree(prefix string) error {
	for key := range m.files {
		if strings.HasPrefix(key, prefix+"/") || key == prefix {
			delete(m.files, key)
		}
	}
	m.treePurges = append(m.treePurges, prefix)
	return nil
}

// memSlotStore is an in-memory SlotStore keyed by row id and slot name.
type memSlotStore struct {
	slots map[string]string
}

func newMemSlotStore() *memSlotStore {
	return &memSlotStore{slots: make(map[string]string)}
}

func slotKey(id, slot string) string {
	return fmt.Sprintf("%s/%s", id, slot)
}

func (m *memSlotStore) GetSlot(ctx context.Context, id, slot string) (string, error) {
	return m.slots[slotKey(id, slot)], nil
}

func (m *memSlotStore) SetSlot(ctx context.Context, id, slot, key string) error {
	m.slots[slotKey(id, slot)] = key
	return nil
}
