package storage

import (
	"fmt"
	"sync"
)

// MockStorage records stored values and can be set to fail.
type MockStorage struct {
	Elements map[Key]interface{}
	Err      error
	count    int
	lock     *sync.Mutex
}

// NewMockStorage creates a new mock storage.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		Elements: make(map[Key]interface{}),
		lock:     new(sync.Mutex),
	}
}

func (m *MockStorage) Store(k Key, value interface{}) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.count++
	if m.Err != nil {
		return m.Err
	}
	m.Elements[k] = value
	return nil
}

func (m *MockStorage) Load(k Key, value interface{}) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.Err != nil {
		return m.Err
	}
	return fmt.Errorf("mock storage does not load '%v': %w", k, NotFoundErr)
}

// Stores returns the number of store calls.
func (m *MockStorage) Stores() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.count
}
