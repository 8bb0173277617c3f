package json

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/drakos74/signal-router/internal/storage"
)

// LocalStorage keeps the json encoded values in memory.
type LocalStorage struct {
	files map[storage.Key][]byte
	mutex *sync.RWMutex
}

// NewLocalStorage creates a new in-memory storage.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{
		files: make(map[storage.Key][]byte),
		mutex: new(sync.RWMutex),
	}
}

func (l *LocalStorage) Store(k storage.Key, value interface{}) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	bb, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("could not marshal value: %w", err)
	}

	l.files[k] = bb
	return nil
}

func (l *LocalStorage) Load(k storage.Key, value interface{}) error {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	if v, ok := l.files[k]; ok {
		err := json.Unmarshal(v, value)
		if err != nil {
			return fmt.Errorf("could not unmarshal value: %s: %w", err.Error(), storage.CorruptErr)
		}
		return nil
	}
	return fmt.Errorf("file not found: %+v: %w", k, storage.NotFoundErr)
}

// Raw replaces the stored bytes for the key.
func (l *LocalStorage) Raw(k storage.Key, b []byte) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.files[k] = b
}
