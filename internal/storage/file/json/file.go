package json

import (
	"github.com/drakos74/signal-router/internal/storage"
)

// FileStorage persists every key as a json file in a directory.
type FileStorage struct {
	path string
}

// NewFileStorage creates a new file storage rooted at the given directory.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (s *FileStorage) Store(k storage.Key, value interface{}) error {
	return Save(s.path, k.Path(), value)
}

func (s *FileStorage) Load(k storage.Key, value interface{}) error {
	return Load(s.path, k.Path(), value)
}
