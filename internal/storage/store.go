package storage

import (
	"errors"
	"fmt"
)

var (
	NotFoundErr = errors.New("not found")
	CorruptErr  = errors.New("corrupt storage")
)

// Key is the storage key for a general implementation
type Key struct {
	Pair  string `json:"pair"`
	Label string `json:"label"`
}

// Path returns the file name for the key.
func (k Key) Path() string {
	if k.Pair == "" {
		return fmt.Sprintf("%s.json", k.Label)
	}
	return fmt.Sprintf("%s_%s.json", k.Pair, k.Label)
}

// Persistence stores and loads whole values for a key.
type Persistence interface {
	Store(k Key, value interface{}) error
	Load(k Key, value interface{}) error
}
