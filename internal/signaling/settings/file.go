package settings

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/viper"
)

// FileStore is a viper-backed Store persisting settings to a YAML file.
type FileStore struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
}

// NewFileStore opens (or prepares to create) the settings file at path.
func NewFileStore(path string) (*FileStore, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; the first Set creates it.
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read settings %s: %w", path, err)
		}
	}

	return &FileStore{v: v, path: path}, nil
}

// Get implements Store.
func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.v.IsSet(key) {
		return "", false
	}
	return s.v.GetString(key), true
}

// Set implements Store. The value is written through to disk.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(key, value)
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write settings %s: %w", s.path, err)
	}
	return nil
}
