package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"sticks-bot/internal/domain"
)

// FileStore хранит подписчиков JSON-массивом в файле.
type FileStore struct {
	path string
}

// NewFileStore создаёт файловое хранилище.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load читает список чатов. Отсутствующий файл даёт ErrStoreMissing,
// нечитаемый JSON — ErrStoreCorrupt.
func (s *FileStore) Load(context.Context) ([]int64, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", s.path, domain.ErrStoreMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", s.path, domain.ErrStoreCorrupt, err)
	}
	return ids, nil
}

// Save атомарно перезаписывает файл через временный файл рядом.
func (s *FileStore) Save(_ context.Context, chatIDs []int64) error {
	if chatIDs == nil {
		chatIDs = []int64{}
	}
	raw, err := json.Marshal(chatIDs)
	if err != nil {
		return fmt.Errorf("marshal subscribers: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename to %s: %w", s.path, err)
	}
	return nil
}
