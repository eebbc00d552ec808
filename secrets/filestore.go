package secrets

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	apperrors "github.com/expo-laith/xero-ap-automation/internal/errors"
)

// FileStore persists the credential record as an indented JSON document at a
// fixed path. Writes go to a temporary file in the same directory followed by
// a rename, so a concurrent read never observes a partially written document.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store backed by the JSON document at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads and validates the on-disk record.
func (s *FileStore) Load() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, apperrors.Wrapf(apperrors.ErrMissingSecretsFile, "%s", s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("[FileStore Load] read %s: %w", s.path, err)
	}

	record := &Record{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrMalformedSecrets, "parse %s: %v", s.path, err)
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

// Save writes the record atomically. The temporary file is created in the
// target directory so the rename never crosses filesystems.
func (s *FileStore) Save(record *Record) error {
	if record == nil {
		return fmt.Errorf("[FileStore Save] nil record")
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("[FileStore Save] marshal: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("[FileStore Save] create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("[FileStore Save] write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("[FileStore Save] close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("[FileStore Save] rename: %w", err)
	}
	return nil
}
