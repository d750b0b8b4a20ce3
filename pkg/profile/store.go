package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store errors.
var (
	// ErrSchema indicates a document with an unsupported (future) schema
	// version. Loads fail closed so the daemon never rewrites data it
	// does not understand.
	ErrSchema = errors.New("unsupported profile schema version")
)

// RecoverableError wraps a load/save failure the daemon continues through
// with best-effort in-memory state.
type RecoverableError struct {
	Err error
}

// Error returns the error message.
func (e *RecoverableError) Error() string {
	return fmt.Sprintf("recoverable profile store error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RecoverableError) Unwrap() error { return e.Err }

// Store persists one profile document per device under a directory.
// Files are named <deviceID>.json and written atomically.
type Store struct {
	mu  sync.Mutex
	dir string
}

// NewStore creates a store rooted at dir. The directory is created on
// first save if missing.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(deviceID string) string {
	return filepath.Join(s.dir, deviceID+".json")
}

// Load reads a device's profile document.
//
// A missing or malformed file yields a default single-root document and a
// *RecoverableError so the caller can log and continue. A document with a
// future schema version yields (nil, ErrSchema): the caller must not save
// over the file.
func (s *Store) Load(deviceID string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(deviceID))
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultDocument(), &RecoverableError{Err: err}
		}
		return DefaultDocument(), &RecoverableError{Err: fmt.Errorf("reading profile: %w", err)}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return DefaultDocument(), &RecoverableError{Err: fmt.Errorf("parsing profile: %w", err)}
	}
	if doc.Version > SchemaVersion {
		return nil, fmt.Errorf("%w: %d (supported: %d)", ErrSchema, doc.Version, SchemaVersion)
	}
	if doc.Version < 1 || len(doc.Nodes) == 0 {
		return DefaultDocument(), &RecoverableError{Err: fmt.Errorf("profile document is empty")}
	}
	return &doc, nil
}

// Save writes a device's profile document atomically: the document is
// serialized to a temporary file in the same directory, then renamed over
// the previous file, so a crash mid-write never corrupts the profile.
func (s *Store) Save(deviceID string, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &RecoverableError{Err: fmt.Errorf("creating profile dir: %w", err)}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &RecoverableError{Err: fmt.Errorf("encoding profile: %w", err)}
	}

	tmp, err := os.CreateTemp(s.dir, deviceID+".*.tmp")
	if err != nil {
		return &RecoverableError{Err: fmt.Errorf("creating temp file: %w", err)}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &RecoverableError{Err: fmt.Errorf("writing profile: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &RecoverableError{Err: fmt.Errorf("closing temp file: %w", err)}
	}
	if err := os.Rename(tmpName, s.path(deviceID)); err != nil {
		os.Remove(tmpName)
		return &RecoverableError{Err: fmt.Errorf("replacing profile: %w", err)}
	}
	return nil
}

// Remove deletes a device's persisted profile. Missing files are not an
// error.
func (s *Store) Remove(deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(deviceID))
	if err != nil && !os.IsNotExist(err) {
		return &RecoverableError{Err: err}
	}
	return nil
}

// DefaultDocument returns the document for a fresh device: a single empty
// root node at full brightness.
func DefaultDocument() *Document {
	return NewTree().Document(100)
}
