// Package store persists the panel's state as a single JSON document:
// the instance collection plus generated API keys. Writes are last-write-wins
// on the whole document; a process-level mutex serializes read-modify-write
// cycles so concurrent requests cannot interleave partial updates.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fluow/panel-server/internal/model"
)

// Document is the full persisted state.
type Document struct {
	Instances []model.Instance `json:"instances"`
	APIKeys   []model.APIKey   `json:"apiKeys"`
}

type Store struct {
	path string
	mu   sync.Mutex
}

func New(path string) *Store {
	return &Store{path: path}
}

// Read returns a snapshot of the document. A missing file yields an empty
// default document rather than an error.
func (s *Store) Read() (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *Store) read() (Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Document{Instances: []model.Instance{}, APIKeys: []model.APIKey{}}, nil
		}
		return Document{}, fmt.Errorf("read store: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode store: %w", err)
	}
	if doc.Instances == nil {
		doc.Instances = []model.Instance{}
	}
	if doc.APIKeys == nil {
		doc.APIKeys = []model.APIKey{}
	}
	return doc, nil
}

// Update runs fn against the current document under the store lock. The
// document is persisted only when fn reports a change; returning false
// makes the whole cycle a read.
func (s *Store) Update(fn func(doc *Document) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}

	changed, err := fn(&doc)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	return s.write(doc)
}

// write replaces the document atomically: marshal to a temp file in the same
// directory, then rename over the target.
func (s *Store) write(doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close store: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod store: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}

// FindInstance returns the named instance from the given document, or nil.
func FindInstance(doc *Document, name string) *model.Instance {
	for i := range doc.Instances {
		if doc.Instances[i].Name == name {
			return &doc.Instances[i]
		}
	}
	return nil
}
