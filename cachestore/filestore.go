package cachestore

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// FileStore is a Store backed by a single file. The file holds a msgpack map
// from group key to an independently encoded slot, so Exists never has to
// decode slot payloads. All writes go through a whole-file read-modify-write
// with an atomic rename, which is why callers should batch a stage's saves
// through SaveBatch rather than looping over Save.
//
// Values round-trip through msgpack with loose interface decoding: integers
// come back as int64, floats as float64, sequences as []any and maps as
// map[string]any. Callers needing exact Go types should keep results in a
// MemStore or register msgpack codecs for their types.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store bound to path. The file is created lazily on
// the first Save; a store whose file does not exist yet answers every Exists
// with false.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Name implements Named.
func (s *FileStore) Name() string { return s.path }

// Exists implements Store.
func (s *FileStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := s.readSlots()
	if err != nil {
		return false, err
	}
	_, ok := slots[key]
	return ok, nil
}

// Load implements Store.
func (s *FileStore) Load(ctx context.Context, key string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := s.readSlots()
	if err != nil {
		return nil, err
	}
	raw, ok := slots[key]
	if !ok {
		return nil, fmt.Errorf("store %q: %w: %q", s.path, ErrNoSlot, key)
	}

	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	dec.UseLooseInterfaceDecoding(true)
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("store %q: %w: decoding slot %q: %v", s.path, ErrCorrupt, key, err)
	}
	return value, nil
}

// Save implements Store.
func (s *FileStore) Save(ctx context.Context, key string, value any) error {
	return s.SaveBatch(ctx, map[string]any{key: value})
}

// SaveBatch implements BatchWriter. All entries land in one read-modify-write
// cycle; existing slots under other keys are preserved, colliding keys are
// overwritten.
func (s *FileStore) SaveBatch(ctx context.Context, entries map[string]any) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := s.readSlots()
	if err != nil {
		return err
	}
	for key, value := range entries {
		raw, err := msgpack.Marshal(value)
		if err != nil {
			return fmt.Errorf("store %q: encoding slot %q: %w", s.path, key, err)
		}
		slots[key] = raw
	}
	return s.writeSlots(slots)
}

// readSlots loads the slot index. A missing file is an empty store, not an
// error; an unreadable or undecodable file is ErrCorrupt.
func (s *FileStore) readSlots() (map[string]msgpack.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string]msgpack.RawMessage), nil
	}
	if err != nil {
		return nil, fmt.Errorf("store %q: %w: %v", s.path, ErrCorrupt, err)
	}

	slots := make(map[string]msgpack.RawMessage)
	if err := msgpack.Unmarshal(data, &slots); err != nil {
		return nil, fmt.Errorf("store %q: %w: %v", s.path, ErrCorrupt, err)
	}
	return slots, nil
}

// writeSlots persists the slot index atomically: encode, write a sibling
// temp file, rename over the target. The temp file is removed on any
// failure so no partial state outlives the call.
func (s *FileStore) writeSlots(slots map[string]msgpack.RawMessage) error {
	data, err := msgpack.Marshal(slots)
	if err != nil {
		return fmt.Errorf("store %q: encoding index: %w", s.path, err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("store %q: creating directory: %w", s.path, err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("store %q: writing: %w", s.path, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("store %q: replacing: %w", s.path, err)
	}
	return nil
}
