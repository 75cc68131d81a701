package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"

	"github.com/LegoTypes/synthformula/internal/types"
)

// Store owns a single on-disk YAML sensor-set file: loading, saving, and
// tracking a checksum so a hot-reload watcher can tell a real edit from a
// touch (grounded on RuntimeConfigManager.calculateChecksum in
// 99souls-ariadne/engine/internal/runtime/runtime.go).
type Store struct {
	mu       sync.RWMutex
	path     string
	checksum string
}

// NewStore opens a Store bound to path. The file need not exist yet; Save
// creates it.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the file path this Store is bound to.
func (s *Store) Path() string { return s.path }

// Load reads and decodes the sensor set, recording its checksum for later
// change detection (§6; §8 "round-trip laws").
func (s *Store) Load() (types.SensorSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return types.SensorSet{}, fmt.Errorf("storage: reading %s: %w", s.path, err)
	}
	set, err := Decode(data)
	if err != nil {
		return types.SensorSet{}, err
	}
	s.checksum = checksum(data)
	return set, nil
}

// Save encodes and atomically writes the sensor set, updating the tracked
// checksum so a subsequent fsnotify event triggered by this write is not
// mistaken for an external edit.
func (s *Store) Save(set types.SensorSet) error {
	data, err := Encode(set)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("storage: writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("storage: renaming %s to %s: %w", tmp, s.path, err)
	}
	s.checksum = checksum(data)
	return nil
}

// Changed reports whether the file's on-disk contents differ from the
// last Load/Save's checksum, without re-decoding the YAML.
func (s *Store) Changed() (bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return false, fmt.Errorf("storage: reading %s: %w", s.path, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return checksum(data) != s.checksum, nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
