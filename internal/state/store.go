package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/harmon-tuazon/PD-enrollment-letter-generator/internal/validation"
)

// Store manages the delivery log file with locking.
type Store struct {
	dir string
}

// NewStore creates a new delivery log store using the given directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// statePath returns the path to the log file.
func (s *Store) statePath() string {
	return filepath.Join(s.dir, "deliveries.json")
}

// lockPath returns the path to the lock file.
func (s *Store) lockPath() string {
	return filepath.Join(s.dir, "deliveries.lock")
}

// Load reads the log from disk. Returns an empty log if the file doesn't exist.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.statePath())
	if os.IsNotExist(err) {
		return &State{Deliveries: []Delivery{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read delivery log: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal delivery log: %w", err)
	}
	if st.Deliveries == nil {
		st.Deliveries = []Delivery{}
	}
	return &st, nil
}

// Save writes the log to disk.
func (s *Store) Save(st *State) error {
	// Ensure directory exists
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal delivery log: %w", err)
	}

	if existing, err := os.ReadFile(s.statePath()); err == nil {
		if bytes.Equal(existing, data) {
			return nil
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read delivery log: %w", err)
	}

	// Write atomically via temp file
	tmpFile, err := os.CreateTemp(s.dir, filepath.Base(s.statePath())+".tmp")
	if err != nil {
		return fmt.Errorf("create temp log file: %w", err)
	}
	name := tmpFile.Name()
	_, err = tmpFile.Write(data)
	if err1 := tmpFile.Close(); err1 != nil && err == nil {
		err = err1
	}
	if err != nil {
		os.Remove(name)
		return fmt.Errorf("write temp log file: %w", err)
	}

	if err := os.Rename(name, s.statePath()); err != nil {
		os.Remove(name)
		return fmt.Errorf("rename log file: %w", err)
	}

	return nil
}

// Update atomically reads, modifies, and writes the log with file locking.
func (s *Store) Update(fn func(st *State) error) error {
	// Ensure directory exists
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	// Open lock file
	lockFile, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer lockFile.Close()

	// Acquire exclusive lock
	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN)

	// Load current log
	st, err := s.Load()
	if err != nil {
		return err
	}

	// Apply modifications
	if err := fn(st); err != nil {
		return err
	}

	// Save updated log
	return s.Save(st)
}

// Append records one delivery.
func (s *Store) Append(delivery Delivery) error {
	if !delivery.LetterType.IsValid() {
		return fmt.Errorf("invalid letter type %q (valid: %s)",
			delivery.LetterType, validation.FormatValidValues(ValidLetterTypes()))
	}
	return s.Update(func(st *State) error {
		st.Deliveries = append(st.Deliveries, delivery)
		return nil
	})
}

// List returns all recorded deliveries, newest first.
func (s *Store) List() ([]Delivery, error) {
	st, err := s.Load()
	if err != nil {
		return nil, err
	}
	deliveries := make([]Delivery, len(st.Deliveries))
	copy(deliveries, st.Deliveries)
	sort.SliceStable(deliveries, func(i, j int) bool {
		return deliveries[i].CreatedAt.After(deliveries[j].CreatedAt)
	})
	return deliveries, nil
}
