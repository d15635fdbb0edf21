package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

type preferences struct {
	DarkMode bool `json:"dark_mode"`
}

// PreferenceStore persists the dark mode flag across restarts.
type PreferenceStore struct {
	path string
	view *View
	log  *log.Logger

	mu sync.Mutex
}

func NewPreferenceStore(path string, view *View, logger *log.Logger) *PreferenceStore {
	if logger == nil {
		logger = log.Default()
	}
	return &PreferenceStore{path: path, view: view, log: logger}
}

// Toggle flips dark mode and stores the new value. The view changes even
// when the write fails.
func (s *PreferenceStore) Toggle() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	on := !s.view.DarkMode()
	s.view.SetDarkMode(on)
	if err := writeJSONFileAtomic(s.path, preferences{DarkMode: on}); err != nil {
		s.log.Printf("prefs: save %s: %v", s.path, err)
		return on, fmt.Errorf("save preferences: %w", err)
	}
	return on, nil
}

// ApplyOnLoad enables dark mode if it was saved as on. Missing or
// unreadable files leave the default.
func (s *PreferenceStore) ApplyOnLoad() {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Printf("prefs: read %s: %v", s.path, err)
		}
		return
	}
	var p preferences
	if err := json.Unmarshal(b, &p); err != nil {
		s.log.Printf("prefs: ignoring %s: %v", s.path, err)
		return
	}
	if p.DarkMode {
		s.view.SetDarkMode(true)
	}
}

func writeJSONFileAtomic(path string, v any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if err := json.NewEncoder(tmp).Encode(v); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
