// Package session persists respondent sessions and their field values in a single JSON file.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jun787/CVA-cupping-forms/internal/logger"
)

// ErrNotFound is returned for an unknown session ID
var ErrNotFound = errors.New("session not found")

// TitleTimeFormat is the timestamp layout used in default titles
const TitleTimeFormat = "2006-01-02 15:04:05"

// Store handles session persistence and commands. Every command saves before returning.
type Store struct {
	file     *File
	filePath string
	mu       sync.RWMutex

	logger *logger.Logger
	now    func() time.Time
	newID  func() string
}

// Config holds configuration for the store
type Config struct {
	Path   string
	Logger *logger.Logger
	// Now and NewID default to time.Now and random UUIDs
	Now   func() time.Time
	NewID func() string
}

// NewStore creates a store for the file at cfg.Path without reading it
func NewStore(cfg *Config) *Store {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	return &Store{
		file:     NewFile(),
		filePath: cfg.Path,
		logger:   log,
		now:      now,
		newID:    newID,
	}
}

// Open loads an existing sessions file, or starts empty when there is none
func Open(cfg *Config) (*Store, error) {
	s := NewStore(cfg)
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads the sessions file. A missing file is an empty store, not an error.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		s.file = NewFile()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read sessions file: %w", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse sessions file: %w", err)
	}
	if f.Version != StoreFileVersion {
		return fmt.Errorf("unsupported sessions file version %d (expected %d)", f.Version, StoreFileVersion)
	}
	if f.Sessions == nil {
		f.Sessions = make(map[string]*Session)
	}
	for _, sess := range f.Sessions {
		if sess.Values == nil {
			sess.Values = make(map[string]any)
		}
	}

	s.file = &f
	s.logger.WithFields("path", s.filePath, "sessions", len(f.Sessions)).Debug("Loaded sessions")
	return nil
}

// Save writes the sessions file atomically
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.save()
}

// save must be called with the lock held
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create sessions directory: %w", err)
	}

	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp sessions file: %w", err)
	}
	if err := os.Rename(tmpFile, s.filePath); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename temp sessions file: %w", err)
	}
	return nil
}

// List returns copies of all sessions, most recently updated first
func (s *Store) List() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Session, 0, len(s.file.Sessions))
	for _, sess := range s.file.Sessions {
		out = append(out, sess.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Get returns a copy of one session
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.file.Sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess.Clone(), nil
}

// Count returns the number of sessions
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.file.Sessions)
}

// Create adds an empty session titled with the current time
func (s *Store) Create() (*Session, error) {
	now := s.now()
	sess := &Session{
		ID:        s.newID(),
		Title:     "New record " + now.Format(TitleTimeFormat),
		CreatedAt: now,
		UpdatedAt: now,
		Values:    make(map[string]any),
	}
	if err := s.put(sess); err != nil {
		return nil, err
	}
	s.logger.WithSession(sess.ID).Info("Created session")
	return sess.Clone(), nil
}

// Duplicate copies a session's values under a new ID and a " (copy)" title
func (s *Store) Duplicate(id string) (*Session, error) {
	src, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	dup := src.Clone()
	dup.ID = s.newID()
	dup.Title = src.Title + " (copy)"
	dup.CreatedAt = now
	dup.UpdatedAt = now

	if err := s.put(dup); err != nil {
		return nil, err
	}
	s.logger.WithSession(dup.ID).WithFields("source", id).Info("Duplicated session")
	return dup.Clone(), nil
}

// Remove deletes a session
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.file.Sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.file.Sessions, id)
	if err := s.save(); err != nil {
		s.file.Sessions[id] = old
		return err
	}
	s.logger.WithSession(id).Info("Removed session")
	return nil
}

// UpdateValue sets one field value. A nil value clears the field.
func (s *Store) UpdateValue(id, fieldID string, value any) (*Session, error) {
	if fieldID == "" {
		return nil, fmt.Errorf("field id cannot be empty")
	}
	return s.mutate(id, func(sess *Session) {
		sess.Values[fieldID] = value
	})
}

// UpdateMeta applies a title and sample name patch
func (s *Store) UpdateMeta(id string, patch MetaPatch) (*Session, error) {
	return s.mutate(id, func(sess *Session) {
		if patch.Title != nil {
			sess.Title = *patch.Title
		}
		if patch.SampleName != nil {
			sess.SampleName = *patch.SampleName
		}
	})
}

// mutate applies fn to a copy, bumps UpdatedAt, and keeps the old session if saving fails
func (s *Store) mutate(id string, fn func(*Session)) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.file.Sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := old.Clone()
	fn(next)
	next.UpdatedAt = s.now()

	s.file.Sessions[id] = next
	if err := s.save(); err != nil {
		s.file.Sessions[id] = old
		return nil, err
	}
	return next.Clone(), nil
}

func (s *Store) put(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.file.Sessions[sess.ID]; exists {
		return fmt.Errorf("session %s already exists", sess.ID)
	}
	s.file.Sessions[sess.ID] = sess
	if err := s.save(); err != nil {
		delete(s.file.Sessions, sess.ID)
		return err
	}
	return nil
}
