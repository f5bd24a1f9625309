package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// sessionsDirName is the subdirectory of the per-user home dir holding
// per-id session files and the index, per spec.md §6.
const sessionsDirName = "sessions"
const indexFileName = "index.json"

// previewCharLimit bounds how much of the last message the index preview
// keeps.
const previewCharLimit = 80

// IndexEntry is one session's summary row in index.json.
type IndexEntry struct {
	ID             string `json:"id"`
	Name           string `json:"name,omitempty"`
	StartTime      string `json:"startTime"`
	LastAccessTime string `json:"lastAccessTime"`
	ProjectPath    string `json:"projectPath"`
	Model          string `json:"model"`
	MessageCount   int    `json:"messageCount"`
	Preview        string `json:"preview"`
}

// Index is the global sessions/index.json document, per spec.md §6.
type Index struct {
	LastSessionID string                `json:"lastSessionId"`
	Sessions      map[string]IndexEntry `json:"sessions"`
}

// Store manages the global, per-user session directory.
type Store struct {
	homeDir string
}

// NewStore roots a Store at homeDir (e.g. ~/.agentcore).
func NewStore(homeDir string) *Store {
	return &Store{homeDir: homeDir}
}

func (s *Store) dir() string { return filepath.Join(s.homeDir, sessionsDirName) }

func (s *Store) sessionPath(id string) string {
	return filepath.Join(s.dir(), id+".json")
}

func (s *Store) indexPath() string {
	return filepath.Join(s.dir(), indexFileName)
}

// Save persists sess to its own file and updates the shared index,
// recording name if provided, per spec.md §4.7's save(name?) contract.
func (s *Store) Save(sess *Session, name string) error {
	if name != "" {
		sess.Name = name
	}

	if err := os.MkdirAll(s.dir(), 0o755); err != nil {
		return fmt.Errorf("session store: create dir: %w", err)
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("session store: marshal session: %w", err)
	}
	if err := os.WriteFile(s.sessionPath(sess.ID), data, 0o644); err != nil {
		return fmt.Errorf("session store: write session file: %w", err)
	}

	index, err := s.loadIndex()
	if err != nil {
		return err
	}
	index.LastSessionID = sess.ID
	index.Sessions[sess.ID] = IndexEntry{
		ID:             sess.ID,
		Name:           sess.Name,
		StartTime:      sess.StartTime.Format(timeLayout),
		LastAccessTime: sess.LastAccessTime.Format(timeLayout),
		ProjectPath:    sess.ProjectPath,
		Model:          sess.Model,
		MessageCount:   sess.MessageCount(),
		Preview:        preview(sess),
	}
	return s.saveIndex(index)
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func preview(sess *Session) string {
	if len(sess.Messages) == 0 {
		return ""
	}
	last := sess.Messages[len(sess.Messages)-1].Content
	if len(last) > previewCharLimit {
		return last[:previewCharLimit]
	}
	return last
}

// Continue loads the most recently saved session (the "continue" verb in
// spec.md §4.7).
func (s *Store) Continue() (*Session, error) {
	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	if index.LastSessionID == "" {
		return nil, fmt.Errorf("session store: no sessions recorded")
	}
	return s.loadByID(index.LastSessionID)
}

// Resume loads a session by exact name match first, falling back to id,
// the "resume <name|id>" verb in spec.md §4.7.
func (s *Store) Resume(nameOrID string) (*Session, error) {
	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	for _, entry := range index.Sessions {
		if entry.Name == nameOrID {
			return s.loadByID(entry.ID)
		}
	}
	if _, ok := index.Sessions[nameOrID]; ok {
		return s.loadByID(nameOrID)
	}
	return nil, fmt.Errorf("session store: no session named or id %q", nameOrID)
}

// List returns every indexed session's summary.
func (s *Store) List() ([]IndexEntry, error) {
	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	entries := make([]IndexEntry, 0, len(index.Sessions))
	for _, e := range index.Sessions {
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *Store) loadByID(id string) (*Session, error) {
	data, err := os.ReadFile(s.sessionPath(id))
	if err != nil {
		return nil, fmt.Errorf("session store: read %s: %w", id, err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("session store: parse %s: %w", id, err)
	}
	return &sess, nil
}

func (s *Store) loadIndex() (*Index, error) {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &Index{Sessions: make(map[string]IndexEntry)}, nil
		}
		return nil, fmt.Errorf("session store: read index: %w", err)
	}
	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("session store: parse index: %w", err)
	}
	if index.Sessions == nil {
		index.Sessions = make(map[string]IndexEntry)
	}
	return &index, nil
}

func (s *Store) saveIndex(index *Index) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("session store: marshal index: %w", err)
	}
	return os.WriteFile(s.indexPath(), data, 0o644)
}
