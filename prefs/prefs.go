// Package prefs persists non-sensitive UI preferences across sessions. Unlike
// the token store these survive logout; they describe the user's workspace,
// not their credentials.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const prefsFileName = "prefs.json"

// Document is the persisted preferences shape.
type Document struct {
	Theme            string `json:"theme"`
	SidebarCollapsed bool   `json:"sidebarCollapsed"`
	LastCredential   string `json:"lastCredential"`
	PageSize         int    `json:"pageSize"`
}

// Store reads and writes the preferences document. A missing or corrupt
// document falls back to defaults; preferences are never worth failing a
// boot over.
type Store struct {
	mu   sync.RWMutex
	path string
	doc  Document
	log  zerolog.Logger
}

func NewStore(dataFolder string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dataFolder, 0o700); err != nil {
		return nil, errors.Wrap(err, "[prefs.NewStore] create data folder")
	}

	s := &Store{
		path: filepath.Join(dataFolder, prefsFileName),
		log:  log.With().Str("component", "prefs.Store").Logger(),
	}
	s.doc = s.load()
	return s, nil
}

// Current returns the persisted preferences.
func (s *Store) Current() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Update applies mutate to the document and persists the result.
func (s *Store) Update(mutate func(*Document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.doc
	mutate(&doc)

	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[Store.Update] encode")
	}
	if err := os.WriteFile(s.path, encoded, 0o600); err != nil {
		return errors.Wrap(err, "[Store.Update] write")
	}
	s.doc = doc
	return nil
}

func (s *Store) load() Document {
	encoded, err := os.ReadFile(s.path)
	if err != nil {
		return defaults()
	}

	var doc Document
	if err := json.Unmarshal(encoded, &doc); err != nil {
		s.log.Warn().Err(err).Msg("discarding unreadable preferences document")
		return defaults()
	}
	if doc.PageSize <= 0 {
		doc.PageSize = defaults().PageSize
	}
	if doc.Theme == "" {
		doc.Theme = defaults().Theme
	}
	return doc
}

func defaults() Document {
	return Document{Theme: "light", PageSize: 20}
}
