package links

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SnapshotFile is the name of the link snapshot inside the data directory.
const SnapshotFile = "portable_artifact_links.json"

// Store owns the set of live links. Every read and write is serialized
// through one mutex: expiry is enforced on read, so even lookups mutate.
// Mutations are persisted to the snapshot file before the lock is
// released. A failed write is logged and the in-memory state kept, so a
// link stays usable until the next restart at worst.
type Store struct {
	mu    sync.Mutex
	links map[string]Link
	path  string
}

// NewStore returns a Store persisting to SnapshotFile under dataDir.
func NewStore(dataDir string) *Store {
	return &Store{
		links: map[string]Link{},
		path:  filepath.Join(dataDir, SnapshotFile),
	}
}

// Create issues a new link and returns its id. expiryMinutes <= 0 means
// the link never expires. Caller authorization happens before this call.
func (s *Store) Create(issuer string, expiryMinutes int64, buildID int64, artifactPath string) string {
	now := time.Now().UTC()
	link := Link{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		Issuer:       issuer,
		BuildID:      buildID,
		ArtifactPath: artifactPath,
	}
	if expiryMinutes > 0 {
		expires := now.Add(time.Duration(expiryMinutes) * time.Minute)
		link.ExpiresAt = &expires
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.links[link.ID] = link
	s.save()

	return link.ID
}

// Resolve returns the link for id, removing it first if its expiry has
// elapsed. This is the single expiry-enforcement point for downloads.
func (s *Store) Resolve(id string) (Link, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[id]
	if !ok {
		return Link{}, false
	}
	if link.Expired(time.Now().UTC()) {
		delete(s.links, id)
		s.save()
		return Link{}, false
	}
	return link, true
}

// Revoke removes the link for id and reports whether it existed.
func (s *Store) Revoke(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.links[id]
	if ok {
		delete(s.links, id)
		s.save()
	}
	return ok
}

// List sweeps out every expired link, then returns a copy of what is
// left. The sweep is what garbage-collects links nobody resolves.
func (s *Store) List() map[string]Link {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	removed := false
	for id, link := range s.links {
		if link.Expired(now) {
			delete(s.links, id)
			removed = true
		}
	}
	if removed {
		s.save()
	}

	rc := make(map[string]Link, len(s.links))
	for id, link := range s.links {
		rc[id] = link
	}
	return rc
}

// Load replaces the in-memory collection with the snapshot file. Called
// once at startup, before any requests. A missing file is a fresh
// install; anything else unreadable is logged and the store starts
// empty rather than failing startup.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Error().Err(err).Str("path", s.path).Msg("Unable to load link snapshot")
		}
		return
	}

	loaded := map[string]Link{}
	if err := json.Unmarshal(data, &loaded); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("Link snapshot is corrupt, starting empty")
		return
	}
	s.links = loaded
}

// save rewrites the whole snapshot. Caller must hold s.mu. The write
// goes through a temp file and rename so a crash mid-write leaves the
// previous snapshot intact.
func (s *Store) save() {
	data, err := json.MarshalIndent(s.links, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Unable to marshal link snapshot")
		return
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		log.Error().Err(err).Str("path", tmp).Msg("Unable to save link snapshot")
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("Unable to replace link snapshot")
	}
}
