// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/morganforge/kestrel-tui/internal/model"
	"github.com/morganforge/kestrel-tui/internal/util"
)

// DefaultBaseKey is the storage record name used before any user namespace
// is known.
const DefaultBaseKey = "kestrel-conversations"

// =============================================================================
// SNAPSHOT STORE
// =============================================================================

// SnapshotStore persists the conversations map as one JSON record per
// namespace. Transient fields (loading flags, cancellation handles) are
// excluded by the model's serialization and repaired again on load.
type SnapshotStore struct {
	// BaseDir is the directory holding snapshot records.
	BaseDir string

	// baseKey plus userSuffix form the active namespace.
	baseKey    string
	userSuffix string
}

// snapshotRecord is the on-disk shape of one namespace's record.
type snapshotRecord struct {
	Version       int                            `json:"version"`
	Conversations map[string]*model.Conversation `json:"conversations"`
}

// snapshotVersion is the current record schema version.
const snapshotVersion = 1

// NewSnapshotStore creates a store rooted at dir with the default base key.
func NewSnapshotStore(dir string) (*SnapshotStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".kestrel", "state")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &SnapshotStore{BaseDir: dir, baseKey: DefaultBaseKey}, nil
}

// =============================================================================
// NAMESPACES
// =============================================================================

// SetUserNamespace switches the active record to the given per-user suffix
// (e.g. after login). Records under the previous namespace are preserved,
// not deleted; logging out and back in under another account must not cost
// either account its history.
func (s *SnapshotStore) SetUserNamespace(userID string) {
	s.userSuffix = sanitizeNamespace(userID)
}

// Namespace returns the active record name.
func (s *SnapshotStore) Namespace() string {
	if s.userSuffix == "" {
		return s.baseKey
	}
	return s.baseKey + "." + s.userSuffix
}

// recordPath returns the file backing the active namespace.
func (s *SnapshotStore) recordPath() string {
	return filepath.Join(s.BaseDir, s.Namespace()+".json")
}

// sanitizeNamespace keeps namespace suffixes filesystem-safe.
func sanitizeNamespace(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// =============================================================================
// SAVE / LOAD
// =============================================================================

// Save writes the conversations map to the active namespace atomically.
// Empty conversations are skipped; they carry no state worth persisting.
func (s *SnapshotStore) Save(conversations map[string]*model.Conversation) error {
	record := snapshotRecord{
		Version:       snapshotVersion,
		Conversations: make(map[string]*model.Conversation, len(conversations)),
	}
	for key, conv := range conversations {
		if conv == nil || conv.IsEmpty() {
			continue
		}
		record.Conversations[key] = conv
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := util.AtomicWriteFile(s.recordPath(), data, 0600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Load reads and repairs the active namespace's record. A missing,
// unreadable or malformed record is not an error: the caller gets an empty
// map and the application starts from a clean state.
func (s *SnapshotStore) Load() map[string]*model.Conversation {
	data, err := os.ReadFile(s.recordPath())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("storage: unreadable snapshot %s: %v", s.Namespace(), err)
		}
		return map[string]*model.Conversation{}
	}

	var record snapshotRecord
	if err := json.Unmarshal(data, &record); err != nil {
		log.Printf("storage: discarding corrupt snapshot %s: %v", s.Namespace(), err)
		return map[string]*model.Conversation{}
	}

	return MigrateSnapshot(record.Conversations)
}

// =============================================================================
// REHYDRATION MIGRATION
// =============================================================================

// MigrateSnapshot repairs a restored conversations map in one explicit pass:
//
//   - conversations persisted mid-stream get IsLoading forced false and
//     their cancellation handles cleared (a stream cannot survive a
//     restart, so the persisted flag is stale by construction)
//   - shape-invalid entries are dropped rather than propagated
//   - message sequence counters are rebuilt for future inserts
func MigrateSnapshot(restored map[string]*model.Conversation) map[string]*model.Conversation {
	migrated := make(map[string]*model.Conversation, len(restored))
	for key, conv := range restored {
		if key == "" || conv == nil || conv.History == nil {
			continue
		}
		valid := true
		for id, msg := range conv.History {
			if msg == nil || msg.ID == "" || msg.ID != id {
				valid = false
				break
			}
		}
		if !valid {
			log.Printf("storage: dropping malformed conversation %s", key)
			continue
		}
		conv.ClearTransient()
		conv.Persisted = true
		conv.RekeySequence()
		migrated[key] = conv
	}
	return migrated
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// Namespaces lists every record present in the base directory.
func (s *SnapshotStore) Namespaces() ([]string, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if strings.HasPrefix(name, s.baseKey) {
			names = append(names, strings.TrimSuffix(name, ".json"))
		}
	}
	return names, nil
}

// Clear removes the active namespace's record only.
func (s *SnapshotStore) Clear() error {
	err := os.Remove(s.recordPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
