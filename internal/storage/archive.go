// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/morganforge/kestrel-tui/internal/model"
)

// ErrNotArchived indicates the requested conversation is not in the archive.
var ErrNotArchived = errors.New("conversation not archived")

// =============================================================================
// ARCHIVE
// =============================================================================

// Archive is the SQLite-backed long-term conversation history. The snapshot
// store covers crash recovery of live state; the archive is what the history
// feature lists, searches and restores from.
type Archive struct {
	db *sql.DB
}

// ArchiveEntry is the listing row for one archived conversation.
type ArchiveEntry struct {
	Key          string    `json:"key"`
	Title        string    `json:"title"`
	Namespace    string    `json:"namespace"`
	MessageCount int       `json:"message_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OpenArchive opens (creating if needed) the archive database at path.
func OpenArchive(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	// Keep sqlite responsive under contention.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, err
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL;")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL;")

	schema := `CREATE TABLE IF NOT EXISTS conversations (
		key           TEXT PRIMARY KEY,
		namespace     TEXT NOT NULL DEFAULT '',
		title         TEXT NOT NULL DEFAULT '',
		message_count INTEGER NOT NULL DEFAULT 0,
		content       TEXT NOT NULL DEFAULT '',
		payload       TEXT NOT NULL,
		created_at_ns INTEGER NOT NULL,
		updated_at_ns INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_ns_updated
		ON conversations(namespace, updated_at_ns);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close releases the database handle.
func (a *Archive) Close() error {
	return a.db.Close()
}

// =============================================================================
// WRITES
// =============================================================================

// Put inserts or replaces one conversation under the given namespace.
func (a *Archive) Put(namespace, key string, conv *model.Conversation) error {
	if conv == nil || key == "" {
		return errors.New("archive: nil conversation or empty key")
	}
	payload, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}

	// Flattened message text feeds the LIKE-based search.
	var content strings.Builder
	for _, msg := range conv.Messages() {
		content.WriteString(msg.DisplayContent())
		content.WriteByte('\n')
	}

	now := time.Now().UnixNano()
	_, err = a.db.Exec(`INSERT INTO conversations
		(key, namespace, title, message_count, content, payload, created_at_ns, updated_at_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			namespace = excluded.namespace,
			title = excluded.title,
			message_count = excluded.message_count,
			content = excluded.content,
			payload = excluded.payload,
			updated_at_ns = excluded.updated_at_ns`,
		key, namespace, conv.GetTitle(), conv.MessageCount(),
		content.String(), string(payload), conv.CreatedAt.UnixNano(), now)
	if err != nil {
		return fmt.Errorf("archive put: %w", err)
	}
	return nil
}

// Delete removes one archived conversation.
func (a *Archive) Delete(key string) error {
	_, err := a.db.Exec(`DELETE FROM conversations WHERE key = ?`, key)
	return err
}

// =============================================================================
// READS
// =============================================================================

// Get loads one archived conversation, repaired through the same migration
// rehydration uses.
func (a *Archive) Get(key string) (*model.Conversation, error) {
	var payload string
	err := a.db.QueryRow(`SELECT payload FROM conversations WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotArchived, key)
	}
	if err != nil {
		return nil, err
	}

	var conv model.Conversation
	if err := json.Unmarshal([]byte(payload), &conv); err != nil {
		return nil, fmt.Errorf("corrupt archive payload: %w", err)
	}
	migrated := MigrateSnapshot(map[string]*model.Conversation{key: &conv})
	repaired, ok := migrated[key]
	if !ok {
		return nil, fmt.Errorf("corrupt archive payload: %s", key)
	}
	return repaired, nil
}

// List returns archived conversations for a namespace, most recent first.
func (a *Archive) List(namespace string, limit int) ([]ArchiveEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.db.Query(`SELECT key, namespace, title, message_count, updated_at_ns
		FROM conversations WHERE namespace = ?
		ORDER BY updated_at_ns DESC LIMIT ?`, namespace, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Search returns conversations whose title or content matches the query,
// most recent first.
func (a *Archive) Search(namespace, query string, limit int) ([]ArchiveEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + strings.ToLower(query) + "%"
	rows, err := a.db.Query(`SELECT key, namespace, title, message_count, updated_at_ns
		FROM conversations
		WHERE namespace = ? AND (lower(title) LIKE ? OR lower(content) LIKE ?)
		ORDER BY updated_at_ns DESC LIMIT ?`, namespace, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// scanEntries drains a listing query.
func scanEntries(rows *sql.Rows) ([]ArchiveEntry, error) {
	var entries []ArchiveEntry
	for rows.Next() {
		var entry ArchiveEntry
		var updatedNs int64
		if err := rows.Scan(&entry.Key, &entry.Namespace, &entry.Title, &entry.MessageCount, &updatedNs); err != nil {
			return nil, err
		}
		entry.UpdatedAt = time.Unix(0, updatedNs)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
