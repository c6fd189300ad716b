// Package store implements the persistent substrate for agentslack.
//
// It uses SQLite with FTS5 full-text search to hold projects, agents,
// channels, channel memberships, messages, DM permissions, sessions, and
// tool-call dedup records. This is the core of agentslack — the channel
// engine, message engine, discovery engine, and session context all talk
// to this, and nothing else touches the database directly.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ─── Config ──────────────────────────────────────────────────────────────────

type Config struct {
	DataDir          string
	DedupWindow      time.Duration
	SessionRetention time.Duration
	SemanticEnabled  bool
	SemanticProfile  string
	MaxSearchResults int
}

func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:          filepath.Join(home, ".agentslack"),
		DedupWindow:      10 * time.Minute,
		SessionRetention: 24 * time.Hour,
		SemanticEnabled:  false,
		SemanticProfile:  "balanced",
		MaxSearchResults: 50,
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

type Store struct {
	db  *sql.DB
	cfg Config
}

func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("agentslack: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "agentslack.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("agentslack: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("agentslack: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("agentslack: migration: %w", err)
	}
	return s, nil
}

// NewInMemory opens an ephemeral store, for tests and single-shot CLI use.
func NewInMemory() (*Store, error) {
	db, err := sql.Open("sqlite", "file::memory:?cache=shared")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}
	s := &Store{db: db, cfg: DefaultConfig()}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Config() Config { return s.cfg }

// DB exposes the underlying handle. No package in the module calls it; the
// engines and views go through the Store's exported methods.
func (s *Store) DB() *sql.DB { return s.db }

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS projects (
			id           TEXT PRIMARY KEY,
			path         TEXT NOT NULL,
			display_name TEXT NOT NULL,
			created_at   TEXT NOT NULL DEFAULT (datetime('now')),
			last_active  TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS agents (
			name            TEXT NOT NULL,
			scope           TEXT NOT NULL,
			description     TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL DEFAULT 'offline',
			dm_policy       TEXT NOT NULL DEFAULT 'open',
			discoverability TEXT NOT NULL DEFAULT 'public',
			metadata        TEXT NOT NULL DEFAULT '{}',
			created_at      TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (name, scope)
		);

		CREATE TABLE IF NOT EXISTS project_links (
			project_a  TEXT NOT NULL,
			project_b  TEXT NOT NULL,
			link_type  TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (project_a, project_b)
		);

		CREATE TABLE IF NOT EXISTS channels (
			handle        TEXT PRIMARY KEY,
			channel_type  TEXT NOT NULL,
			access_type   TEXT NOT NULL,
			scope         TEXT NOT NULL,
			name          TEXT NOT NULL,
			description   TEXT NOT NULL DEFAULT '',
			is_default    INTEGER NOT NULL DEFAULT 0,
			archived      INTEGER NOT NULL DEFAULT 0,
			creator_name  TEXT,
			creator_scope TEXT,
			created_at    TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_channels_scope ON channels(scope);
		CREATE INDEX IF NOT EXISTS idx_channels_default ON channels(is_default, archived);

		CREATE TABLE IF NOT EXISTS channel_members (
			channel         TEXT NOT NULL REFERENCES channels(handle),
			agent_name      TEXT NOT NULL,
			agent_scope     TEXT NOT NULL,
			invited_by      TEXT NOT NULL,
			source          TEXT NOT NULL DEFAULT 'manual',
			can_leave       INTEGER NOT NULL DEFAULT 1,
			can_send        INTEGER NOT NULL DEFAULT 1,
			can_invite      INTEGER NOT NULL DEFAULT 0,
			can_manage      INTEGER NOT NULL DEFAULT 0,
			is_from_default INTEGER NOT NULL DEFAULT 0,
			is_muted        INTEGER NOT NULL DEFAULT 0,
			joined_at       TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (channel, agent_name, agent_scope)
		);

		CREATE INDEX IF NOT EXISTS idx_members_agent ON channel_members(agent_name, agent_scope);

		CREATE TABLE IF NOT EXISTS messages (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			channel       TEXT NOT NULL REFERENCES channels(handle),
			sender_name   TEXT NOT NULL,
			sender_scope  TEXT NOT NULL,
			content       TEXT NOT NULL,
			created_at    TEXT NOT NULL DEFAULT (datetime('now')),
			thread_handle TEXT,
			metadata      TEXT NOT NULL DEFAULT '{}',
			is_edited     INTEGER NOT NULL DEFAULT 0,
			edited_at     TEXT,
			confidence    REAL,
			intent_type   TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(channel, id);
		CREATE INDEX IF NOT EXISTS idx_messages_thread  ON messages(thread_handle);

		CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
			content,
			channel,
			sender_name,
			intent_type,
			content='messages',
			content_rowid='id'
		);

		CREATE TABLE IF NOT EXISTS dm_permissions (
			owner_name  TEXT NOT NULL,
			owner_scope TEXT NOT NULL,
			other_name  TEXT NOT NULL,
			other_scope TEXT NOT NULL,
			permission  TEXT NOT NULL,
			reason      TEXT NOT NULL DEFAULT '',
			created_at  TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (owner_name, owner_scope, other_name, other_scope)
		);

		CREATE TABLE IF NOT EXISTS sessions (
			id              TEXT PRIMARY KEY,
			project_id      TEXT,
			project_path    TEXT,
			project_name    TEXT,
			transcript_path TEXT,
			scope           TEXT NOT NULL DEFAULT 'global',
			updated_at      TEXT NOT NULL DEFAULT (datetime('now')),
			metadata        TEXT NOT NULL DEFAULT '{}'
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);

		CREATE TABLE IF NOT EXISTS tool_calls (
			session_id TEXT NOT NULL,
			tool_name  TEXT NOT NULL,
			digest     TEXT NOT NULL,
			called_at  TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (session_id, tool_name, digest, called_at)
		);

		CREATE INDEX IF NOT EXISTS idx_tool_calls_lookup ON tool_calls(session_id, tool_name, digest);

		CREATE TABLE IF NOT EXISTS config_sync_log (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			action     TEXT NOT NULL,
			detail     TEXT NOT NULL DEFAULT '',
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	var triggerName string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='trigger' AND name='msg_fts_insert'",
	).Scan(&triggerName)
	if err == sql.ErrNoRows {
		triggers := `
			CREATE TRIGGER msg_fts_insert AFTER INSERT ON messages BEGIN
				INSERT INTO messages_fts(rowid, content, channel, sender_name, intent_type)
				VALUES (new.id, new.content, new.channel, new.sender_name, new.intent_type);
			END;

			CREATE TRIGGER msg_fts_delete AFTER DELETE ON messages BEGIN
				INSERT INTO messages_fts(messages_fts, rowid, content, channel, sender_name, intent_type)
				VALUES ('delete', old.id, old.content, old.channel, old.sender_name, old.intent_type);
			END;

			CREATE TRIGGER msg_fts_update AFTER UPDATE ON messages BEGIN
				INSERT INTO messages_fts(messages_fts, rowid, content, channel, sender_name, intent_type)
				VALUES ('delete', old.id, old.content, old.channel, old.sender_name, old.intent_type);
				INSERT INTO messages_fts(rowid, content, channel, sender_name, intent_type)
				VALUES (new.id, new.content, new.channel, new.sender_name, new.intent_type);
			END;
		`
		if _, err := s.db.Exec(triggers); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	return nil
}

// ─── Helpers shared across the package ──────────────────────────────────────

// NullableString returns nil for an empty string, otherwise a pointer to it —
// for optional TEXT columns like thread_handle and creator_name.
func NullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// DerefString returns the empty string for a nil pointer.
func DerefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// RelativeWindowExpr turns a duration into a SQLite `datetime('now', expr)`
// modifier, e.g. "-10 minutes".
func RelativeWindowExpr(d time.Duration) string {
	if d <= 0 {
		d = 10 * time.Minute
	}
	minutes := int(d.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	return "-" + strconv.Itoa(minutes) + " minutes"
}

// sanitizeFTS wraps each word in quotes so FTS5 doesn't choke on special
// characters — "fix @bob's bug" → `"fix" "bob's" "bug"`.
func sanitizeFTS(query string) string {
	words := strings.Fields(query)
	out := words[:0]
	for _, w := range words {
		w = strings.Trim(w, `"`)
		if w == "" {
			continue
		}
		out = append(out, `"`+w+`"`)
	}
	return strings.Join(out, " ")
}

// Now returns the current time formatted for SQLite comparisons.
func Now() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05")
}

// Stats is a point-in-time snapshot of host activity, for the TUI dashboard.
type Stats struct {
	Projects int
	Agents   int
	Channels int
	Messages int
}

func (s *Store) Stats() (*Stats, error) {
	var st Stats
	if err := s.db.QueryRow(`SELECT count(*) FROM projects`).Scan(&st.Projects); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow(`SELECT count(*) FROM agents`).Scan(&st.Agents); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow(`SELECT count(*) FROM channels WHERE archived = 0`).Scan(&st.Channels); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow(`SELECT count(*) FROM messages`).Scan(&st.Messages); err != nil {
		return nil, err
	}
	return &st, nil
}
