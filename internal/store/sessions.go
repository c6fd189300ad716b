package store

import "database/sql"

func (s *Store) UpsertSession(sess Session) (Session, error) {
	if sess.Metadata == "" {
		sess.Metadata = "{}"
	}
	if sess.Scope == "" {
		sess.Scope = GlobalScope
	}
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, project_id, project_path, project_name, transcript_path, scope, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id      = excluded.project_id,
			project_path    = excluded.project_path,
			project_name    = excluded.project_name,
			transcript_path = excluded.transcript_path,
			scope           = excluded.scope,
			metadata        = excluded.metadata,
			updated_at      = datetime('now')
	`, sess.ID, sess.ProjectID, sess.ProjectPath, sess.ProjectName, sess.TranscriptPath, sess.Scope, sess.Metadata)
	if err != nil {
		return Session{}, err
	}
	return s.GetSession(sess.ID)
}

func (s *Store) GetSession(id string) (Session, error) {
	var sess Session
	err := s.db.QueryRow(`
		SELECT id, project_id, project_path, project_name, transcript_path, scope, updated_at, metadata
		FROM sessions WHERE id = ?
	`, id).Scan(&sess.ID, &sess.ProjectID, &sess.ProjectPath, &sess.ProjectName, &sess.TranscriptPath,
		&sess.Scope, &sess.UpdatedAt, &sess.Metadata)
	if err == sql.ErrNoRows {
		return Session{}, ErrNotFound
	}
	return sess, err
}

// PruneSessions deletes sessions whose updated_at is older than the
// configured retention window, mirroring the store's dedup-window helper.
func (s *Store) PruneSessions(retentionWindowExpr string) (int64, error) {
	res, err := s.db.Exec(`
		DELETE FROM sessions WHERE updated_at < datetime('now', ?)
	`, retentionWindowExpr)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RecordToolCall inserts a dedup record for an idempotent tool invocation
// and reports whether an identical call was already seen inside the window.
func (s *Store) RecordToolCall(sessionID, toolName, digest string, windowExpr string) (ToolCallOutcome, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM tool_calls
		WHERE session_id = ? AND tool_name = ? AND digest = ? AND called_at >= datetime('now', ?)
	`, sessionID, toolName, digest, windowExpr).Scan(&count)
	if err != nil {
		return "", err
	}
	if count > 0 {
		return ToolCallDuplicate, nil
	}
	_, err = s.db.Exec(`
		INSERT INTO tool_calls (session_id, tool_name, digest) VALUES (?, ?, ?)
	`, sessionID, toolName, digest)
	if err != nil {
		return "", err
	}
	return ToolCallNew, nil
}

func (s *Store) PruneToolCalls(windowExpr string) (int64, error) {
	res, err := s.db.Exec(`
		DELETE FROM tool_calls WHERE called_at < datetime('now', ?)
	`, windowExpr)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// LogConfigSync appends a config_sync_log entry recording one desired/diff
// action. Session registration does not write to this log.
func (s *Store) LogConfigSync(sessionID, action, detail string) error {
	_, err := s.db.Exec(`
		INSERT INTO config_sync_log (session_id, action, detail) VALUES (?, ?, ?)
	`, sessionID, action, detail)
	return err
}

func (s *Store) ListConfigSyncLog(sessionID string, limit int) ([]ConfigSyncEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT id, session_id, action, detail, applied_at
		FROM config_sync_log WHERE session_id = ?
		ORDER BY id DESC LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ConfigSyncEntry
	for rows.Next() {
		var e ConfigSyncEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Action, &e.Detail, &e.AppliedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type ConfigSyncEntry struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id"`
	Action    string `json:"action"`
	Detail    string `json:"detail"`
	AppliedAt string `json:"applied_at"`
}
