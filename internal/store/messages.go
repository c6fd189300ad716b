package store

import "database/sql"

func (s *Store) InsertMessage(m Message) (Message, error) {
	if m.Metadata == "" {
		m.Metadata = "{}"
	}
	res, err := s.db.Exec(`
		INSERT INTO messages (channel, sender_name, sender_scope, content, thread_handle, metadata, confidence, intent_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.Channel, m.SenderName, m.SenderScope, m.Content, m.ThreadHandle, m.Metadata, m.Confidence, m.IntentType)
	if err != nil {
		return Message{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Message{}, err
	}
	return s.GetMessage(id)
}

func (s *Store) GetMessage(id int64) (Message, error) {
	m, err := scanMessageRow(s.db.QueryRow(`
		SELECT id, channel, sender_name, sender_scope, content, created_at, thread_handle, metadata, is_edited, edited_at, confidence, intent_type
		FROM messages WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return Message{}, ErrNotFound
	}
	return m, err
}

func (s *Store) EditMessage(id int64, newContent string) (Message, error) {
	res, err := s.db.Exec(`
		UPDATE messages SET content = ?, is_edited = 1, edited_at = datetime('now')
		WHERE id = ?
	`, newContent, id)
	if err != nil {
		return Message{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Message{}, ErrNotFound
	}
	return s.GetMessage(id)
}

// SoftDeleteMessage blanks the content rather than removing the row, so
// thread/reply structure and search history stay consistent; callers
// present a tombstone instead of the original text.
func (s *Store) SoftDeleteMessage(id int64, deletedBy string) error {
	res, err := s.db.Exec(`
		UPDATE messages SET content = '[Message deleted]', is_edited = 1, edited_at = datetime('now'),
			metadata = json_set(metadata, '$.deleted', json_object('by', ?, 'at', datetime('now')))
		WHERE id = ?
	`, deletedBy, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListMessages(channel string, limit int, beforeID int64) ([]Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var rows *sql.Rows
	var err error
	if beforeID > 0 {
		rows, err = s.db.Query(`
			SELECT id, channel, sender_name, sender_scope, content, created_at, thread_handle, metadata, is_edited, edited_at, confidence, intent_type
			FROM messages WHERE channel = ? AND id < ?
			ORDER BY id DESC LIMIT ?
		`, channel, beforeID, limit)
	} else {
		rows, err = s.db.Query(`
			SELECT id, channel, sender_name, sender_scope, content, created_at, thread_handle, metadata, is_edited, edited_at, confidence, intent_type
			FROM messages WHERE channel = ?
			ORDER BY id DESC LIMIT ?
		`, channel, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (s *Store) ListThread(threadHandle string) ([]Message, error) {
	rows, err := s.db.Query(`
		SELECT id, channel, sender_name, sender_scope, content, created_at, thread_handle, metadata, is_edited, edited_at, confidence, intent_type
		FROM messages WHERE thread_handle = ?
		ORDER BY id ASC
	`, threadHandle)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// SearchLexical runs an FTS5 match across the given channel set (typically
// the caller's agent_channels projection), newest first; each hit carries
// its bm25 score as Rank.
func (s *Store) SearchLexical(query string, channels []string, limit int) ([]SearchResult, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if len(channels) == 0 {
		return nil, nil
	}
	placeholders := make([]byte, 0, len(channels)*2)
	args := []any{sanitizeFTS(query)}
	for i, c := range channels {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, c)
	}
	args = append(args, limit)

	q := `
		SELECT m.id, m.channel, m.sender_name, m.sender_scope, m.content, m.created_at,
		       m.thread_handle, m.metadata, m.is_edited, m.edited_at, m.confidence, m.intent_type,
		       bm25(messages_fts) AS rank
		FROM messages_fts
		JOIN messages m ON m.id = messages_fts.rowid
		WHERE messages_fts MATCH ? AND m.channel IN (` + string(placeholders) + `)
		ORDER BY m.created_at DESC, m.id DESC LIMIT ?
	`
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := scanMessageInto(rows, &r.Message, &r.Rank); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	var out []Message
	for rows.Next() {
		var m Message
		if err := scanMessageInto(rows, &m, nil); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessageRow(row *sql.Row) (Message, error) {
	var m Message
	err := scanMessageInto(row, &m, nil)
	return m, err
}

func scanMessageInto(r rowScanner, m *Message, rank *float64) error {
	dest := []any{
		&m.ID, &m.Channel, &m.SenderName, &m.SenderScope, &m.Content, &m.CreatedAt,
		&m.ThreadHandle, &m.Metadata, new(int), &m.EditedAt, &m.Confidence, &m.IntentType,
	}
	isEditedIdx := 8
	if rank != nil {
		dest = append(dest, rank)
	}
	if err := r.Scan(dest...); err != nil {
		return err
	}
	m.IsEdited = *(dest[isEditedIdx].(*int)) != 0
	return nil
}
