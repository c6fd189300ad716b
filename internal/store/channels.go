package store

import (
	"database/sql"
	"strings"
)

// CreateChannel inserts a channel row. Returns ErrAlreadyExists if the
// handle is taken — the channel engine treats that as idempotent success
// and returns the existing row unchanged.
func (s *Store) CreateChannel(c Channel) (Channel, error) {
	_, err := s.db.Exec(`
		INSERT INTO channels (handle, channel_type, access_type, scope, name, description, is_default, archived, creator_name, creator_scope)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.Handle, c.ChannelType, c.AccessType, c.Scope, c.Name, c.Description,
		boolToInt(c.IsDefault), boolToInt(c.Archived), c.CreatorName, c.CreatorScope)
	if isUniqueViolation(err) {
		return Channel{}, ErrAlreadyExists
	}
	if err != nil {
		return Channel{}, err
	}
	return s.GetChannel(c.Handle)
}

func (s *Store) GetChannel(handle string) (Channel, error) {
	var c Channel
	var isDefault, archived int
	err := s.db.QueryRow(`
		SELECT handle, channel_type, access_type, scope, name, description, is_default, archived, creator_name, creator_scope, created_at
		FROM channels WHERE handle = ?
	`, handle).Scan(&c.Handle, &c.ChannelType, &c.AccessType, &c.Scope, &c.Name, &c.Description,
		&isDefault, &archived, &c.CreatorName, &c.CreatorScope, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return Channel{}, ErrNotFound
	}
	if err != nil {
		return Channel{}, err
	}
	c.IsDefault = isDefault != 0
	c.Archived = archived != 0
	return c, nil
}

func (s *Store) SetChannelArchived(handle string, archived bool) error {
	res, err := s.db.Exec(`UPDATE channels SET archived = ? WHERE handle = ?`, boolToInt(archived), handle)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListChannelsByScope returns non-archived channels visible to a scope:
// global channels plus the project-scoped ones, optionally including
// archived rows.
func (s *Store) ListChannelsByScope(scope string, includeArchived bool) ([]Channel, error) {
	query := `
		SELECT handle, channel_type, access_type, scope, name, description, is_default, archived, creator_name, creator_scope, created_at
		FROM channels
		WHERE (scope = ? OR scope = ?)
	`
	args := []any{scope, GlobalScope}
	if !includeArchived {
		query += ` AND archived = 0`
	}
	query += ` ORDER BY scope, name`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChannels(rows)
}

// ListChannelsByScopes returns non-archived channels visible to any of the
// given scopes (e.g. an agent's own scope, global, and its linked project
// scopes), optionally including archived rows.
func (s *Store) ListChannelsByScopes(scopes []string, includeArchived bool) ([]Channel, error) {
	if len(scopes) == 0 {
		return nil, nil
	}
	placeholders := make([]byte, 0, len(scopes)*2)
	args := make([]any, 0, len(scopes))
	for i, sc := range scopes {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, sc)
	}
	query := `
		SELECT handle, channel_type, access_type, scope, name, description, is_default, archived, creator_name, creator_scope, created_at
		FROM channels
		WHERE scope IN (` + string(placeholders) + `)
	`
	if !includeArchived {
		query += ` AND archived = 0`
	}
	query += ` ORDER BY scope, name`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChannels(rows)
}

func (s *Store) ListDefaultChannels(scope string) ([]Channel, error) {
	rows, err := s.db.Query(`
		SELECT handle, channel_type, access_type, scope, name, description, is_default, archived, creator_name, creator_scope, created_at
		FROM channels
		WHERE is_default = 1 AND (scope = ? OR scope = ?) AND archived = 0
	`, scope, GlobalScope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChannels(rows)
}

func scanChannels(rows *sql.Rows) ([]Channel, error) {
	var out []Channel
	for rows.Next() {
		var c Channel
		var isDefault, archived int
		if err := rows.Scan(&c.Handle, &c.ChannelType, &c.AccessType, &c.Scope, &c.Name, &c.Description,
			&isDefault, &archived, &c.CreatorName, &c.CreatorScope, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.IsDefault = isDefault != 0
		c.Archived = archived != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// ─── Membership ──────────────────────────────────────────────────────────────

func (s *Store) AddMember(m ChannelMember) (ChannelMember, error) {
	if m.InvitedBy == "" {
		m.InvitedBy = "self"
	}
	if m.Source == "" {
		m.Source = "manual"
	}
	_, err := s.db.Exec(`
		INSERT INTO channel_members
			(channel, agent_name, agent_scope, invited_by, source, can_leave, can_send, can_invite, can_manage, is_from_default)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel, agent_name, agent_scope) DO NOTHING
	`, m.Channel, m.AgentName, m.AgentScope, m.InvitedBy, m.Source,
		boolToInt(m.CanLeave), boolToInt(m.CanSend), boolToInt(m.CanInvite), boolToInt(m.CanManage), boolToInt(m.IsFromDefault))
	if err != nil {
		return ChannelMember{}, err
	}
	return s.GetMember(m.Channel, AgentID{Name: m.AgentName, Scope: m.AgentScope})
}

func (s *Store) RemoveMember(channel string, agent AgentID) error {
	res, err := s.db.Exec(`
		DELETE FROM channel_members WHERE channel = ? AND agent_name = ? AND agent_scope = ?
	`, channel, agent.Name, agent.Scope)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetMember(channel string, agent AgentID) (ChannelMember, error) {
	var m ChannelMember
	var canLeave, canSend, canInvite, canManage, isDefault, isMuted int
	err := s.db.QueryRow(`
		SELECT channel, agent_name, agent_scope, invited_by, source, can_leave, can_send, can_invite, can_manage, is_from_default, is_muted, joined_at
		FROM channel_members WHERE channel = ? AND agent_name = ? AND agent_scope = ?
	`, channel, agent.Name, agent.Scope).Scan(&m.Channel, &m.AgentName, &m.AgentScope, &m.InvitedBy, &m.Source,
		&canLeave, &canSend, &canInvite, &canManage, &isDefault, &isMuted, &m.JoinedAt)
	if err == sql.ErrNoRows {
		return ChannelMember{}, ErrNotFound
	}
	if err != nil {
		return ChannelMember{}, err
	}
	m.CanLeave, m.CanSend, m.CanInvite, m.CanManage = canLeave != 0, canSend != 0, canInvite != 0, canManage != 0
	m.IsFromDefault, m.IsMuted = isDefault != 0, isMuted != 0
	return m, nil
}

func (s *Store) ListMembers(channel string) ([]ChannelMember, error) {
	rows, err := s.db.Query(`
		SELECT channel, agent_name, agent_scope, invited_by, source, can_leave, can_send, can_invite, can_manage, is_from_default, is_muted, joined_at
		FROM channel_members WHERE channel = ?
		ORDER BY joined_at
	`, channel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChannelMember
	for rows.Next() {
		var m ChannelMember
		var canLeave, canSend, canInvite, canManage, isDefault, isMuted int
		if err := rows.Scan(&m.Channel, &m.AgentName, &m.AgentScope, &m.InvitedBy, &m.Source,
			&canLeave, &canSend, &canInvite, &canManage, &isDefault, &isMuted, &m.JoinedAt); err != nil {
			return nil, err
		}
		m.CanLeave, m.CanSend, m.CanInvite, m.CanManage = canLeave != 0, canSend != 0, canInvite != 0, canManage != 0
		m.IsFromDefault, m.IsMuted = isDefault != 0, isMuted != 0
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListMemberships returns every channel an agent belongs to, joined with
// the channel row — the raw material for the agent_channels view.
func (s *Store) ListMemberships(agent AgentID) ([]ChannelMember, error) {
	rows, err := s.db.Query(`
		SELECT channel, agent_name, agent_scope, invited_by, source, can_leave, can_send, can_invite, can_manage, is_from_default, is_muted, joined_at
		FROM channel_members WHERE agent_name = ? AND agent_scope = ?
	`, agent.Name, agent.Scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChannelMember
	for rows.Next() {
		var m ChannelMember
		var canLeave, canSend, canInvite, canManage, isDefault, isMuted int
		if err := rows.Scan(&m.Channel, &m.AgentName, &m.AgentScope, &m.InvitedBy, &m.Source,
			&canLeave, &canSend, &canInvite, &canManage, &isDefault, &isMuted, &m.JoinedAt); err != nil {
			return nil, err
		}
		m.CanLeave, m.CanSend, m.CanInvite, m.CanManage = canLeave != 0, canSend != 0, canInvite != 0, canManage != 0
		m.IsFromDefault, m.IsMuted = isDefault != 0, isMuted != 0
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) SetMemberMuted(channel string, agent AgentID, muted bool) error {
	res, err := s.db.Exec(`
		UPDATE channel_members SET is_muted = ? WHERE channel = ? AND agent_name = ? AND agent_scope = ?
	`, boolToInt(muted), channel, agent.Name, agent.Scope)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// modernc.org/sqlite surfaces constraint violations with this substring
	// in the error text; there is no typed sentinel exported for it.
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: UNIQUE")
}
