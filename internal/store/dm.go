package store

import "database/sql"

// SetDMPermission records an explicit allow/block decision one agent makes
// about another. owner is the agent whose policy is being set; other is the
// agent it applies to.
func (s *Store) SetDMPermission(p DMPermission) error {
	_, err := s.db.Exec(`
		INSERT INTO dm_permissions (owner_name, owner_scope, other_name, other_scope, permission, reason)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_name, owner_scope, other_name, other_scope) DO UPDATE SET
			permission = excluded.permission,
			reason     = excluded.reason
	`, p.OwnerName, p.OwnerScope, p.OtherName, p.OtherScope, p.Permission, p.Reason)
	return err
}

func (s *Store) RemoveDMPermission(owner, other AgentID) error {
	_, err := s.db.Exec(`
		DELETE FROM dm_permissions
		WHERE owner_name = ? AND owner_scope = ? AND other_name = ? AND other_scope = ?
	`, owner.Name, owner.Scope, other.Name, other.Scope)
	return err
}

// GetDMPermission returns the explicit rule owner has set for other, if any.
func (s *Store) GetDMPermission(owner, other AgentID) (DMPermission, error) {
	var p DMPermission
	err := s.db.QueryRow(`
		SELECT owner_name, owner_scope, other_name, other_scope, permission, reason, created_at
		FROM dm_permissions
		WHERE owner_name = ? AND owner_scope = ? AND other_name = ? AND other_scope = ?
	`, owner.Name, owner.Scope, other.Name, other.Scope).Scan(
		&p.OwnerName, &p.OwnerScope, &p.OtherName, &p.OtherScope, &p.Permission, &p.Reason, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return DMPermission{}, ErrNotFound
	}
	return p, err
}

func (s *Store) ListDMPermissions(owner AgentID) ([]DMPermission, error) {
	rows, err := s.db.Query(`
		SELECT owner_name, owner_scope, other_name, other_scope, permission, reason, created_at
		FROM dm_permissions WHERE owner_name = ? AND owner_scope = ?
	`, owner.Name, owner.Scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DMPermission
	for rows.Next() {
		var p DMPermission
		if err := rows.Scan(&p.OwnerName, &p.OwnerScope, &p.OtherName, &p.OtherScope, &p.Permission, &p.Reason, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
