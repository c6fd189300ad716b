package store

import "database/sql"

// UpsertAgent registers or refreshes an agent's presence row, overwriting
// every mutable column of an existing row.
func (s *Store) UpsertAgent(a Agent) (Agent, error) {
	if a.Status == "" {
		a.Status = "online"
	}
	if a.DMPolicy == "" {
		a.DMPolicy = "open"
	}
	if a.Discoverability == "" {
		a.Discoverability = "public"
	}
	if a.Metadata == "" {
		a.Metadata = "{}"
	}
	_, err := s.db.Exec(`
		INSERT INTO agents (name, scope, description, status, dm_policy, discoverability, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name, scope) DO UPDATE SET
			description     = excluded.description,
			status          = excluded.status,
			dm_policy       = excluded.dm_policy,
			discoverability = excluded.discoverability,
			metadata        = excluded.metadata
	`, a.Name, a.Scope, a.Description, a.Status, a.DMPolicy, a.Discoverability, a.Metadata)
	if err != nil {
		return Agent{}, err
	}
	return s.GetAgent(AgentID{Name: a.Name, Scope: a.Scope})
}

func (s *Store) SetAgentStatus(id AgentID, status string) error {
	res, err := s.db.Exec(`
		UPDATE agents SET status = ? WHERE name = ? AND scope = ?
	`, status, id.Name, id.Scope)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetAgent(id AgentID) (Agent, error) {
	var a Agent
	err := s.db.QueryRow(`
		SELECT name, scope, description, status, dm_policy, discoverability, metadata, created_at
		FROM agents WHERE name = ? AND scope = ?
	`, id.Name, id.Scope).Scan(&a.Name, &a.Scope, &a.Description, &a.Status, &a.DMPolicy, &a.Discoverability, &a.Metadata, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return Agent{}, ErrNotFound
	}
	if err != nil {
		return Agent{}, err
	}
	return a, nil
}

// ListAgents returns agents visible in a scope: every global agent plus
// every agent registered under the given project scope.
func (s *Store) ListAgents(scope string) ([]Agent, error) {
	rows, err := s.db.Query(`
		SELECT name, scope, description, status, dm_policy, discoverability, metadata, created_at
		FROM agents
		WHERE scope = ? OR scope = ?
		ORDER BY scope, name
	`, scope, GlobalScope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Agent
	for rows.Next() {
		var a Agent
		if err := rows.Scan(&a.Name, &a.Scope, &a.Description, &a.Status, &a.DMPolicy, &a.Discoverability, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
