package store

import (
	"database/sql"
	"fmt"
)

// RegisterProject upserts a project row, bumping last_active on repeat
// registration (one per working directory root, keyed by the caller's
// derived project id).
func (s *Store) RegisterProject(id, path, displayName string) (Project, error) {
	_, err := s.db.Exec(`
		INSERT INTO projects (id, path, display_name)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			display_name = excluded.display_name,
			last_active = datetime('now')
	`, id, path, displayName)
	if err != nil {
		return Project{}, fmt.Errorf("register project: %w", err)
	}
	return s.GetProject(id)
}

func (s *Store) GetProject(id string) (Project, error) {
	var p Project
	err := s.db.QueryRow(`
		SELECT id, path, display_name, created_at, last_active
		FROM projects WHERE id = ?
	`, id).Scan(&p.ID, &p.Path, &p.DisplayName, &p.CreatedAt, &p.LastActive)
	if err == sql.ErrNoRows {
		return Project{}, ErrNotFound
	}
	if err != nil {
		return Project{}, err
	}
	return p, nil
}

func (s *Store) ListProjects() ([]Project, error) {
	rows, err := s.db.Query(`
		SELECT id, path, display_name, created_at, last_active
		FROM projects ORDER BY last_active DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Path, &p.DisplayName, &p.CreatedAt, &p.LastActive); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LinkProjects records a project_links row. LinkType is one of
// "bidirectional", "a_to_b", "b_to_a" — the direction convention matches
// the order the caller passes projectA/projectB.
func (s *Store) LinkProjects(projectA, projectB, linkType string) error {
	_, err := s.db.Exec(`
		INSERT INTO project_links (project_a, project_b, link_type)
		VALUES (?, ?, ?)
		ON CONFLICT(project_a, project_b) DO UPDATE SET link_type = excluded.link_type
	`, projectA, projectB, linkType)
	return err
}

func (s *Store) UnlinkProjects(projectA, projectB string) error {
	_, err := s.db.Exec(`
		DELETE FROM project_links WHERE project_a = ? AND project_b = ?
	`, projectA, projectB)
	return err
}

// LinkedProjects returns every project linked to the given one, from
// either side of the pair, along with the link_type as stored.
func (s *Store) LinkedProjects(projectID string) ([]ProjectLink, error) {
	rows, err := s.db.Query(`
		SELECT project_a, project_b, link_type, created_at
		FROM project_links
		WHERE project_a = ? OR project_b = ?
	`, projectID, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProjectLink
	for rows.Next() {
		var l ProjectLink
		if err := rows.Scan(&l.ProjectA, &l.ProjectB, &l.LinkType, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
