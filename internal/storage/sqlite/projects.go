package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"taskhub/internal/models"
)

// ListProjects retrieves all projects ordered by creation date.
func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, client_name, status, completion, start_date, created_at FROM projects ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// CreateProject persists a new project.
func (s *Store) CreateProject(ctx context.Context, p models.Project) (models.Project, error) {
	if strings.TrimSpace(p.Name) == "" {
		return models.Project{}, fmt.Errorf("project name must not be empty")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = "active"
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects(id, name, client_name, status, completion, start_date) VALUES(?, ?, ?, ?, ?, ?)`,
		p.ID, strings.TrimSpace(p.Name), strings.TrimSpace(p.ClientName), p.Status, p.Completion, p.StartDate)
	if err != nil {
		return models.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return s.GetProject(ctx, p.ID)
}

// GetProject fetches a single project by id.
func (s *Store) GetProject(ctx context.Context, id string) (models.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, client_name, status, completion, start_date, created_at FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (models.Project, error) {
	var p models.Project
	var completion sql.NullFloat64
	var startDate sql.NullTime
	if err := row.Scan(&p.ID, &p.Name, &p.ClientName, &p.Status, &completion, &startDate, &p.CreatedAt); err != nil {
		return models.Project{}, err
	}
	if completion.Valid {
		p.Completion = &completion.Float64
	}
	if startDate.Valid {
		t := startDate.Time
		p.StartDate = &t
	}
	return p, nil
}
