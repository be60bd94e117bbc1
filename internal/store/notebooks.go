package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/pbaille/kanban/internal/domain"
)

// CreateNotebook creates a notebook under parentID ("" for top level)
func (s *Store) CreateNotebook(ctx context.Context, title, parentID string) (*domain.Notebook, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO notebooks (id, title, parent_id, created_time) VALUES (?, ?, ?, ?)",
		id, title, parentID, s.now().UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert notebook: %w", err)
	}
	s.log.WithFields(log.Fields{"notebook": title, "parent": parentID}).Debug("created notebook")
	return &domain.Notebook{ID: id, Title: title, ParentID: parentID}, nil
}

// ListNotebooks returns every notebook
func (s *Store) ListNotebooks(ctx context.Context) ([]domain.Notebook, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, title, parent_id FROM notebooks ORDER BY title")
	if err != nil {
		return nil, fmt.Errorf("list notebooks: %w", err)
	}
	defer rows.Close()

	var notebooks []domain.Notebook
	for rows.Next() {
		var nb domain.Notebook
		if err := rows.Scan(&nb.ID, &nb.Title, &nb.ParentID); err != nil {
			return nil, fmt.Errorf("scan notebook: %w", err)
		}
		notebooks = append(notebooks, nb)
	}
	return notebooks, rows.Err()
}

// FindNotebook walks path from the top level and returns the id of the
// notebook it names. "/" names the root, whose id is "".
func (s *Store) FindNotebook(ctx context.Context, path string) (string, error) {
	parentID := ""
	for _, part := range splitPath(path) {
		var id string
		err := s.db.QueryRowContext(ctx,
			"SELECT id FROM notebooks WHERE title = ? AND parent_id = ? ORDER BY created_time LIMIT 1",
			part, parentID,
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("notebook %s: %w", path, ErrNotFound)
		}
		if err != nil {
			return "", fmt.Errorf("find notebook: %w", err)
		}
		parentID = id
	}
	return parentID, nil
}

// ResolveNotebook returns the id of the notebook at path, creating it and
// any missing parents
func (s *Store) ResolveNotebook(ctx context.Context, path string) (string, error) {
	parentID := ""
	for _, part := range splitPath(path) {
		var id string
		err := s.db.QueryRowContext(ctx,
			"SELECT id FROM notebooks WHERE title = ? AND parent_id = ? ORDER BY created_time LIMIT 1",
			part, parentID,
		).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			nb, err := s.CreateNotebook(ctx, part, parentID)
			if err != nil {
				return "", err
			}
			id = nb.ID
		case err != nil:
			return "", fmt.Errorf("find notebook: %w", err)
		}
		parentID = id
	}
	return parentID, nil
}

// NotebookDescendants returns the ids of every notebook below id. The
// root ("") has every notebook below it.
func (s *Store) NotebookDescendants(ctx context.Context, id string) ([]string, error) {
	notebooks, err := s.ListNotebooks(ctx)
	if err != nil {
		return nil, err
	}

	children := make(map[string][]string)
	for _, nb := range notebooks {
		children[nb.ParentID] = append(children[nb.ParentID], nb.ID)
	}

	var out []string
	var walk func(id string)
	walk = func(id string) {
		for _, c := range children[id] {
			out = append(out, c)
			walk(c)
		}
	}
	walk(id)

	return out, nil
}

// NotebookPath returns the path of the notebook id, such as "/work/tasks"
func (s *Store) NotebookPath(ctx context.Context, id string) (string, error) {
	notebooks, err := s.ListNotebooks(ctx)
	if err != nil {
		return "", err
	}

	byID := make(map[string]domain.Notebook, len(notebooks))
	for _, nb := range notebooks {
		byID[nb.ID] = nb
	}

	var parts []string
	seen := make(map[string]bool)
	for cur := id; cur != ""; {
		nb, ok := byID[cur]
		if !ok || seen[cur] {
			return "", fmt.Errorf("notebook %s: %w", id, ErrNotFound)
		}
		seen[cur] = true
		parts = append([]string{nb.Title}, parts...)
		cur = nb.ParentID
	}

	return "/" + strings.Join(parts, "/"), nil
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
