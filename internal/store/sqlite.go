package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"

	"github.com/pbaille/kanban/internal/domain"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned when a note, notebook or setting does not exist
var ErrNotFound = errors.New("not found")

// Store is the sqlite note store
type Store struct {
	db  *sql.DB
	log *log.Logger
	now func() time.Time
}

// New opens the database at dbPath and initializes its schema
func New(dbPath string, logger *log.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	if logger == nil {
		logger = log.StandardLogger()
	}

	return &Store{db: db, log: logger, now: time.Now}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// NewNote holds the fields of a note to create
type NewNote struct {
	Title      string
	Body       string
	NotebookID string
	IsTodo     bool
	Tags       []string
}

// AddNote creates a note, attaching its tags (created as needed)
func (s *Store) AddNote(ctx context.Context, n NewNote) (*domain.Note, error) {
	id := uuid.New().String()
	now := s.now().UnixMilli()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (id, title, body, parent_id, is_todo, created_time, updated_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, n.Title, n.Body, n.NotebookID, n.IsTodo, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}

	for _, name := range n.Tags {
		tagID, err := s.TagID(ctx, name)
		if err != nil {
			return nil, err
		}
		if err := linkTag(ctx, s.db, tagID, id); err != nil {
			return nil, err
		}
	}

	return s.GetNote(ctx, id)
}

// GetNote retrieves a note by id with its tags
func (s *Store) GetNote(ctx context.Context, id string) (*domain.Note, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, parent_id, is_todo, todo_completed, todo_due, "order", created_time
		 FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("note %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}

	tags, err := s.noteTags(ctx, id)
	if err != nil {
		return nil, err
	}
	n.Tags = tags

	return &n, nil
}

// GetConfigNote retrieves the fields of a note needed to open a board
func (s *Store) GetConfigNote(ctx context.Context, id string) (domain.ConfigNote, error) {
	var n domain.ConfigNote
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, parent_id, body FROM notes WHERE id = ?", id,
	).Scan(&n.ID, &n.Title, &n.ParentID, &n.Body)
	if errors.Is(err, sql.ErrNoRows) {
		return n, fmt.Errorf("note %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return n, fmt.Errorf("get config note: %w", err)
	}
	return n, nil
}

// SetNoteBody replaces the body of a note
func (s *Store) SetNoteBody(ctx context.Context, id, body string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notes SET body = ?, updated_time = ? WHERE id = ?",
		body, s.now().UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("update note body: %w", err)
	}
	return expectOne(res, "note "+id)
}

// DeleteNote removes a note together with its tag links
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return expectOne(res, "note "+id)
}

// SearchNotes returns every note carrying tag inside the given notebooks.
// No notebook ids means every notebook.
func (s *Store) SearchNotes(ctx context.Context, notebookIDs []string, tag string) ([]domain.Note, error) {
	query := `SELECT n.id, n.title, n.parent_id, n.is_todo, n.todo_completed, n.todo_due, n."order", n.created_time
		FROM notes n
		JOIN note_tags nt ON nt.note_id = n.id
		JOIN tags t ON t.id = nt.tag_id
		WHERE t.title = ?`
	args := []any{tag}
	if len(notebookIDs) > 0 {
		query += " AND n.parent_id IN (?" + strings.Repeat(", ?", len(notebookIDs)-1) + ")"
		for _, id := range notebookIDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY n.created_time DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search notes: %w", err)
	}
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search notes: %w", err)
	}

	for i := range notes {
		tags, err := s.noteTags(ctx, notes[i].ID)
		if err != nil {
			return nil, err
		}
		notes[i].Tags = tags
	}

	return notes, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner) (domain.Note, error) {
	var n domain.Note
	var completed int64
	err := row.Scan(&n.ID, &n.Title, &n.NotebookID, &n.IsTodo, &completed, &n.Due, &n.Order, &n.CreatedTime)
	n.IsCompleted = completed != 0
	return n, err
}

func (s *Store) noteTags(ctx context.Context, noteID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.title
		FROM tags t
		JOIN note_tags nt ON t.id = nt.tag_id
		WHERE nt.note_id = ?
		ORDER BY t.title
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("get note tags: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// TagID finds a tag by name or creates it
func (s *Store) TagID(ctx context.Context, name string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, "SELECT id FROM tags WHERE title = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("find tag: %w", err)
	}

	id = uuid.New().String()
	if _, err := s.db.ExecContext(ctx, "INSERT INTO tags (id, title) VALUES (?, ?)", id, name); err != nil {
		return "", fmt.Errorf("insert tag: %w", err)
	}
	s.log.WithField("tag", name).Debug("created tag")
	return id, nil
}

// ListTags returns all tags
func (s *Store) ListTags(ctx context.Context) ([]domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, title FROM tags ORDER BY title")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Title); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// Setting returns the value stored under key
func (s *Store) Setting(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("setting %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get setting: %w", err)
	}
	return v, nil
}

// SetSetting stores value under key
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func linkTag(ctx context.Context, db execer, tagID, noteID string) error {
	_, err := db.ExecContext(ctx,
		"INSERT OR IGNORE INTO note_tags (note_id, tag_id) VALUES (?, ?)",
		noteID, tagID,
	)
	if err != nil {
		return fmt.Errorf("link note tag: %w", err)
	}
	return nil
}

func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
