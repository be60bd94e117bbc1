package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pbaille/kanban/internal/board"
)

// ErrUnsupported is returned for a mutation the store cannot address
var ErrUnsupported = errors.New("unsupported mutation")

// note columns a put may write
var noteFields = map[string]string{
	"title":          "title",
	"body":           "body",
	"parent_id":      "parent_id",
	"is_todo":        "is_todo",
	"todo_completed": "todo_completed",
	"todo_due":       "todo_due",
	"order":          `"order"`,
}

// ApplyBatch executes mutations in one transaction. Puts on notes leave
// updated_time alone so that board moves do not count as edits.
func (s *Store) ApplyBatch(ctx context.Context, muts []board.Mutation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	for i, m := range muts {
		if err := apply(ctx, tx, m); err != nil {
			return fmt.Errorf("mutation %d (%s %s): %w", i, m.Type, strings.Join(m.Path, "/"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	s.log.WithField("mutations", len(muts)).Debug("applied batch")
	return nil
}

func apply(ctx context.Context, db execer, m board.Mutation) error {
	p := m.Path
	switch {
	case m.Type == board.MutationPut && len(p) == 2 && p[0] == "notes":
		return putNote(ctx, db, p[1], m.Body)
	case m.Type == board.MutationPost && len(p) == 3 && p[0] == "tags" && p[2] == "notes":
		noteID, ok := m.Body["id"].(string)
		if !ok || noteID == "" {
			return fmt.Errorf("%w: body has no note id", ErrUnsupported)
		}
		return linkTag(ctx, db, p[1], noteID)
	case m.Type == board.MutationDelete && len(p) == 4 && p[0] == "tags" && p[2] == "notes":
		_, err := db.ExecContext(ctx, "DELETE FROM note_tags WHERE tag_id = ? AND note_id = ?", p[1], p[3])
		if err != nil {
			return fmt.Errorf("unlink note tag: %w", err)
		}
		return nil
	default:
		return ErrUnsupported
	}
}

func putNote(ctx context.Context, db execer, id string, body map[string]any) error {
	if len(body) == 0 {
		return nil
	}

	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)+1)
	for _, k := range keys {
		col, ok := noteFields[k]
		if !ok {
			return fmt.Errorf("%w: note field %q", ErrUnsupported, k)
		}
		sets = append(sets, col+" = ?")
		args = append(args, body[k])
	}
	args = append(args, id)

	res, err := db.ExecContext(ctx, "UPDATE notes SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return expectOne(res, "note "+id)
}
