// Package service ties boards to the note store: it opens boards, builds
// their snapshots and sends synthesized mutations through the dispatch queue.
package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/pbaille/kanban/internal/board"
	"github.com/pbaille/kanban/internal/dispatch"
	"github.com/pbaille/kanban/internal/domain"
	"github.com/pbaille/kanban/internal/recent"
	"github.com/pbaille/kanban/internal/store"
)

// NoteStore is what the service needs from the note store
type NoteStore interface {
	board.Resolver
	dispatch.BatchApplier
	GetConfigNote(ctx context.Context, id string) (domain.ConfigNote, error)
	SearchNotes(ctx context.Context, notebookIDs []string, tag string) ([]domain.Note, error)
	AddNote(ctx context.Context, n store.NewNote) (*domain.Note, error)
	GetNote(ctx context.Context, id string) (*domain.Note, error)
	DeleteNote(ctx context.Context, id string) error
}

// Service runs board actions against a store
type Service struct {
	Store  NoteStore
	Queue  *dispatch.Queue
	Recent *recent.List
	Titles board.TitleRenderer
	Log    *log.Logger
	Now    func() time.Time
}

// View is a loaded board with its current snapshot
type View struct {
	Board *board.Board
	State board.State
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) logger() *log.Logger {
	if s.Log != nil {
		return s.Log
	}
	return log.StandardLogger()
}

// Open loads the board held by the config note and snapshots its notes
func (s *Service) Open(ctx context.Context, configNoteID string) (*View, error) {
	cfg, err := s.Store.GetConfigNote(ctx, configNoteID)
	if err != nil {
		return nil, err
	}

	b, err := board.Open(ctx, cfg, s.Store)
	if err != nil {
		return nil, err
	}
	if len(b.ErrorMessages) > 0 {
		s.logger().WithFields(log.Fields{"board": b.String(), "errors": b.ErrorMessages}).Warn("board configuration is invalid")
	}

	var notes []domain.Note
	if m := b.Model(); m.Valid() {
		notes, err = s.Store.SearchNotes(ctx, nil, m.BaseTag())
		if err != nil {
			return nil, fmt.Errorf("load board notes: %w", err)
		}
	}

	s.remember(ctx, b)

	return &View{Board: b, State: b.BuildState(notes)}, nil
}

func (s *Service) remember(ctx context.Context, b *board.Board) {
	if s.Recent == nil {
		return
	}
	if err := s.Recent.Load(ctx); err != nil {
		s.logger().WithError(err).Warn("load recent boards")
		return
	}
	s.Recent.Prepend(b.ConfigNoteID, b.Name, nil)
	if err := s.Recent.Save(ctx); err != nil {
		s.logger().WithError(err).Warn("save recent boards")
	}
}

// Dispatch synthesizes the mutations of an action, applies them and
// returns them together with the refreshed board. The board is read and the
// batch applied inside one queue job, so concurrent actions never synthesize
// against a snapshot another batch is about to change.
func (s *Service) Dispatch(ctx context.Context, configNoteID string, a board.Action) ([]board.Mutation, *View, error) {
	muts, err := s.Queue.Run(ctx, s.Store, func(ctx context.Context) ([]board.Mutation, error) {
		v, err := s.Open(ctx, configNoteID)
		if err != nil {
			return nil, err
		}
		muts, err := v.Board.Update(a, v.State, board.Env{Now: s.now(), Titles: s.Titles})
		if err != nil {
			return nil, err
		}
		s.logger().WithFields(log.Fields{
			"board":     v.Board.String(),
			"action":    a.Type,
			"note":      a.Payload.NoteID,
			"mutations": len(muts),
		}).Info("dispatching action")
		return muts, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("dispatch %s: %w", a.Type, err)
	}

	v, err := s.Open(ctx, configNoteID)
	if err != nil {
		return nil, nil, err
	}
	return muts, v, nil
}

// CreateNote adds a note to a column: the note is created in the column's
// notebook (or the board's root notebook) and the column's newNote
// mutations are applied to it. The note is removed again when the
// mutations cannot be applied.
func (s *Service) CreateNote(ctx context.Context, configNoteID, column, title string, todo bool) (*domain.Note, []board.Mutation, error) {
	v, err := s.Open(ctx, configNoteID)
	if err != nil {
		return nil, nil, err
	}
	m := v.Board.Model()
	if !m.Valid() {
		return nil, nil, fmt.Errorf("board %s has configuration errors", v.Board)
	}
	col, ok := m.Column(column)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", board.ErrUnknownColumn, column)
	}

	notebookID := m.RootNotebookID()
	if col.HasNotebookRule() {
		notebookID = col.NotebookID
	}

	note, err := s.Store.AddNote(ctx, store.NewNote{
		Title:      title,
		NotebookID: notebookID,
		IsTodo:     todo,
	})
	if err != nil {
		return nil, nil, err
	}

	muts, _, err := s.Dispatch(ctx, configNoteID, board.NewNote(note.ID, column))
	if err != nil {
		if derr := s.Store.DeleteNote(ctx, note.ID); derr != nil {
			s.logger().WithError(derr).WithField("note", note.ID).Warn("remove note after failed dispatch")
		}
		return nil, nil, err
	}

	note, err = s.Store.GetNote(ctx, note.ID)
	if err != nil {
		return nil, nil, err
	}
	return note, muts, nil
}
