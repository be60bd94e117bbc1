package board

import (
	"errors"
	"fmt"
	"time"

	"github.com/pbaille/kanban/internal/domain"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrUnknownColumn = errors.New("unknown column")
	ErrNoteNotFound  = errors.New("note not found on board")
)

// ActionType names a user action on the board
type ActionType string

const (
	ActionMoveNote ActionType = "moveNote"
	ActionNewNote  ActionType = "newNote"
)

// Action is a user action to turn into store mutations
type Action struct {
	Type    ActionType `json:"type"`
	Payload Payload    `json:"payload"`
}

// Payload carries the fields of every action type. moveNote uses NoteID,
// OldColumnName, NewColumnName and NewIndex; newNote uses NoteID and ColName.
type Payload struct {
	NoteID        string `json:"noteId"`
	OldColumnName string `json:"oldColumnName,omitempty"`
	NewColumnName string `json:"newColumnName,omitempty"`
	NewIndex      int    `json:"newIndex,omitempty"`
	ColName       string `json:"colName,omitempty"`
}

// MoveNote builds a moveNote action
func MoveNote(noteID, from, to string, index int) Action {
	return Action{Type: ActionMoveNote, Payload: Payload{
		NoteID:        noteID,
		OldColumnName: from,
		NewColumnName: to,
		NewIndex:      index,
	}}
}

// NewNote builds a newNote action
func NewNote(noteID, column string) Action {
	return Action{Type: ActionNewNote, Payload: Payload{NoteID: noteID, ColName: column}}
}

// MutationType is the store operation a mutation performs
type MutationType string

const (
	MutationPut    MutationType = "put"
	MutationPost   MutationType = "post"
	MutationDelete MutationType = "delete"
)

// Mutation is a single change request against the note store. Path
// addresses the resource: ["notes", id] for a note, ["tags", tagID,
// "notes"] and ["tags", tagID, "notes", noteID] for tag memberships.
type Mutation struct {
	Type MutationType   `json:"type"`
	Path []string       `json:"path"`
	Body map[string]any `json:"body,omitempty"`
	Info *MutationInfo  `json:"info,omitempty"`
}

// MutationInfo carries display details that are not part of the request
type MutationInfo struct {
	Tags []string `json:"tags,omitempty"`
}

// ColumnState is one column of a board snapshot
type ColumnState struct {
	Name  string        `json:"name"`
	Notes []domain.Note `json:"notes"`
}

// State is a snapshot of a board's columns
type State struct {
	Name       string        `json:"name"`
	Columns    []ColumnState `json:"columns"`
	HiddenTags []string      `json:"hiddenTags"`
	Messages   []string      `json:"messages"`
}

func (s State) column(name string) (ColumnState, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnState{}, false
}

// findNote looks in the preferred column first, then everywhere
func (s State) findNote(id, preferred string) (domain.Note, bool) {
	if col, ok := s.column(preferred); ok {
		for _, n := range col.Notes {
			if n.ID == id {
				return n, true
			}
		}
	}
	for _, c := range s.Columns {
		for _, n := range c.Notes {
			if n.ID == id {
				return n, true
			}
		}
	}
	return domain.Note{}, false
}

// Env holds the inputs of a synthesis that do not come from the board
type Env struct {
	Now    time.Time
	Titles TitleRenderer
}

func (e Env) now() time.Time {
	if e.Now.IsZero() {
		return time.Now()
	}
	return e.Now
}

// Synthesize computes the mutations that make the store agree with the
// action. Only fields whose required value differs from the note's
// current value are written. An invalid model produces no mutations.
func Synthesize(a Action, s State, m *Model, env Env) ([]Mutation, error) {
	switch a.Type {
	case ActionMoveNote:
		if !m.Valid() {
			return nil, nil
		}
		return synthesizeMove(a.Payload, s, m, env)
	case ActionNewNote:
		if !m.Valid() {
			return nil, nil
		}
		return synthesizeNew(a.Payload, m, env)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}
}

func synthesizeMove(p Payload, s State, m *Model, env Env) ([]Mutation, error) {
	from, ok := m.Column(p.OldColumnName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, p.OldColumnName)
	}
	to, ok := m.Column(p.NewColumnName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, p.NewColumnName)
	}
	note, ok := s.findNote(p.NoteID, p.OldColumnName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoteNotFound, p.NoteID)
	}

	now := env.now()
	var out []Mutation

	for _, tag := range difference(from.Tags, to.Tags) {
		out = append(out, unsetTag(m, note.ID, tag))
	}
	for _, tag := range difference(to.Tags, from.Tags) {
		out = append(out, setTag(m, note.ID, tag))
	}

	switch {
	case to.HasNotebookRule():
		if note.NotebookID != to.NotebookID {
			out = append(out, putNote(note.ID, "parent_id", to.NotebookID))
		}
	case from.HasNotebookRule():
		if note.NotebookID != m.rootNotebookID {
			out = append(out, putNote(note.ID, "parent_id", m.rootNotebookID))
		}
	}

	switch {
	case to.Completed:
		if !note.IsCompleted {
			out = append(out, putNote(note.ID, "todo_completed", now.UnixMilli()))
		}
	case from.Completed:
		out = append(out, putNote(note.ID, "todo_completed", int64(0)))
	}

	var siblings []domain.Note
	if col, ok := s.column(to.Name); ok {
		siblings = make([]domain.Note, 0, len(col.Notes))
		for _, n := range col.Notes {
			if n.ID != note.ID {
				siblings = append(siblings, n)
			}
		}
	}
	alloc := Allocate(siblings, p.NewIndex, now)
	if alloc.Order != note.Order {
		out = append(out, putNote(note.ID, "order", alloc.Order))
	}
	for _, u := range alloc.SiblingUpdates {
		out = append(out, putNote(u.NoteID, "order", u.Order))
	}

	return out, nil
}

func synthesizeNew(p Payload, m *Model, env Env) ([]Mutation, error) {
	col, ok := m.Column(p.ColName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, p.ColName)
	}

	var out []Mutation
	if col.NewNoteTitle != "" {
		title := col.NewNoteTitle
		if env.Titles != nil {
			rendered, err := env.Titles.Render(col.NewNoteTitle, env.now())
			if err != nil {
				return nil, fmt.Errorf("render title of column %q: %w", col.Name, err)
			}
			title = rendered
		}
		out = append(out, Mutation{
			Type: MutationPut,
			Path: []string{"notes", p.NoteID},
			Body: map[string]any{"title": title, "body": title},
		})
	}

	for _, tag := range col.Tags {
		out = append(out, setTag(m, p.NoteID, tag))
	}
	if !contains(col.Tags, m.baseTag) {
		out = append(out, setTag(m, p.NoteID, m.baseTag))
	}

	return out, nil
}

func setTag(m *Model, noteID, tag string) Mutation {
	return Mutation{
		Type: MutationPost,
		Path: []string{"tags", m.TagID(tag), "notes"},
		Body: map[string]any{"id": noteID},
		Info: &MutationInfo{Tags: []string{tag}},
	}
}

func unsetTag(m *Model, noteID, tag string) Mutation {
	return Mutation{
		Type: MutationDelete,
		Path: []string{"tags", m.TagID(tag), "notes", noteID},
		Info: &MutationInfo{Tags: []string{tag}},
	}
}

func putNote(noteID, field string, value any) Mutation {
	return Mutation{
		Type: MutationPut,
		Path: []string{"notes", noteID},
		Body: map[string]any{field: value},
	}
}

// difference returns the elements of a missing from b, in a's order
func difference(a, b []string) []string {
	var out []string
	for _, v := range a {
		if !contains(b, v) {
			out = append(out, v)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
