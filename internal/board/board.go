// Package board classifies notes into kanban columns and computes the store
// mutations that user actions on a board require. Everything here is pure:
// store lookups happen once, in Load, through the Resolver port.
package board

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pbaille/kanban/internal/boardconf"
	"github.com/pbaille/kanban/internal/domain"
)

// ErrNoConfig is returned when a note has no kanban block
var ErrNoConfig = errors.New("note has no kanban configuration")

// Board is a loaded board: its configuration note and resolved rules
type Board struct {
	ConfigNoteID     string
	Name             string
	RootNotebookName string
	ErrorMessages    []string

	model *Model
}

// Open reads the configuration held by note and loads it. A note without
// a kanban block gives ErrNoConfig; any other problem is reported through
// ErrorMessages on an inert board.
func Open(ctx context.Context, note domain.ConfigNote, res Resolver) (*Board, error) {
	raw, found, err := boardconf.Parse(note.Body)
	if !found {
		return nil, ErrNoConfig
	}

	var m *Model
	if err != nil {
		m = inert(note.ID, err.Error())
	} else {
		m = Load(ctx, raw, Info{
			ConfigNoteID:     note.ID,
			ParentNotebookID: note.ParentID,
		}, res)
	}

	return &Board{
		ConfigNoteID:     note.ID,
		Name:             note.Title,
		RootNotebookName: lastSegment(m.RootNotebookPath()),
		ErrorMessages:    m.Errors(),
		model:            m,
	}, nil
}

// Model returns the board's rules
func (b *Board) Model() *Model {
	return b.model
}

// ColumnNames returns the column names in declared order
func (b *Board) ColumnNames() []string {
	return b.model.ColumnNames()
}

// Classify returns the column of n, if any
func (b *Board) Classify(n domain.Note) (string, bool) {
	return b.model.Classify(n)
}

// Update computes the mutations for an action against a snapshot
func (b *Board) Update(a Action, s State, env Env) ([]Mutation, error) {
	return Synthesize(a, s, b.model, env)
}

// BuildState sorts notes into the board's columns. Notes that were never
// positioned (order 0) take their creation time as order, and each column
// is sorted top first.
func (b *Board) BuildState(notes []domain.Note) State {
	s := State{
		Name:       b.Name,
		HiddenTags: b.model.HiddenTags(),
		Messages:   b.model.Errors(),
	}

	index := make(map[string]int)
	for i, name := range b.model.ColumnNames() {
		index[name] = i
		s.Columns = append(s.Columns, ColumnState{Name: name, Notes: []domain.Note{}})
	}

	for _, n := range notes {
		name, ok := b.model.Classify(n)
		if !ok {
			continue
		}
		n.Order = n.SortOrder()
		i := index[name]
		s.Columns[i].Notes = append(s.Columns[i].Notes, n)
	}

	for _, c := range s.Columns {
		sort.SliceStable(c.Notes, func(i, j int) bool {
			return c.Notes[i].Order > c.Notes[j].Order
		})
	}

	return s
}

// String describes the board for logs
func (b *Board) String() string {
	return fmt.Sprintf("%s (%s)", b.Name, b.ConfigNoteID)
}

func lastSegment(path string) string {
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
