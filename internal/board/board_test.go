package board

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pbaille/kanban/internal/domain"
)

// fakeResolver treats notebook paths as ids and gives every notebook
// three children
type fakeResolver struct{}

func (fakeResolver) ResolveNotebook(_ context.Context, path string) (string, error) {
	if strings.Trim(path, "/") == "" {
		return "", nil
	}
	return path, nil
}

func (fakeResolver) NotebookDescendants(_ context.Context, id string) ([]string, error) {
	return []string{id + "/working", id + "/child1", id + "/child2"}, nil
}

func (fakeResolver) NotebookPath(_ context.Context, id string) (string, error) {
	return id, nil
}

func (fakeResolver) TagID(_ context.Context, name string) (string, error) {
	return name, nil
}

const (
	nbName   = "nested test"
	parentNb = "test/" + nbName
	mockTime = 1624713576
)

const testConfig = `
columns:
  -
    backlog: true
    name: Backlog
  -
    name: "Ready for review"
    tag: ready
  -
    name: Working
    notebookPath: working
  -
    completed: true
    tags:
       - done
       - completed
    name: Done
filters:
  rootNotebookPath: "test/nested test"
  tag: task
`

func fence(s string) string {
	return "```kanban\n" + s + "\n```"
}

func openBoard(t *testing.T, body string) *Board {
	t.Helper()
	b, err := Open(context.Background(), domain.ConfigNote{
		ID:       "testid",
		Title:    "testname",
		ParentID: parentNb,
		Body:     body,
	}, fakeResolver{})
	require.NoError(t, err)
	return b
}

func note(mod func(*domain.Note)) domain.Note {
	n := domain.Note{
		ID:          "id",
		Title:       "title",
		NotebookID:  parentNb,
		Tags:        []string{"task"},
		CreatedTime: mockTime,
	}
	if mod != nil {
		mod(&n)
	}
	return n
}

func withID(id string) func(*domain.Note) {
	return func(n *domain.Note) { n.ID = id }
}

func testState(ready []domain.Note) State {
	if ready == nil {
		ready = []domain.Note{note(func(n *domain.Note) { n.ID = "2"; n.Tags = []string{"task", "ready"} })}
	}
	return State{
		Name: "testnote",
		Columns: []ColumnState{
			{Name: "Backlog", Notes: []domain.Note{note(withID("1"))}},
			{Name: "Ready for review", Notes: ready},
			{Name: "Working", Notes: []domain.Note{note(func(n *domain.Note) { n.ID = "3"; n.NotebookID = parentNb + "/working" })}},
			{Name: "Done", Notes: []domain.Note{note(func(n *domain.Note) { n.ID = "4"; n.Tags = []string{"task", "done"} })}},
		},
	}
}

var mockEnv = Env{Now: time.UnixMilli(mockTime)}

func TestOpenWithoutConfigBlock(t *testing.T) {
	_, err := Open(context.Background(), domain.ConfigNote{ID: "testid", Body: "invalid config"}, fakeResolver{})
	require.ErrorIs(t, err, ErrNoConfig)
}

func TestOpenInvalidConfig(t *testing.T) {
	b := openBoard(t, fence("notakanbanboard: true"))
	require.NotEmpty(t, b.ErrorMessages)
	require.Empty(t, b.ColumnNames())

	muts, err := b.Update(MoveNote("1", "Backlog", "Done", 0), testState(nil), mockEnv)
	require.NoError(t, err)
	require.Empty(t, muts)
}

func TestOpenBrokenYAML(t *testing.T) {
	b := openBoard(t, fence("columns: [unclosed"))
	require.Len(t, b.ErrorMessages, 1)
	_, ok := b.Classify(note(nil))
	require.False(t, ok)
}

func TestOpenSetsIdentity(t *testing.T) {
	b := openBoard(t, fence(testConfig))
	require.Equal(t, "testid", b.ConfigNoteID)
	require.Equal(t, "testname", b.Name)
	require.Equal(t, nbName, b.RootNotebookName)
	require.Empty(t, b.ErrorMessages)
	require.Equal(t, []string{"Backlog", "Ready for review", "Working", "Done"}, b.ColumnNames())

	m := b.Model()
	require.Equal(t, "testid", m.ConfigNoteID())
	require.Equal(t, "task", m.BaseTag())
	require.Equal(t, parentNb, m.RootNotebookID())
	require.Equal(t, parentNb, m.RootNotebookPath())
}

func TestOpenDefaultsRootToConfigNotebook(t *testing.T) {
	b := openBoard(t, fence(`
columns:
  - name: Todo
    backlog: true
filters:
  tag: task
`))
	require.Empty(t, b.ErrorMessages)
	require.Equal(t, parentNb, b.Model().RootNotebookID())
	require.Equal(t, nbName, b.RootNotebookName)

	col, ok := b.Classify(note(nil))
	require.True(t, ok)
	require.Equal(t, "Todo", col)
}

func TestClassify(t *testing.T) {
	b := openBoard(t, fence(testConfig))

	tests := []struct {
		name string
		note domain.Note
		want string
	}{
		{"outside root notebook", note(func(n *domain.Note) { n.NotebookID = "someid" }), ""},
		{"missing base tag", note(func(n *domain.Note) { n.Tags = nil }), ""},
		{"config note", note(withID("testid")), ""},
		{"backlog fallback", note(nil), "Backlog"},
		{"backlog fallback from child notebook", note(func(n *domain.Note) {
			n.NotebookID = parentNb + "/child1"
			n.Tags = []string{"task", "sometag"}
			n.IsTodo = true
		}), "Backlog"},
		{"tag rule", note(func(n *domain.Note) { n.Tags = []string{"task", "ready"} }), "Ready for review"},
		{"tags rule first tag", note(func(n *domain.Note) {
			n.Tags = []string{"task", "done"}
			n.IsTodo, n.IsCompleted = true, true
		}), "Done"},
		{"tags rule second tag", note(func(n *domain.Note) { n.Tags = []string{"task", "completed"} }), "Done"},
		{"notebook rule", note(func(n *domain.Note) { n.NotebookID = parentNb + "/working" }), "Working"},
		{"completed rule", note(func(n *domain.Note) { n.IsTodo, n.IsCompleted = true, true }), "Done"},
		{"completed needs todo", note(func(n *domain.Note) { n.IsCompleted = true }), "Backlog"},
		{"first declared match wins", note(func(n *domain.Note) {
			n.Tags = []string{"task", "ready", "done"}
			n.NotebookID = parentNb + "/working"
		}), "Ready for review"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := b.Classify(tt.note)
			require.Equal(t, tt.want != "", ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyWithoutBacklog(t *testing.T) {
	b := openBoard(t, fence(`
columns:
  - name: Ready
    tag: ready
filters:
  rootNotebookPath: "test/nested test"
  tag: task
`))
	_, ok := b.Classify(note(nil))
	require.False(t, ok)

	col, ok := b.Classify(note(func(n *domain.Note) { n.Tags = []string{"task", "ready"} }))
	require.True(t, ok)
	require.Equal(t, "Ready", col)
}

func TestMoveNoteUnsetRules(t *testing.T) {
	b := openBoard(t, fence(testConfig))

	t.Run("tag", func(t *testing.T) {
		muts, err := b.Update(MoveNote("2", "Ready for review", "Working", 0), testState(nil), mockEnv)
		require.NoError(t, err)
		require.Contains(t, muts, Mutation{
			Type: MutationDelete,
			Path: []string{"tags", "ready", "notes", "2"},
			Info: &MutationInfo{Tags: []string{"ready"}},
		})
	})

	t.Run("multiple tags", func(t *testing.T) {
		muts, err := b.Update(MoveNote("4", "Done", "Working", 0), testState(nil), mockEnv)
		require.NoError(t, err)
		require.Contains(t, muts, Mutation{
			Type: MutationDelete,
			Path: []string{"tags", "done", "notes", "4"},
			Info: &MutationInfo{Tags: []string{"done"}},
		})
		require.Contains(t, muts, Mutation{
			Type: MutationDelete,
			Path: []string{"tags", "completed", "notes", "4"},
			Info: &MutationInfo{Tags: []string{"completed"}},
		})
	})

	t.Run("notebook", func(t *testing.T) {
		muts, err := b.Update(MoveNote("3", "Working", "Backlog", 0), testState(nil), mockEnv)
		require.NoError(t, err)
		require.Contains(t, muts, Mutation{
			Type: MutationPut,
			Path: []string{"notes", "3"},
			Body: map[string]any{"parent_id": parentNb},
		})
	})

	t.Run("completed", func(t *testing.T) {
		muts, err := b.Update(MoveNote("4", "Done", "Working", 0), testState(nil), mockEnv)
		require.NoError(t, err)
		require.Contains(t, muts, Mutation{
			Type: MutationPut,
			Path: []string{"notes", "4"},
			Body: map[string]any{"todo_completed": int64(0)},
		})
	})

	t.Run("notebook already at root", func(t *testing.T) {
		state := testState(nil)
		state.Columns[2].Notes = []domain.Note{note(func(n *domain.Note) { n.ID = "3"; n.NotebookID = parentNb })}

		muts, err := b.Update(MoveNote("3", "Working", "Backlog", 0), state, mockEnv)
		require.NoError(t, err)
		require.NotContains(t, muts, Mutation{
			Type: MutationPut,
			Path: []string{"notes", "3"},
			Body: map[string]any{"parent_id": parentNb},
		})
		require.False(t, putsField(muts, "3", "parent_id"))
	})
}

func putsField(muts []Mutation, noteID, field string) bool {
	for _, m := range muts {
		if m.Type != MutationPut || len(m.Path) != 2 || m.Path[1] != noteID {
			continue
		}
		if _, ok := m.Body[field]; ok {
			return true
		}
	}
	return false
}

func TestMoveNoteSetRules(t *testing.T) {
	b := openBoard(t, fence(testConfig))

	t.Run("tag", func(t *testing.T) {
		muts, err := b.Update(MoveNote("1", "Backlog", "Ready for review", 0), testState(nil), mockEnv)
		require.NoError(t, err)
		require.Contains(t, muts, Mutation{
			Type: MutationPost,
			Path: []string{"tags", "ready", "notes"},
			Body: map[string]any{"id": "1"},
			Info: &MutationInfo{Tags: []string{"ready"}},
		})
	})

	t.Run("multiple tags and completion", func(t *testing.T) {
		muts, err := b.Update(MoveNote("3", "Working", "Done", 0), testState(nil), mockEnv)
		require.NoError(t, err)
		require.Contains(t, muts, Mutation{
			Type: MutationPost,
			Path: []string{"tags", "done", "notes"},
			Body: map[string]any{"id": "3"},
			Info: &MutationInfo{Tags: []string{"done"}},
		})
		require.Contains(t, muts, Mutation{
			Type: MutationPost,
			Path: []string{"tags", "completed", "notes"},
			Body: map[string]any{"id": "3"},
			Info: &MutationInfo{Tags: []string{"completed"}},
		})
		require.Contains(t, muts, Mutation{
			Type: MutationPut,
			Path: []string{"notes", "3"},
			Body: map[string]any{"todo_completed": int64(mockTime)},
		})
	})

	t.Run("notebook", func(t *testing.T) {
		muts, err := b.Update(MoveNote("1", "Backlog", "Working", 0), testState(nil), mockEnv)
		require.NoError(t, err)
		require.Contains(t, muts, Mutation{
			Type: MutationPut,
			Path: []string{"notes", "1"},
			Body: map[string]any{"parent_id": parentNb + "/working"},
		})
	})

	t.Run("already completed", func(t *testing.T) {
		state := testState(nil)
		state.Columns[2].Notes = []domain.Note{note(func(n *domain.Note) {
			n.ID = "3"
			n.NotebookID = parentNb + "/working"
			n.IsTodo = true
			n.IsCompleted = true
		})}

		muts, err := b.Update(MoveNote("3", "Working", "Done", 0), state, mockEnv)
		require.NoError(t, err)
		require.NotContains(t, muts, Mutation{
			Type: MutationPut,
			Path: []string{"notes", "3"},
			Body: map[string]any{"todo_completed": int64(mockTime)},
		})
		require.False(t, putsField(muts, "3", "todo_completed"))
	})
}

func TestMoveNoteIntoDoneWithoutNotebookRule(t *testing.T) {
	b := openBoard(t, fence(`
columns:
  - name: Backlog
    backlog: true
  - name: Working
    tag: working
  - name: Done
    completed: true
    tags: [done, completed]
filters:
  rootNotebookPath: "test/nested test"
  tag: task
`))
	working := note(func(n *domain.Note) {
		n.ID = "w1"
		n.Tags = []string{"task", "working"}
		n.IsTodo = true
		n.Order = 10
	})
	s := State{Columns: []ColumnState{
		{Name: "Backlog"},
		{Name: "Working", Notes: []domain.Note{working}},
		{Name: "Done"},
	}}

	muts, err := b.Update(MoveNote("w1", "Working", "Done", 0), s, mockEnv)
	require.NoError(t, err)
	require.Equal(t, []Mutation{
		{Type: MutationDelete, Path: []string{"tags", "working", "notes", "w1"}, Info: &MutationInfo{Tags: []string{"working"}}},
		{Type: MutationPost, Path: []string{"tags", "done", "notes"}, Body: map[string]any{"id": "w1"}, Info: &MutationInfo{Tags: []string{"done"}}},
		{Type: MutationPost, Path: []string{"tags", "completed", "notes"}, Body: map[string]any{"id": "w1"}, Info: &MutationInfo{Tags: []string{"completed"}}},
		{Type: MutationPut, Path: []string{"notes", "w1"}, Body: map[string]any{"todo_completed": int64(mockTime)}},
		{Type: MutationPut, Path: []string{"notes", "w1"}, Body: map[string]any{"order": int64(mockTime)}},
	}, muts)
}

func TestMoveNoteTagSymmetry(t *testing.T) {
	b := openBoard(t, fence(`
columns:
  - name: AB
    tags: [a, b]
  - name: BC
    tags: [b, c]
filters:
  rootNotebookPath: /
  tag: task
`))
	n := note(func(n *domain.Note) { n.Tags = []string{"task", "a", "b"}; n.Order = 5 })
	s := State{Columns: []ColumnState{
		{Name: "AB", Notes: []domain.Note{n}},
		{Name: "BC"},
	}}

	muts, err := b.Update(MoveNote(n.ID, "AB", "BC", 0), s, mockEnv)
	require.NoError(t, err)

	var tagMuts []Mutation
	for _, m := range muts {
		if m.Path[0] == "tags" {
			tagMuts = append(tagMuts, m)
		}
	}
	require.Equal(t, []Mutation{
		{Type: MutationDelete, Path: []string{"tags", "a", "notes", n.ID}, Info: &MutationInfo{Tags: []string{"a"}}},
		{Type: MutationPost, Path: []string{"tags", "c", "notes"}, Body: map[string]any{"id": n.ID}, Info: &MutationInfo{Tags: []string{"c"}}},
	}, tagMuts)
}

func TestMoveNoteOrder(t *testing.T) {
	b := openBoard(t, fence(testConfig))

	t.Run("top", func(t *testing.T) {
		muts, err := b.Update(MoveNote("1", "Backlog", "Ready for review", 0), testState(nil), mockEnv)
		require.NoError(t, err)
		require.Contains(t, muts, Mutation{
			Type: MutationPut,
			Path: []string{"notes", "1"},
			Body: map[string]any{"order": int64(mockTime)},
		})
	})

	t.Run("bottom", func(t *testing.T) {
		muts, err := b.Update(MoveNote("1", "Backlog", "Ready for review", 1), testState(nil), mockEnv)
		require.NoError(t, err)
		require.Contains(t, muts, Mutation{
			Type: MutationPut,
			Path: []string{"notes", "1"},
			Body: map[string]any{"order": int64(-1000)},
		})
	})

	t.Run("collision cascades", func(t *testing.T) {
		s := testState([]domain.Note{
			note(func(n *domain.Note) { n.ID = "21"; n.Order = 2 }),
			note(func(n *domain.Note) { n.ID = "22"; n.Order = 1 }),
			note(func(n *domain.Note) { n.ID = "23"; n.Order = 0 }),
		})
		muts, err := b.Update(MoveNote("1", "Backlog", "Ready for review", 1), s, mockEnv)
		require.NoError(t, err)
		require.Contains(t, muts, Mutation{Type: MutationPut, Path: []string{"notes", "1"}, Body: map[string]any{"order": int64(1)}})
		require.Contains(t, muts, Mutation{Type: MutationPut, Path: []string{"notes", "22"}, Body: map[string]any{"order": int64(-999)}})
		require.Contains(t, muts, Mutation{Type: MutationPut, Path: []string{"notes", "23"}, Body: map[string]any{"order": int64(-1999)}})
	})

	t.Run("minimal", func(t *testing.T) {
		s := testState([]domain.Note{
			note(func(n *domain.Note) { n.ID = "21"; n.Order = 300 }),
			note(func(n *domain.Note) { n.ID = "22"; n.Order = 200 }),
			note(func(n *domain.Note) { n.ID = "23"; n.Order = 100 }),
			note(func(n *domain.Note) { n.ID = "24"; n.Order = 50 }),
		})
		muts, err := b.Update(MoveNote("1", "Backlog", "Ready for review", 1), s, mockEnv)
		require.NoError(t, err)
		require.Equal(t, []Mutation{
			{Type: MutationPost, Path: []string{"tags", "ready", "notes"}, Body: map[string]any{"id": "1"}, Info: &MutationInfo{Tags: []string{"ready"}}},
			{Type: MutationPut, Path: []string{"notes", "1"}, Body: map[string]any{"order": int64(250)}},
		}, muts)
	})

	t.Run("same slot emits nothing", func(t *testing.T) {
		s := testState([]domain.Note{
			note(func(n *domain.Note) { n.ID = "21"; n.Order = 300; n.Tags = []string{"task", "ready"} }),
			note(func(n *domain.Note) { n.ID = "22"; n.Order = 200; n.Tags = []string{"task", "ready"} }),
			note(func(n *domain.Note) { n.ID = "23"; n.Order = 100; n.Tags = []string{"task", "ready"} }),
		})
		muts, err := b.Update(MoveNote("22", "Ready for review", "Ready for review", 1), s, mockEnv)
		require.NoError(t, err)
		require.Empty(t, muts)
	})
}

func TestMoveNoteErrors(t *testing.T) {
	b := openBoard(t, fence(testConfig))

	_, err := b.Update(MoveNote("1", "Backlog", "Nowhere", 0), testState(nil), mockEnv)
	require.ErrorIs(t, err, ErrUnknownColumn)

	_, err = b.Update(MoveNote("missing", "Backlog", "Done", 0), testState(nil), mockEnv)
	require.ErrorIs(t, err, ErrNoteNotFound)

	_, err = b.Update(Action{Type: "archive"}, testState(nil), mockEnv)
	require.ErrorIs(t, err, ErrUnknownAction)
}

type stubRenderer struct{}

func (stubRenderer) Render(tmpl string, now time.Time) (string, error) {
	return strings.ReplaceAll(tmpl, "<today>", now.Format("2006-01-02")), nil
}

func TestNewNote(t *testing.T) {
	b := openBoard(t, fence(testConfig))

	muts, err := b.Update(NewNote("new1", "Ready for review"), testState(nil), mockEnv)
	require.NoError(t, err)
	require.Equal(t, []Mutation{
		{Type: MutationPost, Path: []string{"tags", "ready", "notes"}, Body: map[string]any{"id": "new1"}, Info: &MutationInfo{Tags: []string{"ready"}}},
		{Type: MutationPost, Path: []string{"tags", "task", "notes"}, Body: map[string]any{"id": "new1"}, Info: &MutationInfo{Tags: []string{"task"}}},
	}, muts)

	_, err = b.Update(NewNote("new1", "Nowhere"), testState(nil), mockEnv)
	require.ErrorIs(t, err, ErrUnknownColumn)
}

func TestNewNoteTitleTemplate(t *testing.T) {
	b := openBoard(t, fence(`
columns:
  - name: "Template Test"
    newNoteTitle: "Task for <today>"
filters:
  rootNotebookPath: /
  tag: task
`))
	env := Env{Now: time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), Titles: stubRenderer{}}

	muts, err := b.Update(NewNote("new1", "Template Test"), State{}, env)
	require.NoError(t, err)
	require.Equal(t, Mutation{
		Type: MutationPut,
		Path: []string{"notes", "new1"},
		Body: map[string]any{"title": "Task for 2025-01-31", "body": "Task for 2025-01-31"},
	}, muts[0])
	require.Len(t, muts, 2)
}

func TestBuildState(t *testing.T) {
	b := openBoard(t, fence(testConfig))

	notes := []domain.Note{
		note(func(n *domain.Note) { n.ID = "old"; n.CreatedTime = 100 }),
		note(func(n *domain.Note) { n.ID = "placed"; n.Order = 500 }),
		note(func(n *domain.Note) { n.ID = "ready"; n.Tags = []string{"task", "ready"} }),
		note(func(n *domain.Note) { n.ID = "foreign"; n.Tags = []string{"other"} }),
		note(withID("testid")),
	}

	s := b.BuildState(notes)
	require.Equal(t, "testname", s.Name)
	require.Equal(t, []string{"completed", "done", "ready", "task"}, s.HiddenTags)
	require.Len(t, s.Columns, 4)

	backlog := s.Columns[0]
	require.Equal(t, "Backlog", backlog.Name)
	require.Len(t, backlog.Notes, 2)
	require.Equal(t, "placed", backlog.Notes[0].ID)
	require.Equal(t, "old", backlog.Notes[1].ID)
	require.Equal(t, int64(100), backlog.Notes[1].Order)

	require.Len(t, s.Columns[1].Notes, 1)
	require.Empty(t, s.Columns[2].Notes)
}
