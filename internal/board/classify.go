package board

import "github.com/pbaille/kanban/internal/domain"

// Classify returns the column a note belongs to. The board's own
// configuration note and notes outside the board's filters belong to no
// column. Non-backlog columns are tried in declared order and the first
// match wins; the backlog column catches the rest.
func (m *Model) Classify(n domain.Note) (string, bool) {
	if !m.Valid() || n.ID == m.configNoteID {
		return "", false
	}
	if !m.InScope(n) {
		return "", false
	}

	for _, c := range m.columns {
		if c.Backlog {
			continue
		}
		if c.matches(n) {
			return c.Name, true
		}
	}

	if m.backlog >= 0 {
		return m.columns[m.backlog].Name, true
	}
	return "", false
}

// InScope reports whether the note passes the board's global filters
func (m *Model) InScope(n domain.Note) bool {
	if _, ok := m.rootNotebooks[n.NotebookID]; !ok {
		return false
	}
	return n.HasTag(m.baseTag)
}

// matches is true when any declared predicate holds
func (c Column) matches(n domain.Note) bool {
	for _, tag := range c.Tags {
		if n.HasTag(tag) {
			return true
		}
	}
	if c.HasNotebookRule() {
		if _, ok := c.notebooks[n.NotebookID]; ok {
			return true
		}
	}
	return c.Completed && n.IsTodo && n.IsCompleted
}
