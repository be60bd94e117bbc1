package board

import (
	"context"
	"time"
)

// NotebookResolver looks notebooks up in the note store
type NotebookResolver interface {
	// ResolveNotebook returns the id of the notebook at path. "/" is the
	// store root, whose id is the empty string.
	ResolveNotebook(ctx context.Context, path string) (string, error)
	// NotebookDescendants returns the ids of every notebook below id.
	NotebookDescendants(ctx context.Context, id string) ([]string, error)
	// NotebookPath returns the slash separated path of the notebook id.
	NotebookPath(ctx context.Context, id string) (string, error)
}

// TagResolver maps tag names to store ids
type TagResolver interface {
	TagID(ctx context.Context, name string) (string, error)
}

// Resolver is everything a board needs from the store at load time
type Resolver interface {
	NotebookResolver
	TagResolver
}

// TitleRenderer expands a note title template against a date
type TitleRenderer interface {
	Render(tmpl string, now time.Time) (string, error)
}
