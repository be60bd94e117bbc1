// Package recent keeps the list of recently opened boards in the store's
// settings.
package recent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/pbaille/kanban/internal/store"
)

const (
	// StorageKey is the settings key holding the list
	StorageKey = "RecentKanbans"
	// DefaultMaxSize caps the list when no size is given
	DefaultMaxSize = 100
)

// Settings is the key/value storage the list lives in
type Settings interface {
	Setting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Item is one recently opened board
type Item struct {
	NoteID     string `json:"noteId"`
	Title      string `json:"title"`
	Bookmarked bool   `json:"bookmarked"`
}

// List is the most-recent-first list of boards
type List struct {
	settings Settings
	maxSize  int
	log      *log.Logger

	mu    sync.Mutex
	items []Item
}

// New returns an empty list backed by settings
func New(settings Settings, maxSize int, logger *log.Logger) *List {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &List{settings: settings, maxSize: maxSize, log: logger}
}

// Items returns the boards, most recent first
func (l *List) Items() []Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Item(nil), l.items...)
}

// Load reads the list from settings. A missing or unreadable value leaves
// the list empty.
func (l *List) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = nil
	raw, err := l.settings.Setting(ctx, StorageKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load recent boards: %w", err)
	}

	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		l.log.WithError(err).Warn("discarding unreadable recent boards")
		return nil
	}
	l.items = items
	return nil
}

// Prepend moves the board to the front of the list, adding it if needed.
// A nil bookmarked keeps the current bookmark of a known board.
func (l *List) Prepend(noteID, title string, bookmarked *bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	item := Item{NoteID: noteID, Title: title}
	rest := make([]Item, 0, len(l.items)+1)
	for _, it := range l.items {
		if it.NoteID == noteID {
			item.Bookmarked = it.Bookmarked
			continue
		}
		rest = append(rest, it)
	}
	if bookmarked != nil {
		item.Bookmarked = *bookmarked
	}

	l.items = append([]Item{item}, rest...)
	if len(l.items) > l.maxSize {
		l.items = l.items[:l.maxSize]
	}
}

// Remove drops a board from the list
func (l *List) Remove(noteID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := l.items[:0]
	for _, it := range l.items {
		if it.NoteID != noteID {
			out = append(out, it)
		}
	}
	l.items = out
}

// Save writes the list to settings when it differs from what is stored
func (l *List) Save(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := l.items
	if items == nil {
		items = []Item{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode recent boards: %w", err)
	}

	stored, err := l.settings.Setting(ctx, StorageKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("load recent boards: %w", err)
	}
	if err == nil && stored == string(b) {
		return nil
	}

	if err := l.settings.SetSetting(ctx, StorageKey, string(b)); err != nil {
		return fmt.Errorf("save recent boards: %w", err)
	}
	return nil
}
