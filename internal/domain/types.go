package domain

// Note is a note record as the board sees it
type Note struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Tags        []string `json:"tags"`
	NotebookID  string   `json:"notebook_id"`
	IsTodo      bool     `json:"is_todo"`
	IsCompleted bool     `json:"is_completed"`
	Due         int64    `json:"due"`
	Order       int64    `json:"order"`
	CreatedTime int64    `json:"created_time"`
}

// HasTag reports whether the note carries the given tag
func (n Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SortOrder returns the order used for display. A raw order of 0 means
// the note was never positioned, so its creation time stands in.
func (n Note) SortOrder() int64 {
	if n.Order == 0 {
		return n.CreatedTime
	}
	return n.Order
}

// Notebook is a folder in the note tree. Top-level notebooks have an empty ParentID.
type Notebook struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ParentID string `json:"parent_id"`
}

// Tag is a named label attached to notes
type Tag struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ConfigNote is the note holding a board's configuration in its body
type ConfigNote struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ParentID string `json:"parent_id"`
	Body     string `json:"body"`
}
