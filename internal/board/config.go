package board

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// RawConfig is a board configuration as decoded from its declarative text
type RawConfig map[string]any

// Info identifies the note a board configuration was read from
type Info struct {
	ConfigNoteID     string
	ParentNotebookID string
}

// Column is a resolved column rule
type Column struct {
	Name         string
	Backlog      bool
	Tags         []string
	NotebookPath string
	NotebookID   string
	Completed    bool
	NewNoteTitle string

	notebooks map[string]struct{}
}

// HasNotebookRule reports whether the column pins notes to a notebook
func (c Column) HasNotebookRule() bool {
	return c.NotebookPath != ""
}

// Model is a validated, resolved board configuration. It is built once
// per board load by Load and never changes afterwards.
type Model struct {
	configNoteID     string
	rootNotebookPath string
	rootNotebookID   string
	rootNotebooks    map[string]struct{}
	baseTag          string
	tagIDs           map[string]string
	columns          []Column
	backlog          int
	errors           []string
}

var columnKeys = map[string]bool{
	"name":         true,
	"backlog":      true,
	"tag":          true,
	"tags":         true,
	"notebookPath": true,
	"completed":    true,
	"newNoteTitle": true,
}

// Load validates raw and resolves its notebooks and tags through res.
// It never fails: problems are reported by Errors and leave the model
// without columns.
func Load(ctx context.Context, raw RawConfig, info Info, res Resolver) *Model {
	parsed, errs := validate(raw)
	if len(errs) > 0 {
		return inert(info.ConfigNoteID, errs...)
	}

	m := &Model{
		configNoteID: info.ConfigNoteID,
		baseTag:      parsed.baseTag,
		tagIDs:       make(map[string]string),
		backlog:      -1,
	}

	if err := m.resolveRoot(ctx, parsed.rootPath, info.ParentNotebookID, res); err != nil {
		return inert(info.ConfigNoteID, err.Error())
	}

	if err := m.resolveTag(ctx, parsed.baseTag, res); err != nil {
		return inert(info.ConfigNoteID, err.Error())
	}

	for i, cs := range parsed.columns {
		col := Column{
			Name:         cs.name,
			Backlog:      cs.backlog,
			Tags:         cs.tags,
			NotebookPath: cs.notebookPath,
			Completed:    cs.completed,
			NewNoteTitle: cs.newNoteTitle,
		}
		for _, tag := range col.Tags {
			if err := m.resolveTag(ctx, tag, res); err != nil {
				return inert(info.ConfigNoteID, fmt.Sprintf("column %q: %v", col.Name, err))
			}
		}
		if col.HasNotebookRule() {
			full := joinNotebookPath(m.rootNotebookPath, col.NotebookPath)
			id, set, err := resolveSubtree(ctx, full, res)
			if err != nil {
				return inert(info.ConfigNoteID, fmt.Sprintf("column %q: %v", col.Name, err))
			}
			col.NotebookID = id
			col.notebooks = set
		}
		if col.Backlog {
			m.backlog = i
		}
		m.columns = append(m.columns, col)
	}

	return m
}

func inert(configNoteID string, errs ...string) *Model {
	return &Model{
		configNoteID: configNoteID,
		backlog:      -1,
		errors:       errs,
	}
}

func (m *Model) resolveRoot(ctx context.Context, path, parentID string, res Resolver) error {
	if path == "" {
		p, err := res.NotebookPath(ctx, parentID)
		if err != nil {
			return fmt.Errorf("resolve board notebook: %w", err)
		}
		m.rootNotebookPath = p
		m.rootNotebookID = parentID
		set, err := descendants(ctx, parentID, res)
		if err != nil {
			return err
		}
		m.rootNotebooks = set
		return nil
	}

	id, set, err := resolveSubtree(ctx, path, res)
	if err != nil {
		return err
	}
	m.rootNotebookPath = path
	m.rootNotebookID = id
	m.rootNotebooks = set
	return nil
}

func (m *Model) resolveTag(ctx context.Context, name string, res Resolver) error {
	if _, ok := m.tagIDs[name]; ok {
		return nil
	}
	id, err := res.TagID(ctx, name)
	if err != nil {
		return fmt.Errorf("resolve tag %q: %w", name, err)
	}
	m.tagIDs[name] = id
	return nil
}

func resolveSubtree(ctx context.Context, path string, res Resolver) (string, map[string]struct{}, error) {
	id, err := res.ResolveNotebook(ctx, path)
	if err != nil {
		return "", nil, fmt.Errorf("resolve notebook %q: %w", path, err)
	}
	set, err := descendants(ctx, id, res)
	if err != nil {
		return "", nil, err
	}
	return id, set, nil
}

func descendants(ctx context.Context, id string, res Resolver) (map[string]struct{}, error) {
	children, err := res.NotebookDescendants(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list notebooks under %q: %w", id, err)
	}
	set := make(map[string]struct{}, len(children)+1)
	set[id] = struct{}{}
	for _, c := range children {
		set[c] = struct{}{}
	}
	return set, nil
}

// joinNotebookPath places a column notebook path under the board root
func joinNotebookPath(root, rel string) string {
	rel = strings.Trim(rel, "/")
	root = strings.TrimSuffix(root, "/")
	if root == "" {
		return "/" + rel
	}
	return root + "/" + rel
}

// Errors returns the configuration problems found at load time
func (m *Model) Errors() []string {
	return append([]string(nil), m.errors...)
}

// Valid reports whether the model loaded without errors
func (m *Model) Valid() bool {
	return len(m.errors) == 0
}

// Columns returns the column rules in declared order
func (m *Model) Columns() []Column {
	return append([]Column(nil), m.columns...)
}

// Column returns the rule of the named column
func (m *Model) Column(name string) (Column, bool) {
	for _, c := range m.columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the column names in declared order
func (m *Model) ColumnNames() []string {
	names := make([]string, len(m.columns))
	for i, c := range m.columns {
		names[i] = c.Name
	}
	return names
}

// ConfigNoteID is the id of the note holding the board configuration.
func (m *Model) ConfigNoteID() string { return m.configNoteID }

// BaseTag is the filter tag every board note must carry. It is empty on
// an inert board.
func (m *Model) BaseTag() string { return m.baseTag }

// RootNotebookID is the notebook whose subtree the board covers. Notes
// leaving a notebook column are moved back here.
func (m *Model) RootNotebookID() string { return m.rootNotebookID }

// RootNotebookPath is the slash separated path RootNotebookID was
// resolved from.
func (m *Model) RootNotebookPath() string { return m.rootNotebookPath }

// TagID returns the store id of a tag used by this board
func (m *Model) TagID(name string) string {
	if id, ok := m.tagIDs[name]; ok {
		return id
	}
	return name
}

// HiddenTags returns every tag the board manages through its rules,
// sorted. Callers hide these when displaying notes.
func (m *Model) HiddenTags() []string {
	if !m.Valid() {
		return nil
	}
	tags := make([]string, 0, len(m.tagIDs))
	for name := range m.tagIDs {
		tags = append(tags, name)
	}
	sort.Strings(tags)
	return tags
}

type parsedColumn struct {
	name         string
	backlog      bool
	tags         []string
	notebookPath string
	completed    bool
	newNoteTitle string
}

type parsedConfig struct {
	columns  []parsedColumn
	rootPath string
	baseTag  string
}

func validate(raw RawConfig) (parsedConfig, []string) {
	var parsed parsedConfig
	var errs []string

	if raw == nil {
		return parsed, []string{"configuration is empty"}
	}

	rawCols, ok := raw["columns"]
	if !ok {
		errs = append(errs, `"columns" is missing`)
	} else if list, ok := rawCols.([]any); !ok {
		errs = append(errs, `"columns" must be a list`)
	} else if len(list) == 0 {
		errs = append(errs, `"columns" must contain at least one column`)
	} else {
		seen := make(map[string]bool)
		backlogs := 0
		for i, item := range list {
			cs, colErrs := validateColumn(i, item)
			errs = append(errs, colErrs...)
			if len(colErrs) > 0 {
				continue
			}
			if seen[cs.name] {
				errs = append(errs, fmt.Sprintf("column %d: name %q is used more than once", i+1, cs.name))
			}
			seen[cs.name] = true
			if cs.backlog {
				backlogs++
			}
			parsed.columns = append(parsed.columns, cs)
		}
		if backlogs > 1 {
			errs = append(errs, "only one column can be the backlog")
		}
	}

	rawFilters, ok := raw["filters"]
	if !ok {
		errs = append(errs, `"filters" is missing`)
		return parsed, errs
	}
	filters, ok := rawFilters.(map[string]any)
	if !ok {
		errs = append(errs, `"filters" must be a map`)
		return parsed, errs
	}
	if v, ok := filters["rootNotebookPath"]; ok {
		p, ok := v.(string)
		switch {
		case !ok:
			errs = append(errs, `filters: "rootNotebookPath" must be a string`)
		case p == "":
		case !validRootPath(p):
			errs = append(errs, fmt.Sprintf("filters: notebook path %q is not valid", p))
		default:
			parsed.rootPath = p
		}
	}
	tag, ok := filters["tag"].(string)
	if !ok || strings.TrimSpace(tag) == "" {
		errs = append(errs, `filters: "tag" is required`)
	} else {
		parsed.baseTag = tag
	}

	return parsed, errs
}

func validateColumn(i int, item any) (parsedColumn, []string) {
	var cs parsedColumn
	fields, ok := item.(map[string]any)
	if !ok {
		return cs, []string{fmt.Sprintf("column %d: must be a map", i+1)}
	}

	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf("column %d: ", i+1)+fmt.Sprintf(format, args...))
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !columnKeys[k] {
			fail("unknown field %q", k)
		}
	}

	name, ok := fields["name"].(string)
	if !ok || strings.TrimSpace(name) == "" {
		fail(`"name" is required`)
	}
	cs.name = name

	if v, ok := fields["backlog"]; ok {
		b, ok := v.(bool)
		if !ok {
			fail(`"backlog" must be true or false`)
		}
		cs.backlog = b
	}
	if v, ok := fields["completed"]; ok {
		b, ok := v.(bool)
		if !ok {
			fail(`"completed" must be true or false`)
		}
		cs.completed = b
	}
	if v, ok := fields["tag"]; ok {
		tag, ok := v.(string)
		if !ok || tag == "" {
			fail(`"tag" must be a non-empty string`)
		} else {
			cs.tags = appendUnique(cs.tags, tag)
		}
	}
	if v, ok := fields["tags"]; ok {
		list, ok := v.([]any)
		if !ok {
			fail(`"tags" must be a list of strings`)
		}
		for _, t := range list {
			tag, ok := t.(string)
			if !ok || tag == "" {
				fail(`"tags" must be a list of strings`)
				break
			}
			cs.tags = appendUnique(cs.tags, tag)
		}
	}
	if v, ok := fields["notebookPath"]; ok {
		p, ok := v.(string)
		if !ok || !validColumnPath(p) {
			fail("notebook path %v is not valid", v)
		}
		cs.notebookPath = p
	}
	if v, ok := fields["newNoteTitle"]; ok {
		t, ok := v.(string)
		if !ok {
			fail(`"newNoteTitle" must be a string`)
		}
		cs.newNoteTitle = t
	}

	return cs, errs
}

func validRootPath(p string) bool {
	if strings.Trim(p, "/") == "" {
		return p != ""
	}
	return validColumnPath(p)
}

func validColumnPath(p string) bool {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return false
	}
	for _, part := range strings.Split(trimmed, "/") {
		if strings.TrimSpace(part) == "" {
			return false
		}
	}
	return true
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
