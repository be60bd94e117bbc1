// Package boardconf reads and writes the fenced kanban block that holds a
// board's configuration inside a note body.
package boardconf

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	fenceOpen  = "```kanban"
	fenceClose = "```"
)

var fenceRe = regexp.MustCompile("(?s)```kanban[ \t]*\r?\n(.*?)```")

// Extract returns the text inside the first kanban fence of body
func Extract(body string) (string, bool) {
	m := fenceRe.FindStringSubmatch(body)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Parse decodes the kanban block of body. found is false when body has no
// kanban block at all. A block that is not valid YAML, or whose top level
// is not a map, yields an error.
func Parse(body string) (raw map[string]any, found bool, err error) {
	text, ok := Extract(body)
	if !ok {
		return nil, false, nil
	}

	var doc any
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, true, fmt.Errorf("parse yaml: %w", err)
	}
	if doc == nil {
		return nil, true, nil
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, true, fmt.Errorf("configuration must be a map, got %T", doc)
	}
	return m, true, nil
}

// Render wraps config in a kanban fence followed by after
func Render(config, after string) string {
	var sb strings.Builder
	sb.WriteString(fenceOpen)
	sb.WriteString("\n")
	sb.WriteString(strings.TrimRight(config, "\n"))
	sb.WriteString("\n")
	sb.WriteString(fenceClose)
	if after != "" {
		sb.WriteString("\n")
		sb.WriteString(after)
	}
	return sb.String()
}

// Update replaces the kanban block of body with config, keeping whatever
// text follows it. A body without a block gets one prepended.
func Update(body, config string) string {
	loc := fenceRe.FindStringIndex(body)
	if loc == nil {
		return Render(config, body)
	}
	after := strings.TrimPrefix(body[loc[1]:], "\n")
	return body[:loc[0]] + Render(config, after)
}
