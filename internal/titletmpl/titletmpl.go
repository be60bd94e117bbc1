// Package titletmpl renders the note title templates of board columns.
//
// A template is plain text with embedded date expressions:
//
//	Task for <%= today() %>
//	Due <%= today().add('2d') %>
//	Week of <%= today().format('MM/dd') %>
//
// today() is the date passed to Render. add takes a count and a unit
// (d, w, m or y, negative counts allowed); format takes a pattern made of
// yyyy, yy, MMMM, MMM, MM, M, dd, d, EEEE, EEE, HH, mm and ss.
package titletmpl

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultFormat is used when an expression has no format call
const DefaultFormat = "yyyy-MM-dd"

var (
	ErrSyntax = errors.New("template syntax error")

	exprRe = regexp.MustCompile(`<%=\s*(.*?)\s*%>`)
	callRe = regexp.MustCompile(`^\.\s*(add|format)\(\s*'([^']*)'\s*\)`)
	addRe  = regexp.MustCompile(`^([+-]?\d+)\s*([dwmy])$`)
)

// Renderer expands title templates. The zero value is ready to use.
type Renderer struct{}

// New returns a Renderer
func New() *Renderer {
	return &Renderer{}
}

// Render expands every expression in tmpl against now
func (r *Renderer) Render(tmpl string, now time.Time) (string, error) {
	var firstErr error
	out := exprRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		expr := exprRe.FindStringSubmatch(m)[1]
		s, err := eval(expr, now)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return s
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

func eval(expr string, now time.Time) (string, error) {
	rest := strings.TrimSpace(expr)
	if !strings.HasPrefix(rest, "today()") {
		return "", fmt.Errorf("%w: expected today() in %q", ErrSyntax, expr)
	}
	rest = strings.TrimSpace(strings.TrimPrefix(rest, "today()"))

	date := now
	format := DefaultFormat
	for rest != "" {
		m := callRe.FindStringSubmatch(rest)
		if m == nil {
			return "", fmt.Errorf("%w: unexpected %q", ErrSyntax, rest)
		}
		switch m[1] {
		case "add":
			d, err := add(date, m[2])
			if err != nil {
				return "", err
			}
			date = d
		case "format":
			format = m[2]
		}
		rest = strings.TrimSpace(rest[len(m[0]):])
	}

	return formatDate(date, format), nil
}

func add(t time.Time, amount string) (time.Time, error) {
	m := addRe.FindStringSubmatch(strings.TrimSpace(amount))
	if m == nil {
		return t, fmt.Errorf("%w: bad duration %q", ErrSyntax, amount)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return t, fmt.Errorf("%w: bad duration %q", ErrSyntax, amount)
	}
	switch m[2] {
	case "d":
		return t.AddDate(0, 0, n), nil
	case "w":
		return t.AddDate(0, 0, 7*n), nil
	case "m":
		return addMonths(t, n), nil
	default:
		return addMonths(t, 12*n), nil
	}
}

// addMonths shifts t by n calendar months, clamping the day to the end of
// the target month instead of overflowing into the next one.
func addMonths(t time.Time, n int) time.Time {
	y, mo, d := t.Date()
	first := time.Date(y, mo+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

var tokens = []struct {
	pattern string
	layout  string
}{
	{"yyyy", "2006"},
	{"yy", "06"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"MM", "01"},
	{"M", "1"},
	{"dd", "02"},
	{"d", "2"},
	{"EEEE", "Monday"},
	{"EEE", "Mon"},
	{"HH", "15"},
	{"mm", "04"},
	{"ss", "05"},
}

// formatDate renders t with a date pattern. Recognised tokens are formatted
// one at a time; every other byte is copied to the output unchanged.
func formatDate(t time.Time, pattern string) string {
	var sb strings.Builder
	for i := 0; i < len(pattern); {
		matched := false
		for _, tok := range tokens {
			if strings.HasPrefix(pattern[i:], tok.pattern) {
				sb.WriteString(t.Format(tok.layout))
				i += len(tok.pattern)
				matched = true
				break
			}
		}
		if !matched {
			sb.WriteByte(pattern[i])
			i++
		}
	}
	return sb.String()
}
