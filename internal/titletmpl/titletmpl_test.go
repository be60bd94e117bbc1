package titletmpl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	now := time.Date(2025, 1, 31, 9, 30, 0, 0, time.UTC)
	r := New()

	tests := []struct {
		tmpl string
		want string
	}{
		{"New Task", "New Task"},
		{"Task for <%= today() %>", "Task for 2025-01-31"},
		{"Due <%= today().add('2d') %>", "Due 2025-02-02"},
		{"Task <%= today().format('MM/dd') %>", "Task 01/31"},
		{"Review <%= today().add('1w').format('EEE d MMM') %>", "Review Fri 7 Feb"},
		{"<%= today().add('-1y').format('yyyy') %> recap", "2024 recap"},
		{"<%=today()%> to <%= today().add('1m') %>", "2025-01-31 to 2025-02-28"},
		{"Quarter <%= today().add('-2m').format('yyyy-MM-dd') %>", "Quarter 2024-11-30"},
		{"Standup <%= today().format('HH:mm') %>", "Standup 09:30"},
		{"Sprint <%= today().format('yyyy-MM-dd 5') %>", "Sprint 2025-01-31 5"},
		{"Call <%= today().format('HH:mm pm') %>", "Call 09:30 pm"},
		{"Sync <%= today().format('dd -0700 _2') %>", "Sync 31 -0700 _2"},
	}

	for _, tt := range tests {
		t.Run(tt.tmpl, func(t *testing.T) {
			got, err := r.Render(tt.tmpl, now)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRenderLeapDay(t *testing.T) {
	now := time.Date(2024, 2, 29, 8, 0, 0, 0, time.UTC)
	r := New()

	got, err := r.Render("Anniversary <%= today().add('1y') %>", now)
	require.NoError(t, err)
	require.Equal(t, "Anniversary 2025-02-28", got)

	got, err = r.Render("<%= today().add('-1m') %> <%= today().add('4y') %>", now)
	require.NoError(t, err)
	require.Equal(t, "2024-01-29 2028-02-29", got)
}

func TestRenderErrors(t *testing.T) {
	now := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	r := New()

	for _, tmpl := range []string{
		"<%= yesterday() %>",
		"<%= today().add('2x') %>",
		"<%= today().shift('2d') %>",
	} {
		_, err := r.Render(tmpl, now)
		require.ErrorIs(t, err, ErrSyntax, tmpl)
	}
}
