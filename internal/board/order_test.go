package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pbaille/kanban/internal/domain"
)

func siblings(orders ...int64) []domain.Note {
	notes := make([]domain.Note, len(orders))
	for i, o := range orders {
		notes[i] = domain.Note{ID: string(rune('a' + i)), Order: o}
	}
	return notes
}

func TestAllocate(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	tests := []struct {
		name     string
		siblings []domain.Note
		index    int
		want     Allocation
	}{
		{"empty column", nil, 0, Allocation{Order: now.UnixMilli()}},
		{"top", siblings(300, 200), 0, Allocation{Order: now.UnixMilli()}},
		{"bottom", siblings(300, 200), 2, Allocation{Order: -800}},
		{"midpoint", siblings(300, 200, 100, 50), 1, Allocation{Order: 250}},
		{"midpoint rounds down", siblings(301, 200), 1, Allocation{Order: 250}},
		{"negative midpoint rounds down", siblings(-10, -13), 1, Allocation{Order: -12}},
		{"index past the end is clamped", siblings(5), 9, Allocation{Order: -995}},
		{"negative index is clamped", siblings(5), -3, Allocation{Order: now.UnixMilli()}},
		{"adjacent neighbours cascade", siblings(2, 1, 0), 1, Allocation{
			Order: 1,
			SiblingUpdates: []SiblingUpdate{
				{NoteID: "b", Order: -999},
				{NoteID: "c", Order: -1999},
			},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Allocate(tt.siblings, tt.index, now))
		})
	}
}

func TestAllocateKeepsColumnSorted(t *testing.T) {
	now := time.UnixMilli(1_000_000)
	cols := [][]int64{
		{10, 9, 8, 7},
		{5000, 4999, 100, 99, -20},
		{3, 2},
	}

	for _, orders := range cols {
		for index := 0; index <= len(orders); index++ {
			sib := siblings(orders...)
			alloc := Allocate(sib, index, now)

			updated := make(map[string]int64)
			for _, u := range alloc.SiblingUpdates {
				updated[u.NoteID] = u.Order
			}
			var final []int64
			for i, s := range sib {
				if i == index {
					final = append(final, alloc.Order)
				}
				o := s.Order
				if v, ok := updated[s.ID]; ok {
					o = v
				}
				final = append(final, o)
			}
			if index == len(sib) {
				final = append(final, alloc.Order)
			}

			for i := 1; i < len(final); i++ {
				require.Greater(t, final[i-1], final[i], "orders %v index %d gave %v", orders, index, final)
			}
		}
	}
}
