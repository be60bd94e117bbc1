package board

import (
	"time"

	"github.com/pbaille/kanban/internal/domain"
)

// DefaultGap is the spacing left between a new order value and its neighbour
const DefaultGap int64 = 1000

// SiblingUpdate is an order value a sibling has to take to make room
type SiblingUpdate struct {
	NoteID string
	Order  int64
}

// Allocation is the result of placing a note among its siblings
type Allocation struct {
	Order          int64
	SiblingUpdates []SiblingUpdate
}

// Allocate computes the order value for a note inserted at index among
// siblings, which are sorted by descending order and exclude the note.
//
// The top slot takes the current time in milliseconds and the bottom slot
// sits DefaultGap below the last sibling. Between two siblings the midpoint
// is used; when the neighbours are adjacent integers there is no midpoint,
// so the lower neighbour and every sibling after it are pushed down by
// DefaultGap steps.
func Allocate(siblings []domain.Note, index int, now time.Time) Allocation {
	if index < 0 {
		index = 0
	}
	if index > len(siblings) {
		index = len(siblings)
	}

	if index == 0 {
		return Allocation{Order: now.UnixMilli()}
	}
	if index == len(siblings) {
		return Allocation{Order: siblings[len(siblings)-1].Order - DefaultGap}
	}

	above := siblings[index-1].Order
	below := siblings[index].Order
	candidate := floorHalf(above + below)
	if candidate != below {
		return Allocation{Order: candidate}
	}

	alloc := Allocation{Order: candidate}
	prev := candidate
	for _, s := range siblings[index:] {
		prev -= DefaultGap
		alloc.SiblingUpdates = append(alloc.SiblingUpdates, SiblingUpdate{NoteID: s.ID, Order: prev})
	}
	return alloc
}

func floorHalf(v int64) int64 {
	q := v / 2
	if v%2 != 0 && v < 0 {
		q--
	}
	return q
}
