// Package selection tracks which cart lines a shopper has marked for checkout
// or bulk delete. It is request-local and never persisted.
package selection

import (
	"errors"

	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrEmptySelection is returned when an action needs at least one selected line.
var ErrEmptySelection = errors.New("selection is empty")

// Notices for an empty selection, per action.
const (
	NoticeCheckoutEmpty = "Please select items to checkout"
	NoticeDeleteEmpty   = "Please select items to delete"
)

// Set is a selection over a specific cart view. Ids never outlive the lines they name.
type Set struct {
	lines    types.CartLines
	selected map[uuid.UUID]struct{}
}

// New builds a selection over lines with every line selected.
func New(lines types.CartLines) *Set {
	s := &Set{}
	s.Resync(lines)
	return s
}

// Apply builds a selection over lines containing exactly the requested ids.
// Ids that do not name a current line are dropped.
func Apply(lines types.CartLines, ids []uuid.UUID) *Set {
	s := New(lines)
	s.SelectAll(false)
	for _, id := range ids {
		s.Toggle(id, true)
	}
	return s
}

// Resync replaces the underlying lines and reselects all of them.
func (s *Set) Resync(lines types.CartLines) {
	s.lines = lines.Clone()
	s.SelectAll(true)
}

// SelectAll selects every line when flag is true and clears the set otherwise.
func (s *Set) SelectAll(flag bool) {
	s.selected = make(map[uuid.UUID]struct{}, len(s.lines))
	if !flag {
		return
	}
	for _, line := range s.lines {
		s.selected[line.ID] = struct{}{}
	}
}

// Toggle adds or removes one line. Unknown ids are ignored.
func (s *Set) Toggle(lineID uuid.UUID, flag bool) {
	if !s.lines.Contains(lineID) {
		return
	}
	if flag {
		s.selected[lineID] = struct{}{}
		return
	}
	delete(s.selected, lineID)
}

// IsSelected reports whether the line is in the set.
func (s *Set) IsSelected(lineID uuid.UUID) bool {
	_, ok := s.selected[lineID]
	return ok
}

// AllSelected reports whether every line is selected and there is at least one.
func (s *Set) AllSelected() bool {
	return len(s.lines) > 0 && len(s.selected) == len(s.lines)
}

// IsEmpty reports whether nothing is selected.
func (s *Set) IsEmpty() bool {
	return len(s.selected) == 0
}

// Selected returns the selected lines in cart order.
func (s *Set) Selected() types.CartLines {
	out := make(types.CartLines, 0, len(s.selected))
	for _, line := range s.lines {
		if s.IsSelected(line.ID) {
			out = append(out, line)
		}
	}
	return out
}

// IDs returns the selected line ids in cart order.
func (s *Set) IDs() []uuid.UUID {
	return s.Selected().IDs()
}

// SelectedTotal sums price times quantity over the selected lines.
func (s *Set) SelectedTotal() decimal.Decimal {
	return s.Selected().Total()
}

// Require returns the selected lines, or ErrEmptySelection.
func (s *Set) Require() (types.CartLines, error) {
	if s.IsEmpty() {
		return nil, ErrEmptySelection
	}
	return s.Selected(), nil
}
