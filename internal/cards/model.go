package cards

import (
	"github.com/lotas/tabgrid/internal/applog"
	"github.com/lotas/tabgrid/internal/types"
)

// NotFound is returned by every index lookup that has no answer.
const NotFound = -1

// ChangeKind classifies a list change notification.
type ChangeKind int

const (
	Inserted ChangeKind = iota
	Removed
	Changed
	Moved
)

// Field names the card attribute a Changed notification refers to.
type Field string

const (
	FieldTab          Field = "tab" // representative tab or root id
	FieldTitle        Field = "title"
	FieldDomain       Field = "domain"
	FieldColor        Field = "color"
	FieldSelected     Field = "selected"
	FieldFavicon      Field = "favicon"
	FieldThumbnail    Field = "thumbnail"
	FieldImages       Field = "images"
	FieldDescriptions Field = "descriptions"
)

// Change describes a range mutation of the list. For Moved, Index is the
// old position and To the new one.
type Change struct {
	Kind  ChangeKind
	Index int
	Count int
	To    int
	Field Field
}

// Model is the ordered list of cards. It is owned by a single goroutine.
type Model struct {
	cards     []Card
	collapse  bool
	listeners map[int]func(Change)
	order     []int
	nextID    int
}

// New creates an empty Model. With collapseGroups, Reset keeps one card per
// root id; otherwise every tab gets a card.
func New(collapseGroups bool) *Model {
	return &Model{
		collapse:  collapseGroups,
		listeners: make(map[int]func(Change)),
	}
}

// CollapseGroups reports whether the model keeps one card per group.
func (m *Model) CollapseGroups() bool {
	return m.collapse
}

// Subscribe registers fn for change notifications.
func (m *Model) Subscribe(fn func(Change)) func() {
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.order = append(m.order, id)
	return func() {
		delete(m.listeners, id)
		for i, o := range m.order {
			if o == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
}

func (m *Model) notify(c Change) {
	for _, id := range append([]int(nil), m.order...) {
		if fn, ok := m.listeners[id]; ok {
			fn(c)
		}
	}
}

// Size returns the number of cards.
func (m *Model) Size() int {
	return len(m.cards)
}

// Get returns the card at index, or nil when out of range.
func (m *Model) Get(index int) Card {
	if index < 0 || index >= len(m.cards) {
		return nil
	}
	return m.cards[index]
}

// TabCardAt returns the tab card at index, or nil.
func (m *Model) TabCardAt(index int) *TabCard {
	tc, _ := m.Get(index).(*TabCard)
	return tc
}

// TabCards returns the tab cards in list order.
func (m *Model) TabCards() []*TabCard {
	var out []*TabCard
	for _, c := range m.cards {
		if tc, ok := c.(*TabCard); ok {
			out = append(out, tc)
		}
	}
	return out
}

// IndexOfCardForTab returns the index of the card whose representative is tabID.
func (m *Model) IndexOfCardForTab(tabID int) int {
	for i, c := range m.cards {
		if tc, ok := c.(*TabCard); ok && tc.TabID == tabID {
			return i
		}
	}
	return NotFound
}

// IndexOfRoot returns the index of the card for the group rootID.
func (m *Model) IndexOfRoot(rootID int) int {
	for i, c := range m.cards {
		if tc, ok := c.(*TabCard); ok && tc.RootID == rootID {
			return i
		}
	}
	return NotFound
}

// IndexOfCard returns the position of a specific card value.
func (m *Model) IndexOfCard(card Card) int {
	for i, c := range m.cards {
		if c == card {
			return i
		}
	}
	return NotFound
}

// Reset rebuilds the tab cards from a flat tab list. When quickMode is set
// and the resulting tab card sequence matches the current one, nothing is
// mutated and Reset returns true.
func (m *Model) Reset(tabs []*types.Tab, quickMode bool) bool {
	return m.ResetFunc(tabs, quickMode, nil)
}

// ResetFunc is Reset with fill called on every new tab card, by index,
// before the insertion is announced.
func (m *Model) ResetFunc(tabs []*types.Tab, quickMode bool, fill func(index int)) bool {
	next := m.collapseTabs(tabs)

	if quickMode && m.sameTabs(next) {
		return true
	}

	if n := len(m.cards); n > 0 {
		m.cards = nil
		m.notify(Change{Kind: Removed, Index: 0, Count: n})
	}
	for _, t := range next {
		m.cards = append(m.cards, &TabCard{TabID: t.ID, RootID: t.RootID, ColorID: types.NoColor})
	}
	if fill != nil {
		for i := range m.cards {
			fill(i)
		}
	}
	if len(m.cards) > 0 {
		m.notify(Change{Kind: Inserted, Index: 0, Count: len(m.cards)})
	}
	return false
}

func (m *Model) collapseTabs(tabs []*types.Tab) []*types.Tab {
	if !m.collapse {
		return tabs
	}
	seen := make(map[int]bool, len(tabs))
	out := make([]*types.Tab, 0, len(tabs))
	for _, t := range tabs {
		if seen[t.RootID] {
			continue
		}
		seen[t.RootID] = true
		out = append(out, t)
	}
	return out
}

func (m *Model) sameTabs(tabs []*types.Tab) bool {
	current := m.TabCards()
	if len(current) != len(tabs) {
		return false
	}
	for i, tc := range current {
		if tc.TabID != tabs[i].ID {
			return false
		}
	}
	return true
}

// Insert places a card at index, clamped to the list bounds.
func (m *Model) Insert(index int, c Card) {
	if index < 0 || index > len(m.cards) {
		index = len(m.cards)
	}
	m.cards = append(m.cards, nil)
	copy(m.cards[index+1:], m.cards[index:])
	m.cards[index] = c
	m.notify(Change{Kind: Inserted, Index: index, Count: 1})
}

// RemoveAt removes the card at index. Out-of-range indices are ignored.
func (m *Model) RemoveAt(index int) {
	if index < 0 || index >= len(m.cards) {
		applog.Warn("cards.remove_out_of_range", "index", index, "size", len(m.cards))
		return
	}
	m.cards = append(m.cards[:index], m.cards[index+1:]...)
	m.notify(Change{Kind: Removed, Index: index, Count: 1})
}

// Move relocates the card at from to position to.
func (m *Model) Move(from, to int) {
	if from < 0 || from >= len(m.cards) || to < 0 || to >= len(m.cards) {
		applog.Warn("cards.move_out_of_range", "from", from, "to", to, "size", len(m.cards))
		return
	}
	if from == to {
		return
	}
	c := m.cards[from]
	m.cards = append(m.cards[:from], m.cards[from+1:]...)
	m.cards = append(m.cards, nil)
	copy(m.cards[to+1:], m.cards[to:])
	m.cards[to] = c
	m.notify(Change{Kind: Moved, Index: from, To: to, Count: 1})
}

// MoveToTabPosition moves the card at from so that it becomes the n-th tab
// card, counting the other tab cards only.
func (m *Model) MoveToTabPosition(from, n int) {
	if from < 0 || from >= len(m.cards) || n < 0 {
		applog.Warn("cards.move_out_of_range", "from", from, "tab_position", n, "size", len(m.cards))
		return
	}
	count := 0
	to := len(m.cards) - 1
	pos := 0
	for i, c := range m.cards {
		if i == from {
			continue
		}
		if _, ok := c.(*TabCard); ok {
			if count == n {
				to = pos
				break
			}
			count++
		}
		pos++
	}
	m.Move(from, to)
}

// NotifyChanged reports in-place mutations of the card at index.
func (m *Model) NotifyChanged(index int, fields ...Field) {
	if index < 0 || index >= len(m.cards) {
		return
	}
	for _, f := range fields {
		m.notify(Change{Kind: Changed, Index: index, Count: 1, Field: f})
	}
}

// InsertSpecialItem injects a message card at index.
func (m *Model) InsertSpecialItem(index int, msgType string, priority int, payload any) *MessageCard {
	applog.Assert(msgType != "", "cards.special_item_without_type", "index", index)
	mc := &MessageCard{Type: msgType, Priority: priority, Payload: payload}
	m.Insert(index, mc)
	return mc
}

// InsertDivider injects a divider at index.
func (m *Model) InsertDivider(index int) {
	m.Insert(index, &DividerCard{})
}

// RemoveSpecialItem removes every message card of msgType for which match
// returns true (a nil match removes all of that type). It returns the
// number of removed cards.
func (m *Model) RemoveSpecialItem(msgType string, match func(*MessageCard) bool) int {
	removed := 0
	for i := len(m.cards) - 1; i >= 0; i-- {
		mc, ok := m.cards[i].(*MessageCard)
		if !ok || mc.Type != msgType {
			continue
		}
		if match != nil && !match(mc) {
			continue
		}
		m.RemoveAt(i)
		removed++
	}
	return removed
}

// IndexOfNthTabCard returns the list index of the n-th tab card. When n is
// past the last tab card it returns the position right after it, which is
// where an n-th card would be inserted.
func (m *Model) IndexOfNthTabCard(n int) int {
	if n < 0 {
		return NotFound
	}
	count := 0
	last := NotFound
	for i, c := range m.cards {
		if _, ok := c.(*TabCard); !ok {
			continue
		}
		if count == n {
			return i
		}
		count++
		last = i
	}
	return last + 1
}

// TabCardCountBefore returns how many tab cards precede index.
func (m *Model) TabCardCountBefore(index int) int {
	if index < 0 || index > len(m.cards) {
		return NotFound
	}
	count := 0
	for i := 0; i < index; i++ {
		if _, ok := m.cards[i].(*TabCard); ok {
			count++
		}
	}
	return count
}

// TabIndexBefore returns the index of the closest tab card before index.
func (m *Model) TabIndexBefore(index int) int {
	if index < 0 || index > len(m.cards) {
		return NotFound
	}
	for i := index - 1; i >= 0; i-- {
		if _, ok := m.cards[i].(*TabCard); ok {
			return i
		}
	}
	return NotFound
}

// TabIndexAfter returns the index of the closest tab card after index.
func (m *Model) TabIndexAfter(index int) int {
	if index < 0 || index >= len(m.cards) {
		return NotFound
	}
	for i := index + 1; i < len(m.cards); i++ {
		if _, ok := m.cards[i].(*TabCard); ok {
			return i
		}
	}
	return NotFound
}
