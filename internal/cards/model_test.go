package cards

import (
	"fmt"
	"testing"

	"github.com/lotas/tabgrid/internal/applog"
	"github.com/lotas/tabgrid/internal/types"
)

func tabsOf(pairs ...[2]int) []*types.Tab {
	var out []*types.Tab
	for _, p := range pairs {
		out = append(out, &types.Tab{ID: p[0], RootID: p[1]})
	}
	return out
}

func tabIDs(m *Model) []int {
	var out []int
	for _, tc := range m.TabCards() {
		out = append(out, tc.TabID)
	}
	return out
}

func TestReset_CollapsesByRoot(t *testing.T) {
	m := New(true)
	m.Reset(tabsOf([2]int{1, 1}, [2]int{2, 1}, [2]int{3, 3}), false)
	if got := fmt.Sprint(tabIDs(m)); got != "[1 3]" {
		t.Errorf("cards = %s, want [1 3]", got)
	}

	flat := New(false)
	flat.Reset(tabsOf([2]int{1, 1}, [2]int{2, 1}), false)
	if flat.Size() != 2 {
		t.Errorf("flat size = %d, want 2", flat.Size())
	}
}

func TestReset_QuickModeNoOp(t *testing.T) {
	m := New(true)
	ts := tabsOf([2]int{1, 1}, [2]int{2, 2})
	m.Reset(ts, false)
	m.InsertDivider(1)

	var changes []Change
	m.Subscribe(func(c Change) { changes = append(changes, c) })

	if !m.Reset(ts, true) {
		t.Fatal("expected quick no-op")
	}
	if len(changes) != 0 {
		t.Errorf("quick no-op notified %+v", changes)
	}
	if m.Size() != 3 {
		t.Errorf("quick no-op dropped the divider")
	}

	if m.Reset(tabsOf([2]int{2, 2}, [2]int{1, 1}), true) {
		t.Error("reordered tabs reported as no-op")
	}
	if got := fmt.Sprint(tabIDs(m)); got != "[2 1]" {
		t.Errorf("cards = %s", got)
	}
	if len(changes) != 2 || changes[0].Kind != Removed || changes[1].Kind != Inserted {
		t.Errorf("changes = %+v", changes)
	}
}

func TestIndexLookups(t *testing.T) {
	m := New(true)
	m.Reset(tabsOf([2]int{1, 1}, [2]int{5, 2}), false)
	m.InsertSpecialItem(0, "tip", 1, nil)

	if got := m.IndexOfCardForTab(5); got != 2 {
		t.Errorf("IndexOfCardForTab(5) = %d, want 2", got)
	}
	if got := m.IndexOfRoot(2); got != 2 {
		t.Errorf("IndexOfRoot(2) = %d, want 2", got)
	}
	if got := m.IndexOfCardForTab(9); got != NotFound {
		t.Errorf("unknown tab = %d", got)
	}
	if m.TabCardAt(0) != nil || m.Get(7) != nil {
		t.Error("non-tab or out-of-range lookup returned a card")
	}
}

func TestNavigationHelpers(t *testing.T) {
	m := New(true)
	m.Reset(tabsOf([2]int{1, 1}, [2]int{2, 2}, [2]int{3, 3}), false)
	m.InsertSpecialItem(1, "tip", 0, nil)
	// [tab1, tip, tab2, tab3]

	tests := []struct {
		name string
		got  int
		want int
	}{
		{"nth 0", m.IndexOfNthTabCard(0), 0},
		{"nth 1", m.IndexOfNthTabCard(1), 2},
		{"nth past end", m.IndexOfNthTabCard(3), 4},
		{"nth negative", m.IndexOfNthTabCard(-1), NotFound},
		{"count before 2", m.TabCardCountBefore(2), 1},
		{"count before end", m.TabCardCountBefore(4), 3},
		{"count before invalid", m.TabCardCountBefore(9), NotFound},
		{"before 2", m.TabIndexBefore(2), 0},
		{"before 0", m.TabIndexBefore(0), NotFound},
		{"after 0", m.TabIndexAfter(0), 2},
		{"after last", m.TabIndexAfter(3), NotFound},
		{"after invalid", m.TabIndexAfter(-2), NotFound},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}

func TestRemoveSpecialItem(t *testing.T) {
	m := New(true)
	m.Reset(tabsOf([2]int{1, 1}), false)
	m.InsertSpecialItem(0, "tip", 1, "a")
	m.InsertSpecialItem(0, "tip", 2, "b")
	m.InsertSpecialItem(0, "notice", 1, nil)

	n := m.RemoveSpecialItem("tip", func(mc *MessageCard) bool { return mc.Payload == "a" })
	if n != 1 || m.Size() != 3 {
		t.Errorf("removed %d, size %d", n, m.Size())
	}
	if n := m.RemoveSpecialItem("tip", nil); n != 1 {
		t.Errorf("removed %d, want 1", n)
	}
	if _, ok := m.Get(0).(*MessageCard); !ok {
		t.Error("notice removed")
	}
}

func TestInsertSpecialItem_RequiresType(t *testing.T) {
	applog.SetStrict(true)
	defer applog.SetStrict(false)

	defer func() {
		if recover() == nil {
			t.Error("expected assertion panic")
		}
	}()
	New(true).InsertSpecialItem(0, "", 0, nil)
}

func TestMove(t *testing.T) {
	m := New(true)
	m.Reset(tabsOf([2]int{1, 1}, [2]int{2, 2}, [2]int{3, 3}), false)
	var changes []Change
	m.Subscribe(func(c Change) { changes = append(changes, c) })

	m.Move(0, 2)
	if got := fmt.Sprint(tabIDs(m)); got != "[2 3 1]" {
		t.Errorf("cards = %s", got)
	}
	m.Move(0, 9)
	if len(changes) != 1 || changes[0].Index != 0 || changes[0].To != 2 {
		t.Errorf("changes = %+v", changes)
	}
}

func TestMoveToTabPosition_SkipsNonTabCards(t *testing.T) {
	m := New(true)
	m.Reset(tabsOf([2]int{1, 1}, [2]int{2, 2}, [2]int{3, 3}), false)
	m.InsertDivider(1)
	// [tab1, divider, tab2, tab3]

	m.MoveToTabPosition(0, 2)
	if got := fmt.Sprint(tabIDs(m)); got != "[2 3 1]" {
		t.Errorf("cards = %s", got)
	}
	if _, ok := m.Get(0).(*DividerCard); !ok {
		t.Error("divider moved")
	}

	m.MoveToTabPosition(m.IndexOfCardForTab(1), 0)
	if got := fmt.Sprint(tabIDs(m)); got != "[1 2 3]" {
		t.Errorf("cards = %s", got)
	}
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	m := New(true)
	n := 0
	cancel := m.Subscribe(func(Change) { n++ })
	m.InsertDivider(0)
	cancel()
	m.InsertDivider(0)
	if n != 1 {
		t.Errorf("notifications = %d, want 1", n)
	}
}
