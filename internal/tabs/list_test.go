package tabs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lotas/tabgrid/internal/types"
)

func mk(id, root int, group string) *types.Tab {
	return &types.Tab{ID: id, RootID: root, GroupID: group, URL: fmt.Sprintf("https://t%d.example/", id)}
}

func ids(ts []*types.Tab) []int {
	var out []int
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}

func visibleIDs(l *List) []int {
	var out []int
	for i := 0; i < l.Count(); i++ {
		out = append(out, l.TabAt(i).ID)
	}
	return out
}

func record(l *List) *[]Event {
	var evs []Event
	l.Subscribe(func(ev Event) { evs = append(evs, ev) })
	return &evs
}

func kinds(evs []Event) []Kind {
	var out []Kind
	for _, ev := range evs {
		out = append(out, ev.Kind())
	}
	return out
}

func TestLoad_AssignsTokensToUntokenedGroups(t *testing.T) {
	l := NewList(false)
	l.Load([]*types.Tab{mk(1, 0, ""), mk(2, 1, ""), mk(3, 0, "")}, 1)

	if !l.TabByID(1).Grouped() || l.TabByID(1).GroupID != l.TabByID(2).GroupID {
		t.Errorf("group {1,2} without a shared token: %q %q", l.TabByID(1).GroupID, l.TabByID(2).GroupID)
	}
	if l.TabByID(3).Grouped() || l.TabByID(3).RootID != 3 {
		t.Errorf("single tab = %+v", l.TabByID(3))
	}
	if l.GroupCount() != 2 {
		t.Errorf("group count = %d, want 2", l.GroupCount())
	}
}

func TestLastShownTab(t *testing.T) {
	l := NewList(true)
	l.Load([]*types.Tab{mk(1, 1, "g"), mk(2, 1, "g"), mk(3, 1, "g")}, 0)

	if got := l.LastShownTab(1).ID; got != 1 {
		t.Errorf("no selection: last shown = %d, want first member 1", got)
	}
	l.Select(3)
	l.Select(2)
	if got := l.LastShownTab(1).ID; got != 2 {
		t.Errorf("last shown = %d, want 2", got)
	}
	if got := l.GroupAt(0).ID; got != 2 {
		t.Errorf("group representative = %d, want 2", got)
	}
}

func TestIsInTabGroup_DependsOnMode(t *testing.T) {
	tests := []struct {
		stable bool
		want   bool
	}{
		{true, true},
		{false, false},
	}
	for _, tt := range tests {
		l := NewList(tt.stable)
		l.Load([]*types.Tab{mk(1, 1, "g")}, 1)
		if got := l.IsInTabGroup(l.TabByID(1)); got != tt.want {
			t.Errorf("stable=%v: single-tab group grouped = %v, want %v", tt.stable, got, tt.want)
		}
	}
}

func TestAdd_JoinsGroupByToken(t *testing.T) {
	l := NewList(true)
	l.Load([]*types.Tab{mk(1, 1, "g"), mk(2, 1, "g"), mk(3, 3, "")}, 1)
	evs := record(l)

	if err := l.Add(mk(4, 0, "g"), 2, false); err != nil {
		t.Fatal(err)
	}
	if got := l.TabByID(4).RootID; got != 1 {
		t.Errorf("root = %d, want 1", got)
	}
	if got := visibleIDs(l); fmt.Sprint(got) != "[1 2 4 3]" {
		t.Errorf("order = %v", got)
	}
	ev, ok := (*evs)[0].(TabAdded)
	if !ok || ev.Launch != types.LaunchLink || ev.Delayed {
		t.Errorf("event = %+v", (*evs)[0])
	}

	if err := l.Add(mk(4, 0, ""), 0, false); err == nil {
		t.Error("duplicate add accepted")
	}
}

func TestClose_HidesAndMigratesRoot(t *testing.T) {
	l := NewList(true)
	l.Load([]*types.Tab{mk(1, 1, "g"), mk(2, 1, "g"), mk(3, 1, "g"), mk(4, 4, "")}, 1)
	evs := record(l)

	if err := l.Close(1); err != nil {
		t.Fatal(err)
	}
	if l.TabByID(1) != nil {
		t.Error("closing tab still visible")
	}
	if got := ids(l.RelatedTabList(2)); fmt.Sprint(got) != "[2 3]" {
		t.Errorf("members under new root = %v", got)
	}
	if root, ok := l.RootIDForGroup("g"); !ok || root != 2 {
		t.Errorf("root for group = %d,%v", root, ok)
	}
	if got := kinds(*evs); fmt.Sprint(got) != "[tab.will_close tab.selected]" {
		t.Errorf("events = %v", got)
	}
	if l.ActiveTab().ID != 2 {
		t.Errorf("active = %d, want 2", l.ActiveTab().ID)
	}

	if err := l.UndoClosure(1); err != nil {
		t.Fatal(err)
	}
	if got := l.TabByID(1).RootID; got != 2 {
		t.Errorf("undone tab root = %d, want 2", got)
	}
	if err := l.CommitClosure(1); err == nil {
		t.Error("commit of a tab that is not closing accepted")
	}
}

func TestCommitClosure(t *testing.T) {
	l := NewList(true)
	l.Load([]*types.Tab{mk(1, 1, ""), mk(2, 2, "")}, 2)
	l.Close(1)
	if err := l.CommitClosure(1); err != nil {
		t.Fatal(err)
	}
	if _, tab := l.find(1); tab != nil {
		t.Error("committed tab still stored")
	}
	if err := l.UndoClosure(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("undo after commit: err = %v", err)
	}
}

func TestMerge_PlacesTabsOnTheirSide(t *testing.T) {
	l := NewList(true)
	l.Load([]*types.Tab{mk(1, 1, ""), mk(2, 2, "g"), mk(3, 2, "g"), mk(4, 4, "")}, 1)
	evs := record(l)

	if err := l.Merge(4, 2); err != nil {
		t.Fatal(err)
	}
	if got := visibleIDs(l); fmt.Sprint(got) != "[1 2 3 4]" {
		t.Errorf("order after merge from the right = %v", got)
	}
	if err := l.Merge(1, 2); err != nil {
		t.Fatal(err)
	}
	if got := visibleIDs(l); fmt.Sprint(got) != "[1 2 3 4]" {
		t.Errorf("order after merge from the left = %v", got)
	}
	if got := l.RelatedTabCount(2); got != 4 {
		t.Errorf("members = %d, want 4", got)
	}
	want := "[group.will_merge group.did_merge group.will_merge group.did_merge]"
	if got := kinds(*evs); fmt.Sprint(got) != want {
		t.Errorf("events = %v", got)
	}

	if err := l.UndoMerge(); err != nil {
		t.Fatal(err)
	}
	if got := l.TabByID(1); got.RootID != 1 || got.Grouped() {
		t.Errorf("undo merge left tab 1 = %+v", got)
	}
	if err := l.UndoMerge(); err == nil {
		t.Error("second undo accepted")
	}
	if err := l.Merge(2, 2); err == nil {
		t.Error("self merge accepted")
	}
}

func TestMerge_UndoClearsNewToken(t *testing.T) {
	l := NewList(true)
	l.Load([]*types.Tab{mk(1, 1, ""), mk(2, 2, "")}, 1)
	l.Merge(1, 2)
	if !l.TabByID(2).Grouped() {
		t.Fatal("merge did not create a token")
	}
	l.UndoMerge()
	if l.TabByID(2).Grouped() || l.TabByID(1).Grouped() {
		t.Error("undo kept the token created by the merge")
	}
}

func TestMoveOutOfGroup(t *testing.T) {
	tests := []struct {
		name       string
		stable     bool
		move       int
		wantOrder  string
		wantRest   int // root of the remaining members
		wantToken  bool
		wantPrevIx int
	}{
		{"legacy member", false, 2, "[1 2 3]", 1, false, 0},
		{"stable member", true, 2, "[1 2 3]", 1, true, 0},
		{"stable root", true, 1, "[2 1 3]", 2, true, 0},
		{"legacy root", false, 1, "[2 1 3]", 2, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewList(tt.stable)
			l.Load([]*types.Tab{mk(1, 1, "g"), mk(2, 1, "g"), mk(3, 3, "")}, 3)
			evs := record(l)

			if err := l.MoveOutOfGroup(tt.move); err != nil {
				t.Fatal(err)
			}
			if got := visibleIDs(l); fmt.Sprint(got) != tt.wantOrder {
				t.Errorf("order = %v, want %s", got, tt.wantOrder)
			}
			moved := l.TabByID(tt.move)
			if moved.Grouped() || moved.RootID != moved.ID {
				t.Errorf("moved tab = %+v", moved)
			}
			rest := l.TabByID(tt.wantRest)
			if rest.RootID != tt.wantRest || rest.Grouped() != tt.wantToken {
				t.Errorf("remaining tab = %+v", rest)
			}
			ev, ok := (*evs)[1].(DidMoveTabOutOfGroup)
			if !ok {
				t.Fatalf("events = %v", kinds(*evs))
			}
			if ev.PrevRootID != 1 || ev.PrevIndex != tt.wantPrevIx {
				t.Errorf("event = %+v", ev)
			}
		})
	}
}

func TestMoveOutOfGroup_Ungrouped(t *testing.T) {
	l := NewList(true)
	l.Load([]*types.Tab{mk(1, 1, "")}, 1)
	if err := l.MoveOutOfGroup(1); err == nil {
		t.Error("moving an ungrouped tab out accepted")
	}
	if err := l.MoveOutOfGroup(9); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown tab: err = %v", err)
	}
}

func TestMoveWithinGroup(t *testing.T) {
	l := NewList(true)
	l.Load([]*types.Tab{mk(1, 1, "g"), mk(2, 1, "g"), mk(3, 1, "g"), mk(4, 4, "")}, 1)
	evs := record(l)

	if err := l.MoveWithinGroup(1, 2); err != nil {
		t.Fatal(err)
	}
	if got := visibleIDs(l); fmt.Sprint(got) != "[2 3 1 4]" {
		t.Errorf("order = %v", got)
	}
	ev := (*evs)[0].(DidMoveWithinGroup)
	if ev.FromPos != 0 || ev.ToPos != 2 {
		t.Errorf("event = %+v", ev)
	}

	if err := l.MoveWithinGroup(2, 0); err != nil {
		t.Fatal(err)
	}
	if len(*evs) != 1 {
		t.Error("no-op move emitted an event")
	}
}

func TestMoveGroup(t *testing.T) {
	l := NewList(true)
	l.Load([]*types.Tab{mk(1, 1, "g"), mk(2, 1, "g"), mk(3, 3, ""), mk(4, 4, "")}, 3)
	evs := record(l)

	if err := l.MoveGroup(1, 5); err != nil {
		t.Fatal(err)
	}
	if got := visibleIDs(l); fmt.Sprint(got) != "[3 4 1 2]" {
		t.Errorf("order = %v", got)
	}
	ev := (*evs)[0].(DidMoveTabGroup)
	if ev.OldIndex != 0 || ev.NewIndex != 2 || ev.Tab.RootID != 1 {
		t.Errorf("event = %+v", ev)
	}
	if err := l.MoveGroup(7, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown group: err = %v", err)
	}
}

func TestCreateGroupAndUpdate(t *testing.T) {
	l := NewList(true)
	l.Load([]*types.Tab{mk(1, 1, "g1"), mk(2, 2, "")}, 1)

	if err := l.CreateGroup(2); err != nil {
		t.Fatal(err)
	}
	if tok := l.TabByID(2).GroupID; tok == "" || tok == "g1" {
		t.Errorf("new token = %q", tok)
	}
	if err := l.CreateGroup(2); err == nil {
		t.Error("creating a group twice accepted")
	}

	evs := record(l)
	if err := l.Update(2, PropTitle, "hello"); err != nil {
		t.Fatal(err)
	}
	if l.TabByID(2).Title != "hello" {
		t.Error("title not updated")
	}
	if ev := (*evs)[0].(TabPropertyChanged); ev.Property != PropTitle {
		t.Errorf("event = %+v", ev)
	}
	if err := l.Update(2, Property("bogus"), "x"); err == nil {
		t.Error("unknown property accepted")
	}
}

func TestSubscribe_Cancel(t *testing.T) {
	l := NewList(true)
	l.Load([]*types.Tab{mk(1, 1, "")}, 0)
	n := 0
	cancel := l.Subscribe(func(Event) { n++ })
	l.Select(1)
	cancel()
	l.Select(1)
	l.BeginRestore()
	if n != 1 {
		t.Errorf("deliveries = %d, want 1", n)
	}
}
