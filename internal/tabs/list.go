package tabs

import (
	"errors"
	"fmt"

	"github.com/lotas/tabgrid/internal/types"
)

// ErrNotFound is returned by List mutators for unknown or hidden tabs.
var ErrNotFound = errors.New("tab not found")

// List is an in-memory Collection. Mutators update state first and then
// emit events synchronously to every subscriber, in subscription order.
// A List is not safe for concurrent use; it belongs to the goroutine that
// owns the card list reconciled against it.
type List struct {
	stableIDs bool
	tabs      []*types.Tab // physical order, closing tabs included
	shown     map[int]uint64
	seq       uint64
	active    int
	subs      map[int]func(Event)
	subOrder  []int
	nextSub   int
	nextGroup int
	lastMerge *mergeRecord
}

type mergeRecord struct {
	src, dst     int
	tabIDs       []int
	srcGroupID   string
	dstPrevGroup string
	dstMemberIDs []int
}

// NewList creates an empty List. With stableIDs a group keeps its identity
// when it shrinks to a single tab; otherwise it dissolves.
func NewList(stableIDs bool) *List {
	return &List{
		stableIDs: stableIDs,
		shown:     make(map[int]uint64),
		subs:      make(map[int]func(Event)),
	}
}

// StableIDs reports the grouping mode of the list.
func (l *List) StableIDs() bool {
	return l.stableIDs
}

// Load replaces the content without emitting events. Tabs with a zero
// RootID are treated as ungrouped; multi-tab groups without a token get one.
func (l *List) Load(tabs []*types.Tab, activeID int) {
	l.tabs = make([]*types.Tab, 0, len(tabs))
	l.shown = make(map[int]uint64)
	l.seq = 0
	l.lastMerge = nil
	for _, t := range tabs {
		if t.RootID == 0 {
			t.RootID = t.ID
		}
		l.tabs = append(l.tabs, t)
	}
	for _, root := range l.groupRoots() {
		members := l.RelatedTabList(root)
		if len(members) < 2 || members[0].GroupID != "" {
			continue
		}
		id := l.newGroupID()
		for _, m := range members {
			m.GroupID = id
		}
	}
	l.active = activeID
	if activeID != 0 {
		l.seq++
		l.shown[activeID] = l.seq
	}
}

// --- Collection queries ---

func (l *List) visible() []*types.Tab {
	out := make([]*types.Tab, 0, len(l.tabs))
	for _, t := range l.tabs {
		if !t.Closing {
			out = append(out, t)
		}
	}
	return out
}

func (l *List) Count() int {
	return len(l.visible())
}

func (l *List) TabAt(index int) *types.Tab {
	vis := l.visible()
	if index < 0 || index >= len(vis) {
		return nil
	}
	return vis[index]
}

func (l *List) IndexOf(tabID int) int {
	for i, t := range l.visible() {
		if t.ID == tabID {
			return i
		}
	}
	return -1
}

func (l *List) TabByID(tabID int) *types.Tab {
	_, t := l.find(tabID)
	if t == nil || t.Closing {
		return nil
	}
	return t
}

func (l *List) groupRoots() []int {
	var roots []int
	seen := make(map[int]bool)
	for _, t := range l.tabs {
		if t.Closing || seen[t.RootID] {
			continue
		}
		seen[t.RootID] = true
		roots = append(roots, t.RootID)
	}
	return roots
}

func (l *List) GroupCount() int {
	return len(l.groupRoots())
}

func (l *List) GroupAt(index int) *types.Tab {
	roots := l.groupRoots()
	if index < 0 || index >= len(roots) {
		return nil
	}
	return l.LastShownTab(roots[index])
}

func (l *List) GroupIndexOf(tabID int) int {
	t := l.TabByID(tabID)
	if t == nil {
		return -1
	}
	for i, r := range l.groupRoots() {
		if r == t.RootID {
			return i
		}
	}
	return -1
}

func (l *List) RelatedTabList(rootID int) []*types.Tab {
	var out []*types.Tab
	for _, t := range l.tabs {
		if !t.Closing && t.RootID == rootID {
			out = append(out, t)
		}
	}
	return out
}

func (l *List) RelatedTabCount(rootID int) int {
	return len(l.RelatedTabList(rootID))
}

func (l *List) IsInTabGroup(tab *types.Tab) bool {
	if tab == nil {
		return false
	}
	if l.stableIDs {
		return tab.Grouped()
	}
	return l.RelatedTabCount(tab.RootID) > 1
}

// LastShownTab returns the most recently selected member of the group,
// falling back to the first member in group order.
func (l *List) LastShownTab(rootID int) *types.Tab {
	var best *types.Tab
	var bestSeq uint64
	for _, t := range l.RelatedTabList(rootID) {
		if best == nil || l.shown[t.ID] > bestSeq {
			best = t
			bestSeq = l.shown[t.ID]
		}
	}
	return best
}

func (l *List) RootIDForGroup(groupID string) (int, bool) {
	if groupID == "" {
		return 0, false
	}
	for _, t := range l.tabs {
		if !t.Closing && t.GroupID == groupID {
			return t.RootID, true
		}
	}
	return 0, false
}

func (l *List) ActiveTab() *types.Tab {
	return l.TabByID(l.active)
}

func (l *List) Subscribe(fn func(Event)) func() {
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	l.subOrder = append(l.subOrder, id)
	return func() {
		delete(l.subs, id)
		for i, s := range l.subOrder {
			if s == id {
				l.subOrder = append(l.subOrder[:i], l.subOrder[i+1:]...)
				break
			}
		}
	}
}

func (l *List) emit(ev Event) {
	order := append([]int(nil), l.subOrder...)
	for _, id := range order {
		if fn, ok := l.subs[id]; ok {
			fn(ev)
		}
	}
}

// --- internal helpers ---

func (l *List) find(tabID int) (int, *types.Tab) {
	for i, t := range l.tabs {
		if t.ID == tabID {
			return i, t
		}
	}
	return -1, nil
}

func (l *List) physicalIndex(t *types.Tab) int {
	for i, x := range l.tabs {
		if x == t {
			return i
		}
	}
	return -1
}

func (l *List) remove(t *types.Tab) {
	if i := l.physicalIndex(t); i >= 0 {
		l.tabs = append(l.tabs[:i], l.tabs[i+1:]...)
	}
}

func (l *List) insertAt(pos int, ts ...*types.Tab) {
	if pos < 0 || pos > len(l.tabs) {
		pos = len(l.tabs)
	}
	rest := append([]*types.Tab(nil), l.tabs[pos:]...)
	l.tabs = append(append(l.tabs[:pos], ts...), rest...)
}

func (l *List) newGroupID() string {
	for {
		l.nextGroup++
		id := fmt.Sprintf("g%d", l.nextGroup)
		taken := false
		for _, t := range l.tabs {
			if t.GroupID == id {
				taken = true
				break
			}
		}
		if !taken {
			return id
		}
	}
}

func (l *List) visibleTab(tabID int) (*types.Tab, error) {
	t := l.TabByID(tabID)
	if t == nil {
		return nil, fmt.Errorf("tab %d: %w", tabID, ErrNotFound)
	}
	return t, nil
}

// --- mutators ---

// Add inserts tab before the visible tab at index (or at the end when index
// is out of range). A tab carrying the token of an existing group joins it.
func (l *List) Add(tab *types.Tab, index int, delayed bool) error {
	if _, existing := l.find(tab.ID); existing != nil {
		return fmt.Errorf("tab %d already exists", tab.ID)
	}
	if tab.RootID == 0 {
		tab.RootID = tab.ID
	}
	if root, ok := l.RootIDForGroup(tab.GroupID); ok {
		tab.RootID = root
	}

	vis := l.visible()
	pos := len(l.tabs)
	if index >= 0 && index < len(vis) {
		pos = l.physicalIndex(vis[index])
	}
	l.insertAt(pos, tab)

	launch := tab.Launch
	if launch == "" {
		launch = types.LaunchLink
	}
	l.emit(TabAdded{Tab: tab, Launch: launch, State: CreationLive, Delayed: delayed})
	return nil
}

// Close hides a tab pending undo. When the tab is its group's root, the
// next remaining member becomes root.
func (l *List) Close(tabID int) error {
	t, err := l.visibleTab(tabID)
	if err != nil {
		return err
	}
	visIndex := l.IndexOf(tabID)

	t.Closing = true
	if t.RootID == t.ID {
		if rest := l.RelatedTabList(t.ID); len(rest) > 0 {
			newRoot := rest[0].ID
			for _, m := range rest {
				m.RootID = newRoot
			}
		}
	}
	l.emit(WillCloseTab{Tab: t})

	if l.active == tabID {
		vis := l.visible()
		if len(vis) > 0 {
			if visIndex >= len(vis) {
				visIndex = len(vis) - 1
			}
			l.Select(vis[visIndex].ID)
		}
	}
	return nil
}

// CommitClosure removes a tab previously hidden by Close.
func (l *List) CommitClosure(tabID int) error {
	_, t := l.find(tabID)
	if t == nil || !t.Closing {
		return fmt.Errorf("tab %d is not closing: %w", tabID, ErrNotFound)
	}
	l.remove(t)
	delete(l.shown, tabID)
	l.emit(TabClosureCommitted{Tab: t})
	return nil
}

// UndoClosure reveals a tab previously hidden by Close. It rejoins its
// group under the group's current root.
func (l *List) UndoClosure(tabID int) error {
	_, t := l.find(tabID)
	if t == nil || !t.Closing {
		return fmt.Errorf("tab %d is not closing: %w", tabID, ErrNotFound)
	}
	if root, ok := l.RootIDForGroup(t.GroupID); ok {
		t.RootID = root
	}
	t.Closing = false
	l.emit(TabClosureUndone{Tab: t})
	return nil
}

// Merge moves every tab of the source group into the destination group.
// Moved tabs are placed next to the destination group on the side they
// came from.
func (l *List) Merge(srcRootID, dstRootID int) error {
	if srcRootID == dstRootID {
		return fmt.Errorf("merge group %d into itself", srcRootID)
	}
	moving := l.RelatedTabList(srcRootID)
	dest := l.RelatedTabList(dstRootID)
	if len(moving) == 0 || len(dest) == 0 {
		return fmt.Errorf("merge %d into %d: %w", srcRootID, dstRootID, ErrNotFound)
	}

	for _, m := range moving {
		l.emit(WillMergeTabToGroup{Tab: m, SourceRootID: srcRootID, DestinationRootID: dstRootID})
	}

	rec := &mergeRecord{
		src:          srcRootID,
		dst:          dstRootID,
		srcGroupID:   moving[0].GroupID,
		dstPrevGroup: dest[0].GroupID,
	}
	for _, d := range dest {
		rec.dstMemberIDs = append(rec.dstMemberIDs, d.ID)
	}

	groupID := dest[0].GroupID
	if groupID == "" {
		groupID = l.newGroupID()
		for _, d := range dest {
			d.GroupID = groupID
		}
	}

	before := l.physicalIndex(moving[0]) < l.physicalIndex(dest[0])
	for _, m := range moving {
		l.remove(m)
		m.RootID = dstRootID
		m.GroupID = groupID
		rec.tabIDs = append(rec.tabIDs, m.ID)
	}
	if before {
		l.insertAt(l.physicalIndex(dest[0]), moving...)
	} else {
		l.insertAt(l.physicalIndex(dest[len(dest)-1])+1, moving...)
	}
	l.lastMerge = rec

	for _, m := range moving {
		l.emit(DidMergeTabToGroup{Tab: m, SourceRootID: srcRootID, DestinationRootID: dstRootID})
	}
	return nil
}

// UndoMerge reverts the most recent Merge. Tab positions are kept.
func (l *List) UndoMerge() error {
	rec := l.lastMerge
	if rec == nil {
		return errors.New("no merge to undo")
	}
	l.lastMerge = nil
	for _, id := range rec.tabIDs {
		if _, t := l.find(id); t != nil {
			t.RootID = rec.src
			t.GroupID = rec.srcGroupID
		}
	}
	if rec.dstPrevGroup == "" {
		for _, id := range rec.dstMemberIDs {
			if _, t := l.find(id); t != nil {
				t.GroupID = ""
			}
		}
	}
	l.emit(MergeUndone{SourceRootID: rec.src, DestinationRootID: rec.dst})
	return nil
}

// MoveOutOfGroup ungroups a tab and places it right after its former group.
func (l *List) MoveOutOfGroup(tabID int) error {
	t, err := l.visibleTab(tabID)
	if err != nil {
		return err
	}
	members := l.RelatedTabList(t.RootID)
	if !t.Grouped() && len(members) <= 1 {
		return fmt.Errorf("tab %d is not in a group", tabID)
	}
	l.emit(WillMoveTabOutOfGroup{Tab: t})

	prevRoot := t.RootID
	var rest []*types.Tab
	for _, m := range members {
		if m != t {
			rest = append(rest, m)
		}
	}

	t.GroupID = ""
	t.RootID = t.ID
	var prevIndex int
	if len(rest) > 0 {
		l.remove(t)
		l.insertAt(l.physicalIndex(rest[len(rest)-1])+1, t)
		if prevRoot == t.ID {
			for _, m := range rest {
				m.RootID = rest[0].ID
			}
		}
		if !l.stableIDs && len(rest) == 1 {
			rest[0].GroupID = ""
			rest[0].RootID = rest[0].ID
		}
		prevIndex = l.GroupIndexOf(rest[0].ID)
	} else {
		prevIndex = l.GroupIndexOf(t.ID)
	}

	l.emit(DidMoveTabOutOfGroup{Tab: t, PrevIndex: prevIndex, PrevRootID: prevRoot})
	return nil
}

// MoveWithinGroup moves a tab to position toPos inside its group.
func (l *List) MoveWithinGroup(tabID, toPos int) error {
	t, err := l.visibleTab(tabID)
	if err != nil {
		return err
	}
	members := l.RelatedTabList(t.RootID)
	from := -1
	var others []*types.Tab
	for i, m := range members {
		if m == t {
			from = i
			continue
		}
		others = append(others, m)
	}
	if toPos < 0 {
		toPos = 0
	}
	if toPos > len(others) {
		toPos = len(others)
	}
	if toPos == from || len(others) == 0 {
		return nil
	}

	l.remove(t)
	if toPos == len(others) {
		l.insertAt(l.physicalIndex(others[len(others)-1])+1, t)
	} else {
		l.insertAt(l.physicalIndex(others[toPos]), t)
	}
	l.emit(DidMoveWithinGroup{Tab: t, FromPos: from, ToPos: toPos})
	return nil
}

// MoveGroup moves a whole group to group-level index toIndex.
func (l *List) MoveGroup(rootID, toIndex int) error {
	roots := l.groupRoots()
	oldIndex := -1
	for i, r := range roots {
		if r == rootID {
			oldIndex = i
		}
	}
	if oldIndex < 0 {
		return fmt.Errorf("group %d: %w", rootID, ErrNotFound)
	}
	if toIndex < 0 {
		toIndex = 0
	}
	if toIndex >= len(roots) {
		toIndex = len(roots) - 1
	}
	if toIndex == oldIndex {
		return nil
	}

	members := l.RelatedTabList(rootID)
	for _, m := range members {
		l.remove(m)
	}
	after := l.groupRoots()
	if toIndex >= len(after) {
		l.insertAt(len(l.tabs), members...)
	} else {
		first := l.RelatedTabList(after[toIndex])[0]
		l.insertAt(l.physicalIndex(first), members...)
	}
	l.emit(DidMoveTabGroup{Tab: l.LastShownTab(rootID), OldIndex: oldIndex, NewIndex: toIndex})
	return nil
}

// CreateGroup gives an ungrouped tab its own group token.
func (l *List) CreateGroup(tabID int) error {
	t, err := l.visibleTab(tabID)
	if err != nil {
		return err
	}
	if t.Grouped() {
		return fmt.Errorf("tab %d is already grouped", tabID)
	}
	t.GroupID = l.newGroupID()
	l.emit(DidCreateNewGroup{Tab: t})
	return nil
}

// Select makes tabID the active tab.
func (l *List) Select(tabID int) error {
	if _, err := l.visibleTab(tabID); err != nil {
		return err
	}
	prev := l.active
	l.active = tabID
	l.seq++
	l.shown[tabID] = l.seq
	l.emit(TabSelected{TabID: tabID, PrevTabID: prev})
	return nil
}

// Update changes one property of a tab.
func (l *List) Update(tabID int, prop Property, value string) error {
	t, err := l.visibleTab(tabID)
	if err != nil {
		return err
	}
	switch prop {
	case PropTitle:
		t.Title = value
	case PropURL:
		t.URL = value
	case PropFavicon:
		t.Favicon = value
	default:
		return fmt.Errorf("unknown tab property %q", prop)
	}
	l.emit(TabPropertyChanged{Tab: t, Property: prop})
	return nil
}

// BeginRestore announces a session restore.
func (l *List) BeginRestore() {
	l.emit(RestoreStarted{})
}

// EndRestore announces that a session restore finished.
func (l *List) EndRestore() {
	l.emit(RestoreCompleted{})
}
