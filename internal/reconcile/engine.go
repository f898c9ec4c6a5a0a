// Package reconcile keeps a card list in step with a tab collection. Each
// structural event is translated into the smallest card list mutation that
// keeps exactly one tab card per visible group.
package reconcile

import (
	"github.com/lotas/tabgrid/internal/applog"
	"github.com/lotas/tabgrid/internal/cards"
	"github.com/lotas/tabgrid/internal/groups"
	"github.com/lotas/tabgrid/internal/tabs"
	"github.com/lotas/tabgrid/internal/thumbnail"
	"github.com/lotas/tabgrid/internal/types"
)

// Options configures an Engine.
type Options struct {
	// AggregateRelatedTabs shows one card per group. When false every
	// physical tab gets its own card.
	AggregateRelatedTabs bool
}

// Engine translates Collection events into card list mutations. It must be
// driven from the goroutine that owns the card model.
type Engine struct {
	aggregate bool
	model     *cards.Model
	groups    *groups.Resolver
	images    *thumbnail.Coordinator

	src    tabs.Collection
	cancel func()

	pending   *tabs.TabAdded
	restoring bool
}

// New creates an Engine. A nil images coordinator derives fetch requests
// without fetching anything.
func New(model *cards.Model, resolver *groups.Resolver, images *thumbnail.Coordinator, opts Options) *Engine {
	if images == nil {
		images = thumbnail.NewCoordinator(model, nil, nil)
	}
	return &Engine{
		aggregate: opts.AggregateRelatedTabs,
		model:     model,
		groups:    resolver,
		images:    images,
	}
}

// Model returns the card list the engine maintains.
func (e *Engine) Model() *cards.Model {
	return e.model
}

// Attach subscribes to src and rebuilds the card list from it. Any previous
// source is detached first.
func (e *Engine) Attach(src tabs.Collection) {
	e.Detach()
	e.src = src
	e.cancel = src.Subscribe(e.Handle)
	e.Reset(false)
	applog.Info("reconcile.attached", "tabs", src.Count(), "groups", src.GroupCount())
}

// Detach drops the current subscription. The card list is left as is.
func (e *Engine) Detach() {
	if e.cancel != nil {
		e.cancel()
	}
	e.cancel = nil
	e.src = nil
	e.pending = nil
	e.restoring = false
}

// Reset rebuilds every tab card from the collection. With quick set and an
// unchanged card sequence nothing is mutated and Reset returns true.
func (e *Engine) Reset(quick bool) bool {
	if e.src == nil {
		return false
	}
	var list []*types.Tab
	if e.aggregate {
		for i := 0; i < e.src.GroupCount(); i++ {
			list = append(list, e.src.GroupAt(i))
		}
	} else {
		for i := 0; i < e.src.Count(); i++ {
			list = append(list, e.src.TabAt(i))
		}
	}

	fill := func(i int) {
		if tc := e.model.TabCardAt(i); tc != nil {
			e.update(i, e.src.TabByID(tc.TabID), true, false)
		}
	}
	if e.model.ResetFunc(list, quick, fill) {
		return true
	}
	e.syncSelection()
	return false
}

// Handle applies one event. Unknown tabs and out-of-range indices are
// logged and ignored.
func (e *Engine) Handle(ev tabs.Event) {
	if e.src == nil {
		return
	}
	switch ev := ev.(type) {
	case tabs.TabAdded:
		e.onTabAdded(ev)
	case tabs.WillCloseTab:
		e.onTabClosing(ev.Tab, true)
	case tabs.TabClosureCommitted:
		e.onTabClosing(ev.Tab, false)
	case tabs.TabClosureUndone:
		e.onClosureUndone(ev.Tab)
	case tabs.WillMergeTabToGroup:
		e.groups.StageMerge(ev.SourceRootID, ev.DestinationRootID)
	case tabs.DidMergeTabToGroup:
		e.onDidMerge(ev)
	case tabs.MergeUndone:
		e.onMergeUndone(ev)
	case tabs.WillMoveTabOutOfGroup:
		// Handled once the move is done.
	case tabs.DidMoveTabOutOfGroup:
		e.onDidMoveOut(ev)
	case tabs.DidMoveWithinGroup:
		e.onDidMoveWithin(ev)
	case tabs.DidMoveTabGroup:
		e.onDidMoveGroup(ev)
	case tabs.DidCreateNewGroup:
		e.onDidCreateGroup(ev)
	case tabs.TabSelected:
		e.syncSelection()
	case tabs.TabPropertyChanged:
		e.onPropertyChanged(ev)
	case tabs.RestoreStarted:
		e.restoring = true
	case tabs.RestoreCompleted:
		e.restoring = false
		e.Reset(true)
	default:
		applog.Warn("reconcile.unhandled_event", "kind", ev.Kind())
	}
}

// FlushPendingAdd inserts the tab buffered by a delayed add, if any.
func (e *Engine) FlushPendingAdd() {
	if e.pending == nil || e.src == nil {
		return
	}
	ev := *e.pending
	e.pending = nil
	e.addTab(ev.Tab)
	e.syncSelection()
}

// HasPendingAdd reports whether a delayed add is waiting for a flush.
func (e *Engine) HasPendingAdd() bool {
	return e.pending != nil
}

// SetGroupTitle stores a user title edit for the group of rootID. An empty
// title restores the representative's own title.
func (e *Engine) SetGroupTitle(rootID int, title string) {
	e.groups.SetTitle(rootID, title)
	e.refreshRoot(rootID, false)
}

// SetGroupColor stores a user color edit for the group of rootID.
// types.NoColor removes the stored color.
func (e *Engine) SetGroupColor(rootID, color int) {
	e.groups.SetColor(rootID, color)
	e.refreshRoot(rootID, false)
}

// --- handlers ---

func (e *Engine) onTabAdded(ev tabs.TabAdded) {
	if e.restoring && ev.Launch == types.LaunchRestore {
		applog.Info("reconcile.add_during_restore", "tab", ev.Tab.ID)
		return
	}
	if ev.Delayed {
		if e.pending != nil {
			e.FlushPendingAdd()
		}
		e.pending = &ev
		return
	}
	e.addTab(ev.Tab)
	e.syncSelection()
}

func (e *Engine) addTab(t *types.Tab) {
	tab := e.src.TabByID(t.ID)
	if tab == nil {
		applog.Warn("reconcile.add_unknown_tab", "tab", t.ID)
		return
	}

	if e.aggregate {
		if idx := e.model.IndexOfRoot(tab.RootID); idx != cards.NotFound {
			e.update(idx, e.src.LastShownTab(tab.RootID), true, true)
			return
		}
		e.insertCard(tab)
		return
	}

	if idx := e.model.IndexOfCardForTab(tab.ID); idx != cards.NotFound {
		e.update(idx, tab, true, true)
		return
	}
	e.insertCard(tab)
}

// onTabClosing handles both the hide and the final removal of a tab; the
// second of the two finds nothing left to do.
func (e *Engine) onTabClosing(t *types.Tab, hiding bool) {
	if t == nil {
		return
	}
	if !e.aggregate {
		if idx := e.model.IndexOfCardForTab(t.ID); idx != cards.NotFound {
			e.model.RemoveAt(idx)
		}
		root := t.RootID
		if newRoot, ok := e.src.RootIDForGroup(t.GroupID); ok {
			if newRoot != root {
				e.groups.MigrateRoot(root, newRoot)
			}
			root = newRoot
		}
		for _, m := range e.src.RelatedTabList(root) {
			e.refreshTab(m.ID, false)
		}
		return
	}

	idx := e.model.IndexOfRoot(t.RootID)
	if idx == cards.NotFound {
		idx = e.model.IndexOfCardForTab(t.ID)
	}
	if idx == cards.NotFound {
		return
	}
	card := e.model.TabCardAt(idx)

	root := card.RootID
	if newRoot, ok := e.src.RootIDForGroup(t.GroupID); ok && newRoot != root {
		e.groups.MigrateRoot(root, newRoot)
		root = newRoot
	}

	if e.src.RelatedTabCount(root) == 0 {
		e.model.RemoveAt(idx)
		return
	}
	rep := e.src.LastShownTab(root)
	if rep == nil || rep.Closing {
		return
	}
	e.update(idx, rep, hiding, true)
}

func (e *Engine) onClosureUndone(t *types.Tab) {
	tab := e.src.TabByID(t.ID)
	if tab == nil {
		applog.Warn("reconcile.undo_unknown_tab", "tab", t.ID)
		return
	}
	if !e.aggregate {
		if e.model.IndexOfCardForTab(tab.ID) == cards.NotFound {
			e.insertCard(tab)
		}
		e.syncSelection()
		return
	}
	if idx := e.model.IndexOfRoot(tab.RootID); idx != cards.NotFound {
		e.update(idx, e.src.LastShownTab(tab.RootID), true, true)
	} else {
		e.insertCard(e.src.LastShownTab(tab.RootID))
	}
	e.syncSelection()
}

func (e *Engine) onDidMerge(ev tabs.DidMergeTabToGroup) {
	tab := e.src.TabByID(ev.Tab.ID)
	if tab == nil {
		applog.Warn("reconcile.merge_unknown_tab", "tab", ev.Tab.ID)
		return
	}
	srcRoot, dst := ev.SourceRootID, ev.DestinationRootID

	if e.src.RelatedTabCount(srcRoot) == 0 {
		e.groups.CommitMerge(srcRoot, dst)
	}
	if e.src.RelatedTabCount(dst) == 2 && !e.groups.HasColor(dst) {
		e.groups.AssignDefaultColor(dst, e.otherRoots(dst))
	}

	if !e.aggregate {
		for _, m := range e.src.RelatedTabList(dst) {
			e.refreshTab(m.ID, m.ID == tab.ID)
		}
		e.moveTabCard(tab.ID)
		return
	}

	if srcRoot != dst {
		if idx := e.model.IndexOfRoot(srcRoot); idx != cards.NotFound {
			if e.src.RelatedTabCount(srcRoot) == 0 {
				e.model.RemoveAt(idx)
			} else {
				e.update(idx, e.src.LastShownTab(srcRoot), true, true)
			}
		}
	}
	if idx := e.model.IndexOfCardForTab(tab.ID); idx != cards.NotFound && e.model.TabCardAt(idx).RootID != dst {
		e.model.RemoveAt(idx)
	}

	e.ensureGroupCard(dst)
	e.syncSelection()
}

func (e *Engine) onMergeUndone(ev tabs.MergeUndone) {
	e.groups.RollbackMerge(ev.SourceRootID, ev.DestinationRootID)
	if !e.aggregate {
		for _, root := range []int{ev.SourceRootID, ev.DestinationRootID} {
			for _, m := range e.src.RelatedTabList(root) {
				e.refreshTab(m.ID, true)
			}
		}
		return
	}
	e.ensureGroupCard(ev.DestinationRootID)
	e.ensureGroupCard(ev.SourceRootID)
	e.syncSelection()
}

func (e *Engine) onDidMoveOut(ev tabs.DidMoveTabOutOfGroup) {
	tab := e.src.TabByID(ev.Tab.ID)
	if tab == nil {
		applog.Warn("reconcile.move_out_unknown_tab", "tab", ev.Tab.ID)
		return
	}
	prevRoot := ev.PrevRootID

	remaining := e.src.GroupAt(ev.PrevIndex)
	if remaining == nil || remaining.ID == tab.ID {
		// The tab was the group's last member.
		e.groups.Forget(prevRoot)
		if e.aggregate {
			e.ensureGroupCard(tab.RootID)
		} else {
			e.refreshTab(tab.ID, true)
		}
		e.syncSelection()
		return
	}

	newRoot := remaining.RootID
	if newRoot != prevRoot {
		e.groups.MigrateRoot(prevRoot, newRoot)
	}
	if e.src.RelatedTabCount(newRoot) == 1 {
		e.groups.ShrunkToSingle(newRoot)
	}

	if !e.aggregate {
		e.refreshTab(tab.ID, true)
		for _, m := range e.src.RelatedTabList(newRoot) {
			e.refreshTab(m.ID, false)
		}
		e.moveTabCard(tab.ID)
		return
	}

	idx := e.model.IndexOfRoot(prevRoot)
	switch {
	case idx == cards.NotFound:
		e.ensureGroupCard(newRoot)
	case newRoot != prevRoot:
		e.model.RemoveAt(idx)
		e.insertCardAt(idx, e.src.LastShownTab(newRoot))
	default:
		e.update(idx, e.src.LastShownTab(newRoot), true, true)
	}
	e.ensureGroupCard(tab.RootID)
	e.syncSelection()
}

func (e *Engine) onDidMoveWithin(ev tabs.DidMoveWithinGroup) {
	tab := e.src.TabByID(ev.Tab.ID)
	if tab == nil {
		applog.Warn("reconcile.move_within_unknown_tab", "tab", ev.Tab.ID)
		return
	}
	if !e.aggregate {
		e.moveTabCard(tab.ID)
		return
	}
	idx := e.model.IndexOfRoot(tab.RootID)
	if idx == cards.NotFound {
		applog.Warn("reconcile.move_within_no_card", "tab", tab.ID, "root", tab.RootID)
		return
	}
	e.update(idx, e.currentRep(idx), true, true)
}

func (e *Engine) onDidMoveGroup(ev tabs.DidMoveTabGroup) {
	if ev.Tab == nil {
		return
	}
	if !e.aggregate {
		for _, m := range e.src.RelatedTabList(ev.Tab.RootID) {
			e.moveTabCard(m.ID)
		}
		return
	}
	from := e.model.IndexOfRoot(ev.Tab.RootID)
	if from == cards.NotFound {
		applog.Warn("reconcile.move_group_no_card", "root", ev.Tab.RootID)
		return
	}
	if ev.NewIndex < 0 || ev.NewIndex >= len(e.model.TabCards()) {
		applog.Warn("reconcile.move_group_out_of_range", "root", ev.Tab.RootID, "index", ev.NewIndex)
		return
	}
	e.model.MoveToTabPosition(from, ev.NewIndex)
}

func (e *Engine) onDidCreateGroup(ev tabs.DidCreateNewGroup) {
	tab := e.src.TabByID(ev.Tab.ID)
	if tab == nil {
		applog.Warn("reconcile.create_group_unknown_tab", "tab", ev.Tab.ID)
		return
	}
	if !e.groups.HasColor(tab.RootID) {
		e.groups.AssignDefaultColor(tab.RootID, e.otherRoots(tab.RootID))
	}
	if e.aggregate {
		e.refreshRoot(tab.RootID, false)
	} else {
		e.refreshTab(tab.ID, false)
	}
}

func (e *Engine) onPropertyChanged(ev tabs.TabPropertyChanged) {
	tab := e.src.TabByID(ev.Tab.ID)
	if tab == nil {
		applog.Warn("reconcile.property_unknown_tab", "tab", ev.Tab.ID)
		return
	}
	visual := ev.Property == tabs.PropURL || ev.Property == tabs.PropFavicon

	if !e.aggregate {
		e.refreshTab(tab.ID, visual)
		return
	}
	idx := e.model.IndexOfRoot(tab.RootID)
	if idx == cards.NotFound {
		applog.Warn("reconcile.property_no_card", "tab", tab.ID, "root", tab.RootID)
		return
	}
	card := e.model.TabCardAt(idx)
	e.update(idx, e.currentRep(idx), visual && drives(card, tab.ID), true)
}

// --- helpers ---

// drives reports whether tabID feeds one of the card's images.
func drives(card *cards.TabCard, tabID int) bool {
	for _, f := range []cards.Fetch{card.Favicon, card.Thumbnail} {
		for _, id := range f.TabIDs {
			if id == tabID {
				return true
			}
		}
	}
	return false
}

// currentRep keeps the card's representative while it is still a member,
// and otherwise asks the collection.
func (e *Engine) currentRep(idx int) *types.Tab {
	card := e.model.TabCardAt(idx)
	if rep := e.src.TabByID(card.TabID); rep != nil && rep.RootID == card.RootID {
		return rep
	}
	return e.src.LastShownTab(card.RootID)
}

func (e *Engine) otherRoots(rootID int) []int {
	var roots []int
	for _, tc := range e.model.TabCards() {
		if tc.RootID != rootID {
			roots = append(roots, tc.RootID)
		}
	}
	return roots
}

// insertCard adds a card for rep after the cards of everything that
// precedes it in the collection.
func (e *Engine) insertCard(rep *types.Tab) {
	if rep == nil {
		return
	}
	n := e.cardPosition(rep)
	if n < 0 {
		applog.Warn("reconcile.insert_unknown_position", "tab", rep.ID)
		return
	}
	e.insertCardAt(e.model.IndexOfNthTabCard(n), rep)
}

// cardPosition counts the groups (or tabs, in flat mode) before rep that
// already have a card.
func (e *Engine) cardPosition(rep *types.Tab) int {
	n := 0
	if e.aggregate {
		gi := e.src.GroupIndexOf(rep.ID)
		if gi < 0 {
			return cards.NotFound
		}
		for i := 0; i < gi; i++ {
			if g := e.src.GroupAt(i); g != nil && e.model.IndexOfRoot(g.RootID) != cards.NotFound {
				n++
			}
		}
		return n
	}
	ti := e.src.IndexOf(rep.ID)
	if ti < 0 {
		return cards.NotFound
	}
	for i := 0; i < ti; i++ {
		if t := e.src.TabAt(i); t != nil && e.model.IndexOfCardForTab(t.ID) != cards.NotFound {
			n++
		}
	}
	return n
}

func (e *Engine) insertCardAt(idx int, rep *types.Tab) {
	if rep == nil {
		return
	}
	card := &cards.TabCard{TabID: rep.ID, RootID: rep.RootID, ColorID: types.NoColor}
	e.model.Insert(idx, card)
	if idx = e.model.IndexOfCard(card); idx != cards.NotFound {
		e.update(idx, rep, true, false)
	}
}

// ensureGroupCard refreshes the card of rootID, creating it at the group's
// position when missing and removing it when the group is gone.
func (e *Engine) ensureGroupCard(rootID int) {
	idx := e.model.IndexOfRoot(rootID)
	rep := e.src.LastShownTab(rootID)
	if rep == nil {
		if idx != cards.NotFound {
			e.model.RemoveAt(idx)
		}
		return
	}
	if idx == cards.NotFound {
		e.insertCard(rep)
		return
	}
	e.update(idx, rep, true, true)
}

func (e *Engine) refreshRoot(rootID int, force bool) {
	if e.src == nil {
		return
	}
	if !e.aggregate {
		for _, m := range e.src.RelatedTabList(rootID) {
			e.refreshTab(m.ID, force)
		}
		return
	}
	idx := e.model.IndexOfRoot(rootID)
	if idx == cards.NotFound {
		applog.Warn("reconcile.no_card_for_root", "root", rootID)
		return
	}
	e.update(idx, e.currentRep(idx), force, true)
}

func (e *Engine) refreshTab(tabID int, force bool) {
	tab := e.src.TabByID(tabID)
	idx := e.model.IndexOfCardForTab(tabID)
	if tab == nil || idx == cards.NotFound {
		return
	}
	e.update(idx, tab, force, true)
}

// moveTabCard puts a flat-mode card back at its tab's collection position.
func (e *Engine) moveTabCard(tabID int) {
	from := e.model.IndexOfCardForTab(tabID)
	to := e.src.IndexOf(tabID)
	if from == cards.NotFound || to < 0 {
		return
	}
	e.model.MoveToTabPosition(from, to)
}

// syncSelection marks the card holding the active tab, and only that one.
func (e *Engine) syncSelection() {
	active := e.src.ActiveTab()
	for i := 0; i < e.model.Size(); i++ {
		tc := e.model.TabCardAt(i)
		if tc == nil {
			continue
		}
		want := false
		if active != nil {
			if e.aggregate {
				want = tc.RootID == active.RootID
			} else {
				want = tc.TabID == active.ID
			}
		}
		if tc.Selected != want {
			tc.Selected = want
			e.model.NotifyChanged(i, cards.FieldSelected)
		}
	}
}
