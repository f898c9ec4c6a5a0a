// Package tabs defines the tab collection that card lists are reconciled
// against, the structural events it emits, and an in-memory implementation.
package tabs

import "github.com/lotas/tabgrid/internal/types"

// Collection is the source of truth for tabs, their grouping and order.
//
// Tabs pending closure are hidden from every query. Two index spaces exist:
// tab-level (Count/TabAt/IndexOf) over individual tabs and group-level
// (GroupCount/GroupAt/GroupIndexOf) where each group occupies one slot,
// ordered by the position of its first tab.
type Collection interface {
	Count() int
	TabAt(index int) *types.Tab
	IndexOf(tabID int) int
	TabByID(tabID int) *types.Tab

	GroupCount() int
	// GroupAt returns the representative (last shown) tab of the group at index.
	GroupAt(index int) *types.Tab
	GroupIndexOf(tabID int) int

	RelatedTabList(rootID int) []*types.Tab
	RelatedTabCount(rootID int) int
	IsInTabGroup(tab *types.Tab) bool
	LastShownTab(rootID int) *types.Tab
	RootIDForGroup(groupID string) (int, bool)
	ActiveTab() *types.Tab

	// Subscribe registers fn for every event and returns a function that
	// removes the subscription.
	Subscribe(fn func(Event)) (cancel func())
}
