package tabs

import "github.com/lotas/tabgrid/internal/types"

// Kind identifies an event. Convention: "category.action".
type Kind string

const (
	KindTabAdded            Kind = "tab.added"
	KindWillCloseTab        Kind = "tab.will_close"
	KindClosureCommitted    Kind = "tab.closure_committed"
	KindClosureUndone       Kind = "tab.closure_undone"
	KindWillMergeTabToGroup Kind = "group.will_merge"
	KindDidMergeTabToGroup  Kind = "group.did_merge"
	KindMergeUndone         Kind = "group.merge_undone"
	KindWillMoveOutOfGroup  Kind = "group.will_move_out"
	KindDidMoveOutOfGroup   Kind = "group.did_move_out"
	KindDidMoveWithinGroup  Kind = "group.did_move_within"
	KindDidMoveTabGroup     Kind = "group.did_move"
	KindDidCreateNewGroup   Kind = "group.created"
	KindTabSelected         Kind = "tab.selected"
	KindTabPropertyChanged  Kind = "tab.property_changed"
	KindRestoreStarted      Kind = "restore.started"
	KindRestoreCompleted    Kind = "restore.completed"
)

// Event is a structural change notification from a Collection. The set of
// implementations is closed; consumers switch over the concrete types.
type Event interface {
	Kind() Kind
	event()
}

// CreationState describes whether an added tab has a live renderer yet.
type CreationState string

const (
	CreationLive   CreationState = "live"
	CreationFrozen CreationState = "frozen"
)

// Property names a tab attribute whose change is reported by TabPropertyChanged.
type Property string

const (
	PropTitle   Property = "title"
	PropURL     Property = "url"
	PropFavicon Property = "favicon"
)

// TabAdded reports a new tab. Delayed adds are buffered by the consumer
// until an explicit flush.
type TabAdded struct {
	Tab     *types.Tab
	Launch  types.LaunchType
	State   CreationState
	Delayed bool
}

// WillCloseTab reports a tab that is now hidden pending undo.
type WillCloseTab struct {
	Tab *types.Tab
}

// TabClosureCommitted reports a tab that is gone for good.
type TabClosureCommitted struct {
	Tab *types.Tab
}

// TabClosureUndone reports a pending closure that was reverted.
type TabClosureUndone struct {
	Tab *types.Tab
}

// WillMergeTabToGroup is sent before a tab of SourceRootID joins DestinationRootID.
type WillMergeTabToGroup struct {
	Tab               *types.Tab
	SourceRootID      int
	DestinationRootID int
}

// DidMergeTabToGroup is sent after Tab joined DestinationRootID.
type DidMergeTabToGroup struct {
	Tab               *types.Tab
	SourceRootID      int
	DestinationRootID int
}

// MergeUndone reports that the most recent merge was reverted.
type MergeUndone struct {
	SourceRootID      int
	DestinationRootID int
}

// WillMoveTabOutOfGroup is sent before Tab leaves its group.
type WillMoveTabOutOfGroup struct {
	Tab *types.Tab
}

// DidMoveTabOutOfGroup is sent after Tab left its group. PrevIndex is the
// group-level index of the group the tab left; PrevRootID its root before
// the move.
type DidMoveTabOutOfGroup struct {
	Tab        *types.Tab
	PrevIndex  int
	PrevRootID int
}

// DidMoveWithinGroup reports a reorder inside a group.
type DidMoveWithinGroup struct {
	Tab     *types.Tab
	FromPos int
	ToPos   int
}

// DidMoveTabGroup reports a whole group moving between group-level indices.
type DidMoveTabGroup struct {
	Tab      *types.Tab // the group's representative
	OldIndex int
	NewIndex int
}

// DidCreateNewGroup reports a group formed around Tab.
type DidCreateNewGroup struct {
	Tab *types.Tab
}

// TabSelected reports an active tab change.
type TabSelected struct {
	TabID     int
	PrevTabID int
}

// TabPropertyChanged reports a title, url or favicon change.
type TabPropertyChanged struct {
	Tab      *types.Tab
	Property Property
}

// RestoreStarted marks the beginning of a session restore.
type RestoreStarted struct{}

// RestoreCompleted marks the end of a session restore.
type RestoreCompleted struct{}

func (TabAdded) Kind() Kind              { return KindTabAdded }
func (WillCloseTab) Kind() Kind          { return KindWillCloseTab }
func (TabClosureCommitted) Kind() Kind   { return KindClosureCommitted }
func (TabClosureUndone) Kind() Kind      { return KindClosureUndone }
func (WillMergeTabToGroup) Kind() Kind   { return KindWillMergeTabToGroup }
func (DidMergeTabToGroup) Kind() Kind    { return KindDidMergeTabToGroup }
func (MergeUndone) Kind() Kind           { return KindMergeUndone }
func (WillMoveTabOutOfGroup) Kind() Kind { return KindWillMoveOutOfGroup }
func (DidMoveTabOutOfGroup) Kind() Kind  { return KindDidMoveOutOfGroup }
func (DidMoveWithinGroup) Kind() Kind    { return KindDidMoveWithinGroup }
func (DidMoveTabGroup) Kind() Kind       { return KindDidMoveTabGroup }
func (DidCreateNewGroup) Kind() Kind     { return KindDidCreateNewGroup }
func (TabSelected) Kind() Kind           { return KindTabSelected }
func (TabPropertyChanged) Kind() Kind    { return KindTabPropertyChanged }
func (RestoreStarted) Kind() Kind        { return KindRestoreStarted }
func (RestoreCompleted) Kind() Kind      { return KindRestoreCompleted }

func (TabAdded) event()              {}
func (WillCloseTab) event()          {}
func (TabClosureCommitted) event()   {}
func (TabClosureUndone) event()      {}
func (WillMergeTabToGroup) event()   {}
func (DidMergeTabToGroup) event()    {}
func (MergeUndone) event()           {}
func (WillMoveTabOutOfGroup) event() {}
func (DidMoveTabOutOfGroup) event()  {}
func (DidMoveWithinGroup) event()    {}
func (DidMoveTabGroup) event()       {}
func (DidCreateNewGroup) event()     {}
func (TabSelected) event()           {}
func (TabPropertyChanged) event()    {}
func (RestoreStarted) event()        {}
func (RestoreCompleted) event()      {}
