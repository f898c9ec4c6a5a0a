package server

import (
	"fmt"

	"github.com/lotas/tabgrid/internal/applog"
	"github.com/lotas/tabgrid/internal/tabs"
	"github.com/lotas/tabgrid/internal/types"
)

// Target receives the changes that do not travel as collection events:
// full reloads and group property edits made in the browser.
type Target interface {
	Reset(quick bool) bool
	SetGroupTitle(rootID int, title string)
	SetGroupColor(rootID, color int)
}

// Bridge applies extension messages to a tabs.List. It must run on the
// goroutine that owns the list.
type Bridge struct {
	list   *tabs.List
	target Target
	// tokens maps browser group tokens to tokens the list generated for
	// groups it created itself.
	tokens map[string]string
}

// NewBridge creates a Bridge feeding list and target.
func NewBridge(list *tabs.List, target Target) *Bridge {
	return &Bridge{
		list:   list,
		target: target,
		tokens: make(map[string]string),
	}
}

// Apply applies one message. Messages about unknown tabs return an error
// wrapping tabs.ErrNotFound; the list is left unchanged.
func (b *Bridge) Apply(msg IncomingMsg) error {
	switch msg.Type {
	case MsgSnapshot:
		return b.snapshot(msg)
	case MsgTabCreated:
		tab, index, err := ParseTab(msg.Tab)
		if err != nil {
			return err
		}
		tab.GroupID = b.token(tab.GroupID)
		tab.Launch = types.LaunchNewTab
		return b.list.Add(tab, index, false)
	case MsgTabRemoved:
		if err := b.list.Close(msg.TabID); err != nil {
			return err
		}
		return b.list.CommitClosure(msg.TabID)
	case MsgTabUpdated:
		return b.update(msg)
	case MsgTabActivated:
		return b.list.Select(msg.TabID)
	case MsgTabMoved:
		return b.move(msg.TabID, msg.Index)
	case MsgTabGrouped:
		return b.group(msg.TabID, groupToken(msg.GroupID))
	case MsgTabUngrouped:
		return b.ungroup(msg.TabID)
	case MsgGroupUpdated:
		return b.groupUpdated(msg)
	case "":
		if msg.ID != "" {
			applog.Info("ws.response", "id", msg.ID, "ok", msg.OK != nil && *msg.OK, "error", msg.Error)
			return nil
		}
	}
	applog.Warn("bridge.unknown_type", "type", msg.Type)
	return nil
}

func (b *Bridge) token(browserToken string) string {
	if t, ok := b.tokens[browserToken]; ok {
		return t
	}
	return browserToken
}

func (b *Bridge) tab(tabID int) (*types.Tab, error) {
	t := b.list.TabByID(tabID)
	if t == nil {
		return nil, fmt.Errorf("tab %d: %w", tabID, tabs.ErrNotFound)
	}
	return t, nil
}

func (b *Bridge) snapshot(msg IncomingMsg) error {
	s, err := ParseSnapshot(msg)
	if err != nil {
		return err
	}
	b.tokens = make(map[string]string)
	b.list.Load(s.Tabs, s.ActiveID)
	b.target.Reset(false)
	for _, t := range s.Tabs {
		if t.GroupID == "" || t.ID != t.RootID {
			continue
		}
		info := s.Groups[t.GroupID]
		b.target.SetGroupTitle(t.RootID, info.Name)
		b.target.SetGroupColor(t.RootID, types.ColorIndex(info.Color))
	}
	applog.Info("bridge.snapshot", "tabs", len(s.Tabs), "groups", len(s.Groups))
	return nil
}

func (b *Bridge) update(msg IncomingMsg) error {
	next, _, err := ParseTab(msg.Tab)
	if err != nil {
		return err
	}
	t, err := b.tab(next.ID)
	if err != nil {
		return err
	}
	changes := []struct {
		prop      tabs.Property
		old, next string
	}{
		{tabs.PropTitle, t.Title, next.Title},
		{tabs.PropURL, t.URL, next.URL},
		{tabs.PropFavicon, t.Favicon, next.Favicon},
	}
	for _, c := range changes {
		if c.old == c.next {
			continue
		}
		if err := b.list.Update(t.ID, c.prop, c.next); err != nil {
			return err
		}
	}
	return nil
}

// move handles a tab dragged to browser index. A grouped tab is reordered
// inside its group; a lone tab moves as a group of its own.
func (b *Bridge) move(tabID, index int) error {
	t, err := b.tab(tabID)
	if err != nil {
		return err
	}
	if b.list.IndexOf(tabID) == index {
		return nil
	}
	members := b.list.RelatedTabList(t.RootID)
	if len(members) > 1 {
		first := b.list.IndexOf(members[0].ID)
		return b.list.MoveWithinGroup(tabID, index-first)
	}
	return b.list.MoveGroup(t.RootID, b.groupIndexAt(t.RootID, index))
}

// groupIndexAt counts the groups in front of tab index once the group of
// rootID is taken out.
func (b *Bridge) groupIndexAt(rootID, index int) int {
	seen := make(map[int]bool)
	n := 0
	for i := 0; i < b.list.Count() && n < index; i++ {
		t := b.list.TabAt(i)
		if t.RootID == rootID {
			continue
		}
		n++
		seen[t.RootID] = true
	}
	return len(seen)
}

func (b *Bridge) group(tabID int, browserToken string) error {
	t, err := b.tab(tabID)
	if err != nil {
		return err
	}
	if browserToken == "" {
		return b.ungroup(tabID)
	}
	token := b.token(browserToken)
	if t.GroupID == token {
		return nil
	}
	if t.Grouped() || b.list.RelatedTabCount(t.RootID) > 1 {
		if err := b.list.MoveOutOfGroup(tabID); err != nil {
			return err
		}
	}
	if root, ok := b.list.RootIDForGroup(token); ok {
		return b.list.Merge(t.RootID, root)
	}
	if err := b.list.CreateGroup(tabID); err != nil {
		return err
	}
	b.tokens[browserToken] = t.GroupID
	return nil
}

func (b *Bridge) ungroup(tabID int) error {
	t, err := b.tab(tabID)
	if err != nil {
		return err
	}
	if !t.Grouped() && b.list.RelatedTabCount(t.RootID) <= 1 {
		return nil
	}
	return b.list.MoveOutOfGroup(tabID)
}

func (b *Bridge) groupUpdated(msg IncomingMsg) error {
	info, err := ParseGroup(msg.Group)
	if err != nil {
		return err
	}
	root, ok := b.list.RootIDForGroup(b.token(info.ID))
	if !ok {
		applog.Warn("bridge.unknown_group", "group", info.ID)
		return nil
	}
	b.target.SetGroupTitle(root, info.Name)
	b.target.SetGroupColor(root, types.ColorIndex(info.Color))
	return nil
}
