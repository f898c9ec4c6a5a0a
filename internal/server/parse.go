package server

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lotas/tabgrid/internal/types"
)

// noGroup is the browser's group id for ungrouped tabs.
const noGroup = -1

type wireTab struct {
	ID           int    `json:"id"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	LastAccessed int64  `json:"lastAccessed"`
	GroupID      int    `json:"groupId"`
	Index        int    `json:"index"`
	FavIconURL   string `json:"favIconUrl"`
	Active       bool   `json:"active"`
}

type wireGroup struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Color string `json:"color"`
}

// groupToken converts a browser group id to a collection group token.
func groupToken(id int) string {
	if id == noGroup || id == 0 {
		return ""
	}
	return "b" + strconv.Itoa(id)
}

func (wt wireTab) tab() *types.Tab {
	return &types.Tab{
		ID:        wt.ID,
		RootID:    wt.ID,
		URL:       wt.URL,
		Title:     wt.Title,
		Favicon:   wt.FavIconURL,
		GroupID:   groupToken(wt.GroupID),
		Timestamp: time.UnixMilli(wt.LastAccessed),
	}
}

// ParseSnapshot converts an IncomingMsg of type "snapshot" into a Session.
// Tabs are ordered by their browser index. The first tab of each group is
// its root; tabs referencing an unknown group are ungrouped.
func ParseSnapshot(msg IncomingMsg) (*types.Session, error) {
	var wtabs []wireTab
	if err := json.Unmarshal(msg.Tabs, &wtabs); err != nil {
		return nil, fmt.Errorf("parse tabs: %w", err)
	}
	var wgroups []wireGroup
	if len(msg.Groups) > 0 {
		if err := json.Unmarshal(msg.Groups, &wgroups); err != nil {
			return nil, fmt.Errorf("parse groups: %w", err)
		}
	}

	s := &types.Session{
		Groups:   make(map[string]types.GroupInfo),
		ActiveID: msg.ActiveTabID,
		ParsedAt: time.Now(),
	}
	for _, g := range wgroups {
		token := groupToken(g.ID)
		s.Groups[token] = types.GroupInfo{ID: token, Name: g.Title, Color: g.Color}
	}

	roots := make(map[string]int)
	for _, wt := range sortedByIndex(wtabs) {
		tab := wt.tab()
		if _, ok := s.Groups[tab.GroupID]; !ok {
			tab.GroupID = ""
		}
		if tab.GroupID != "" {
			if root, ok := roots[tab.GroupID]; ok {
				tab.RootID = root
			} else {
				roots[tab.GroupID] = tab.ID
			}
		}
		if wt.Active && s.ActiveID == 0 {
			s.ActiveID = tab.ID
		}
		s.Tabs = append(s.Tabs, tab)
	}
	return s, nil
}

func sortedByIndex(wtabs []wireTab) []wireTab {
	out := append([]wireTab(nil), wtabs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// ParseTab converts a raw JSON tab into a Tab and its browser index.
func ParseTab(raw json.RawMessage) (*types.Tab, int, error) {
	var wt wireTab
	if err := json.Unmarshal(raw, &wt); err != nil {
		return nil, 0, fmt.Errorf("parse tab: %w", err)
	}
	return wt.tab(), wt.Index, nil
}

// ParseGroup converts a raw JSON group into its token and info.
func ParseGroup(raw json.RawMessage) (types.GroupInfo, error) {
	var wg wireGroup
	if err := json.Unmarshal(raw, &wg); err != nil {
		return types.GroupInfo{}, fmt.Errorf("parse group: %w", err)
	}
	return types.GroupInfo{ID: groupToken(wg.ID), Name: wg.Title, Color: wg.Color}, nil
}

// BrowserGroupID converts a group token back to the browser's group id.
// Tokens the collection generated itself have no browser id.
func BrowserGroupID(token string) (int, bool) {
	if !strings.HasPrefix(token, "b") {
		return 0, false
	}
	id, err := strconv.Atoi(token[1:])
	if err != nil {
		return 0, false
	}
	return id, true
}
