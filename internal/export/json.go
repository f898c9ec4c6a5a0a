// Package export renders a reconciled card list as JSON or Markdown.
package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lotas/tabgrid/internal/cards"
	"github.com/lotas/tabgrid/internal/types"
)

// Source resolves the tabs behind a card.
type Source interface {
	TabByID(tabID int) *types.Tab
	RelatedTabList(rootID int) []*types.Tab
}

type jsonExport struct {
	Profile    string     `json:"profile"`
	ExportedAt time.Time  `json:"exported_at"`
	Aggregate  bool       `json:"aggregate"`
	Cards      []jsonCard `json:"cards"`
}

type jsonCard struct {
	Type string `json:"type"` // "tab", "message" or "divider"

	TabID       int       `json:"tab_id,omitempty"`
	RootID      int       `json:"root_id,omitempty"`
	Title       string    `json:"title,omitempty"`
	Domain      string    `json:"domain,omitempty"`
	Color       string    `json:"color,omitempty"`
	Selected    bool      `json:"selected,omitempty"`
	Members     int       `json:"members,omitempty"`
	Favicon     string    `json:"favicon,omitempty"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	Description string    `json:"description,omitempty"`
	Tabs        []jsonTab `json:"tabs,omitempty"`

	MessageType string `json:"message_type,omitempty"`
	Priority    int    `json:"priority,omitempty"`
}

type jsonTab struct {
	ID                 int       `json:"id"`
	Title              string    `json:"title"`
	URL                string    `json:"url"`
	LastAccessed       time.Time `json:"last_accessed"`
	LastAccessedPretty string    `json:"last_accessed_pretty"`
}

// members returns the tabs a card stands for, in group order.
func members(m *cards.Model, src Source, tc *cards.TabCard) []*types.Tab {
	if m.CollapseGroups() {
		return src.RelatedTabList(tc.RootID)
	}
	if t := src.TabByID(tc.TabID); t != nil {
		return []*types.Tab{t}
	}
	return nil
}

// JSON formats the card list as a JSON document.
func JSON(profile string, m *cards.Model, src Source) (string, error) {
	out := jsonExport{
		Profile:    profile,
		ExportedAt: time.Now(),
		Aggregate:  m.CollapseGroups(),
		Cards:      make([]jsonCard, 0, m.Size()),
	}

	for i := 0; i < m.Size(); i++ {
		switch c := m.Get(i).(type) {
		case *cards.TabCard:
			card := jsonCard{
				Type:        "tab",
				TabID:       c.TabID,
				RootID:      c.RootID,
				Title:       c.Title,
				Domain:      c.Domain,
				Color:       types.ColorName(c.ColorID),
				Selected:    c.Selected,
				Members:     c.Members,
				Thumbnail:   c.Images.ThumbnailURL,
				Description: c.Descriptions.Content,
			}
			if len(c.Images.FaviconURLs) > 0 {
				card.Favicon = c.Images.FaviconURLs[0]
			}
			for _, t := range members(m, src, c) {
				card.Tabs = append(card.Tabs, jsonTab{
					ID:                 t.ID,
					Title:              t.Title,
					URL:                t.URL,
					LastAccessed:       t.Timestamp,
					LastAccessedPretty: relativeTime(t.Timestamp),
				})
			}
			out.Cards = append(out.Cards, card)
		case *cards.MessageCard:
			out.Cards = append(out.Cards, jsonCard{Type: "message", MessageType: c.Type, Priority: c.Priority})
		case *cards.DividerCard:
			out.Cards = append(out.Cards, jsonCard{Type: "divider"})
		}
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode cards: %w", err)
	}
	return string(b) + "\n", nil
}
