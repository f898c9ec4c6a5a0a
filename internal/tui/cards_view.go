package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/tabgrid/internal/cards"
	"github.com/lotas/tabgrid/internal/types"
)

var (
	cursorStyle   = lipgloss.NewStyle().Bold(true).Reverse(true)
	domainStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	messageStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
	dividerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true)
	labelStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
)

// cardLine renders one card as a single list row.
func cardLine(c cards.Card, width int) string {
	switch c := c.(type) {
	case *cards.TabCard:
		mark := "  "
		if c.Selected {
			mark = selectedStyle.Render("● ")
		}
		title := c.Title
		if title == "" {
			title = "(untitled)"
		}
		if c.Members > 1 {
			title = fmt.Sprintf("%s (%d)", title, c.Members)
		}
		line := mark + swatch(c.ColorID) + " " + title
		if c.Domain != "" {
			line += "  " + domainStyle.Render(c.Domain)
		}
		return truncate(line, width)
	case *cards.MessageCard:
		text := c.Type
		if s, ok := c.Payload.(string); ok && s != "" {
			text = s
		}
		return truncate(messageStyle.Render("  "+text), width)
	case *cards.DividerCard:
		if width < 2 {
			width = 2
		}
		return dividerStyle.Render(strings.Repeat("─", width-2))
	}
	return ""
}

// truncate cuts s to width cells, keeping styling intact.
func truncate(s string, width int) string {
	if width <= 1 || lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}

// listView renders the visible window of the card list.
func listView(m *cards.Model, cursor, offset, width, height int) string {
	var b strings.Builder
	for i := offset; i < m.Size() && i < offset+height; i++ {
		line := cardLine(m.Get(i), width)
		if i == cursor {
			line = cursorStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// detailView renders everything known about a tab card.
func detailView(tc *cards.TabCard, members []*types.Tab, width int) string {
	if tc == nil {
		return ""
	}
	var b strings.Builder
	field := func(label, value string) {
		b.WriteString(labelStyle.Render(label) + "\n")
		b.WriteString(truncate(value, width-2) + "\n\n")
	}

	field("Title", tc.Title)
	field("Description", tc.Descriptions.Content)
	field("Close button", tc.Descriptions.Close)
	color := types.ColorName(tc.ColorID)
	if color == "" {
		color = "none"
	}
	field("Color", swatch(tc.ColorID)+" "+color)
	field("Favicon", fmt.Sprintf("%s, %d tabs", tc.Favicon.Kind, len(tc.Favicon.TabIDs)))
	field("Thumbnail", tc.Thumbnail.Kind.String())
	if tc.Images.ThumbnailURL != "" {
		field("Image", tc.Images.ThumbnailURL)
	}

	b.WriteString(labelStyle.Render(fmt.Sprintf("Tabs (%d)", len(members))) + "\n")
	for _, t := range members {
		prefix := "  "
		if t.ID == tc.TabID {
			prefix = "▸ "
		}
		title := t.Title
		if title == "" {
			title = t.URL
		}
		b.WriteString(truncate(prefix+title, width-2) + "\n")
	}
	return b.String()
}
