package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/lotas/tabgrid/internal/cards"
	"github.com/lotas/tabgrid/internal/types"
)

// Markdown formats the card list as a markdown document. Message cards
// are skipped; dividers become horizontal rules.
func Markdown(profile string, m *cards.Model, src Source) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Tab cards — %s\n", profile)
	fmt.Fprintf(&b, "> Exported %s\n", time.Now().Format("2006-01-02 15:04"))

	for i := 0; i < m.Size(); i++ {
		switch c := m.Get(i).(type) {
		case *cards.DividerCard:
			b.WriteString("\n---\n")
		case *cards.TabCard:
			tabs := members(m, src, c)
			n := len(tabs)
			noun := "tabs"
			if n == 1 {
				noun = "tab"
			}
			heading := fmt.Sprintf("%s (%d %s)", c.Title, n, noun)
			if color := types.ColorName(c.ColorID); color != "" {
				heading += " · " + color
			}
			if c.Selected {
				heading += " *"
			}
			fmt.Fprintf(&b, "\n## %s\n\n", heading)

			for _, tab := range tabs {
				title := tab.Title
				if title == "" {
					title = tab.URL
				}
				fmt.Fprintf(&b, "- [%s](%s) — %s\n", title, tab.URL, relativeTime(tab.Timestamp))
			}
		}
	}

	return b.String()
}

func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
