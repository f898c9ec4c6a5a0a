package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/tabgrid/internal/firefox"
	"github.com/lotas/tabgrid/internal/types"
)

// Source is one entry of the source picker.
type Source struct {
	Label   string
	Detail  string         // e.g. age of the session file
	Profile *types.Profile // nil for live mode
	IsLive  bool
}

// SourcePicker is an overlay for choosing where the card list comes from:
// the live extension or a profile's saved session.
type SourcePicker struct {
	Sources []Source
	Cursor  int
	Current int // source the cards were built from, -1 before the first load
	Width   int
	Height  int
}

func NewSourcePicker(profiles []types.Profile, live bool) SourcePicker {
	var sources []Source
	if live {
		sources = append(sources, Source{Label: "Live", Detail: "browser extension", IsLive: true})
	}
	for i := range profiles {
		p := &profiles[i]
		label := p.Name
		if p.IsDefault {
			label += " (default)"
		}
		sources = append(sources, Source{
			Label:   label,
			Detail:  sessionAge(p.Path, time.Now()),
			Profile: p,
		})
	}
	return SourcePicker{Sources: sources, Current: -1}
}

// sessionAge describes how old a profile's session file is.
func sessionAge(profileDir string, now time.Time) string {
	path := firefox.SessionPath(profileDir)
	if path == "" {
		return "no session"
	}
	info, err := os.Stat(path)
	if err != nil {
		return "no session"
	}
	d := now.Sub(info.ModTime())
	switch {
	case d < time.Minute:
		return "saved just now"
	case d < time.Hour:
		return fmt.Sprintf("saved %dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("saved %dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("saved %dd ago", int(d.Hours()/24))
	}
}

func (m *SourcePicker) MoveUp() {
	if m.Cursor > 0 {
		m.Cursor--
	}
}

func (m *SourcePicker) MoveDown() {
	if m.Cursor < len(m.Sources)-1 {
		m.Cursor++
	}
}

func (m SourcePicker) Selected() Source {
	if m.Cursor < 0 || m.Cursor >= len(m.Sources) {
		return Source{}
	}
	return m.Sources[m.Cursor]
}

// SelectByNumber moves the cursor to the n-th source, counting from 1.
func (m *SourcePicker) SelectByNumber(n int) bool {
	if n < 1 || n > len(m.Sources) {
		return false
	}
	m.Cursor = n - 1
	return true
}

func (m SourcePicker) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	rowStyle := lipgloss.NewStyle().Padding(0, 1)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Build cards from:") + "\n\n")
	if len(m.Sources) == 0 {
		b.WriteString(rowStyle.Render("No Firefox profiles with session data found.") + "\n")
	}

	for i, src := range m.Sources {
		mark := " "
		if i == m.Current {
			mark = "●"
		}
		row := fmt.Sprintf("%s %d  %s", mark, i+1, src.Label)
		if i == m.Cursor {
			row = cursorStyle.Render(row)
		}
		if src.Detail != "" {
			row += "  " + domainStyle.Render(src.Detail)
		}
		b.WriteString(rowStyle.Render(row) + "\n")
	}

	b.WriteString("\n" + rowStyle.Render("↑↓ navigate · enter select · 1-9 quick select · q quit"))

	return boxStyle.Render(b.String())
}
