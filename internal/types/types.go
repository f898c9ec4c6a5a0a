package types

import "time"

// Tab represents a single browser tab.
type Tab struct {
	ID        int    // stable within a session
	RootID    int    // equals ID when ungrouped or when this tab founded its group
	GroupID   string // opaque group token; empty if ungrouped
	URL       string
	Title     string
	Favicon   string // favicon URL reported by the browser, if any
	Timestamp time.Time
	Closing   bool // hidden pending undo

	// Launch records how the tab was opened ("link", "restore", ...).
	Launch LaunchType
}

// Grouped reports whether the tab carries a group token.
func (t *Tab) Grouped() bool {
	return t.GroupID != ""
}

// Clone returns a shallow copy of the tab.
func (t *Tab) Clone() *Tab {
	c := *t
	return &c
}

// LaunchType describes what caused a tab to be added.
type LaunchType string

const (
	LaunchLink       LaunchType = "link"
	LaunchNewTab     LaunchType = "new-tab"
	LaunchRestore    LaunchType = "restore"
	LaunchFromGroup  LaunchType = "group"
	LaunchBackground LaunchType = "background"
)

// Profile represents a Firefox profile.
type Profile struct {
	Name       string
	Path       string // absolute path to profile directory
	IsDefault  bool
	IsRelative bool
}

// GroupInfo is the browser-side metadata of a tab group, keyed by its token.
type GroupInfo struct {
	ID    string
	Name  string
	Color string // palette name, e.g. "blue"
}

// Session holds the tabs of one browser profile in display order.
type Session struct {
	Tabs     []*Tab
	Groups   map[string]GroupInfo // group token -> info
	ActiveID int
	Profile  Profile
	ParsedAt time.Time
}

// NoColor marks a group without an assigned palette color.
const NoColor = -1

// Palette lists tab group colors in suggestion order.
var Palette = []string{
	"grey",
	"blue",
	"red",
	"yellow",
	"green",
	"pink",
	"purple",
	"cyan",
	"orange",
}

// ColorIndex returns the palette index for a color name, or NoColor.
func ColorIndex(name string) int {
	for i, c := range Palette {
		if c == name {
			return i
		}
	}
	return NoColor
}

// ColorName returns the palette name for an index, or "" for NoColor.
func ColorName(id int) string {
	if id < 0 || id >= len(Palette) {
		return ""
	}
	return Palette[id]
}
