package firefox

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/lotas/tabgrid/internal/types"
	"github.com/pierrec/lz4/v4"
)

// mozlz4 header: 8-byte magic "mozLz40\x00"
var mozLz4Magic = []byte("mozLz40\x00")

// DecompressMozLz4 decompresses data in Mozilla's mozlz4 format.
// The format is: 8-byte magic "mozLz40\x00" + 4-byte LE uint32 uncompressed size + lz4 block data.
func DecompressMozLz4(data []byte) ([]byte, error) {
	const headerSize = 12 // 8 magic + 4 size

	if len(data) < headerSize {
		return nil, fmt.Errorf("mozlz4: data too short (%d bytes)", len(data))
	}
	if !bytes.Equal(data[:len(mozLz4Magic)], mozLz4Magic) {
		return nil, fmt.Errorf("mozlz4: invalid header magic")
	}

	size := binary.LittleEndian.Uint32(data[8:12])
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(data[headerSize:], dst)
	if err != nil {
		return nil, fmt.Errorf("mozlz4: decompress failed: %w", err)
	}
	return dst[:n], nil
}

// Raw JSON types for Firefox session file parsing.
type rawEntry struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type rawTab struct {
	Entries      []rawEntry `json:"entries"`
	Index        int        `json:"index"`
	LastAccessed int64      `json:"lastAccessed"`
	Image        string     `json:"image"`
	Group        string     `json:"groupId"`
}

type rawGroup struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type rawWindow struct {
	Tabs     []rawTab   `json:"tabs"`
	Groups   []rawGroup `json:"groups"`
	Selected int        `json:"selected"` // 1-based index into Tabs
}

type rawSession struct {
	Windows  []rawWindow `json:"windows"`
	Selected int         `json:"selectedWindow"` // 1-based index into Windows
}

// ParseSession parses raw session JSON into a seed tab list. Tabs of every
// window are concatenated in window order and numbered from 1. The first
// tab of each Firefox group is the group's root; a group referenced by a
// tab but not defined in its window is ignored.
func ParseSession(data []byte) (*types.Session, error) {
	var raw rawSession
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse session JSON: %w", err)
	}

	s := &types.Session{
		Groups:   make(map[string]types.GroupInfo),
		ParsedAt: time.Now(),
	}
	selectedWindow := raw.Selected - 1
	if selectedWindow < 0 || selectedWindow >= len(raw.Windows) {
		selectedWindow = 0
	}

	roots := make(map[string]int)
	nextID := 0
	for winIdx, window := range raw.Windows {
		defined := make(map[string]rawGroup, len(window.Groups))
		for _, rg := range window.Groups {
			defined[rg.ID] = rg
		}

		for tabIdx, rt := range window.Tabs {
			if len(rt.Entries) == 0 {
				continue
			}
			// index is 1-based; current page is entries[index-1].
			entryIdx := rt.Index - 1
			if entryIdx < 0 || entryIdx >= len(rt.Entries) {
				entryIdx = len(rt.Entries) - 1
			}
			entry := rt.Entries[entryIdx]

			nextID++
			tab := &types.Tab{
				ID:        nextID,
				RootID:    nextID,
				URL:       entry.URL,
				Title:     entry.Title,
				Favicon:   rt.Image,
				Timestamp: time.UnixMilli(rt.LastAccessed),
				Launch:    types.LaunchRestore,
			}
			if rg, ok := defined[rt.Group]; ok && rt.Group != "" {
				tab.GroupID = rg.ID
				if root, seen := roots[rg.ID]; seen {
					tab.RootID = root
				} else {
					roots[rg.ID] = tab.ID
					s.Groups[rg.ID] = types.GroupInfo{ID: rg.ID, Name: rg.Name, Color: rg.Color}
				}
			}
			s.Tabs = append(s.Tabs, tab)

			if winIdx == selectedWindow && tabIdx == window.Selected-1 {
				s.ActiveID = tab.ID
			}
		}
	}
	if s.ActiveID == 0 && len(s.Tabs) > 0 {
		s.ActiveID = s.Tabs[0].ID
	}
	return s, nil
}

// ReadSessionFile reads and parses the session file of a profile directory.
// It tries recovery.jsonlz4 first (active session), then previous.jsonlz4.
func ReadSessionFile(profileDir string) (*types.Session, error) {
	path := SessionPath(profileDir)
	if path == "" {
		return nil, fmt.Errorf("no session file found in %s", profileDir)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	decompressed, err := DecompressMozLz4(data)
	if err != nil {
		return nil, fmt.Errorf("decompress session file: %w", err)
	}
	return ParseSession(decompressed)
}
