package firefox

import (
	"github.com/lotas/tabgrid/internal/applog"
	"github.com/lotas/tabgrid/internal/groups"
	"github.com/lotas/tabgrid/internal/types"
)

// SeedGroupKeys copies Firefox group names and colors into store under each
// group's root id. Entries already present in store are kept. It returns
// the number of values written.
func SeedGroupKeys(s *types.Session, store groups.Store) int {
	written := 0
	seen := make(map[string]bool)
	for _, t := range s.Tabs {
		if t.GroupID == "" || seen[t.GroupID] {
			continue
		}
		seen[t.GroupID] = true
		info, ok := s.Groups[t.GroupID]
		if !ok {
			continue
		}
		if _, has := store.Title(t.RootID); !has && info.Name != "" {
			store.SetTitle(t.RootID, info.Name)
			written++
		}
		if color := types.ColorIndex(info.Color); color != types.NoColor {
			if _, has := store.Color(t.RootID); !has {
				store.SetColor(t.RootID, color)
				written++
			}
		}
	}
	if written > 0 {
		applog.Info("firefox.seeded", "groups", len(seen), "values", written)
	}
	return written
}
