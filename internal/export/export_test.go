package export

import (
	"time"

	"github.com/lotas/tabgrid/internal/cards"
	"github.com/lotas/tabgrid/internal/groups"
	"github.com/lotas/tabgrid/internal/reconcile"
	"github.com/lotas/tabgrid/internal/tabs"
	"github.com/lotas/tabgrid/internal/types"
)

// fixture reconciles three tabs: "Go docs" and "Bubble Tea" grouped as
// "Research" (blue), "Example" on its own and active.
func fixture(aggregate bool) (*cards.Model, *tabs.List) {
	now := time.Now()
	list := tabs.NewList(true)
	list.Load([]*types.Tab{
		{ID: 1, RootID: 1, GroupID: "g", Title: "Go docs", URL: "https://go.dev/doc", Timestamp: now.Add(-3 * 24 * time.Hour)},
		{ID: 2, RootID: 1, GroupID: "g", Title: "Bubble Tea", URL: "https://github.com/charmbracelet/bubbletea", Timestamp: now.Add(-5 * time.Hour)},
		{ID: 3, RootID: 3, Title: "", URL: "https://example.com", Timestamp: now.Add(-30 * time.Minute)},
	}, 3)

	store := groups.NewMemoryStore()
	store.SetTitle(1, "Research")
	store.SetColor(1, 1)
	model := cards.New(aggregate)
	engine := reconcile.New(model, groups.NewResolver(store, groups.Options{StableIDs: true}),
		nil, reconcile.Options{AggregateRelatedTabs: aggregate})
	engine.Attach(list)
	return model, list
}
