package reconcile

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/lotas/tabgrid/internal/cards"
	"github.com/lotas/tabgrid/internal/types"
)

// update recomputes the card at idx for representative rep. Only changed
// fields are notified. force invalidates the card's images even when the
// requests stay the same.
func (e *Engine) update(idx int, rep *types.Tab, force, notify bool) {
	card := e.model.TabCardAt(idx)
	if card == nil || rep == nil {
		return
	}

	members := []*types.Tab{rep}
	if e.aggregate {
		members = e.src.RelatedTabList(rep.RootID)
		if len(members) == 0 {
			members = []*types.Tab{rep}
		}
	}
	groupSize := 0
	if e.src.IsInTabGroup(rep) {
		groupSize = e.src.RelatedTabCount(rep.RootID)
	}

	title := rep.Title
	stored, hasTitle := e.groups.EffectiveTitle(rep.RootID, groupSize)
	if e.aggregate && hasTitle {
		title = stored
	}
	color := e.groups.EffectiveColor(rep.RootID, groupSize)
	domain := domainSummary(members)
	desc := describe(title, len(members), e.aggregate && len(members) > 1)

	var fields []cards.Field
	if card.TabID != rep.ID || card.RootID != rep.RootID || card.Members != len(members) {
		card.TabID, card.RootID, card.Members = rep.ID, rep.RootID, len(members)
		fields = append(fields, cards.FieldTab)
	}
	if card.Title != title {
		card.Title = title
		fields = append(fields, cards.FieldTitle)
	}
	if card.Domain != domain {
		card.Domain = domain
		fields = append(fields, cards.FieldDomain)
	}
	if card.ColorID != color {
		card.ColorID = color
		fields = append(fields, cards.FieldColor)
	}
	if card.Descriptions != desc {
		card.Descriptions = desc
		fields = append(fields, cards.FieldDescriptions)
	}

	favicon, thumb := e.images.Specs(members, rep, color)
	imageFields := e.images.Invalidate(card, favicon, thumb, force)
	fields = append(fields, imageFields...)

	if notify && len(fields) > 0 {
		e.model.NotifyChanged(idx, fields...)
	}
	if len(imageFields) > 0 {
		e.images.Fetch(card)
	}
}

// domainSummary joins the members' domains in group order.
func domainSummary(members []*types.Tab) string {
	parts := make([]string, 0, len(members))
	for _, m := range members {
		parts = append(parts, domainOf(m.URL))
	}
	return strings.Join(parts, ", ")
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func describe(title string, members int, group bool) cards.Descriptions {
	if group {
		return cards.Descriptions{
			Content: fmt.Sprintf("Expand tab group with %d tabs, %s", members, title),
			Close:   fmt.Sprintf("Close %s group", title),
		}
	}
	return cards.Descriptions{
		Content: title,
		Close:   fmt.Sprintf("Close %s tab", title),
	}
}
