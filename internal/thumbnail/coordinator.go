// Package thumbnail derives the favicon and thumbnail requests of tab cards
// and applies asynchronous fetch results back onto them.
package thumbnail

import (
	"context"

	"github.com/lotas/tabgrid/internal/applog"
	"github.com/lotas/tabgrid/internal/cards"
	"github.com/lotas/tabgrid/internal/types"
)

// DefaultComposedLimit is how many member favicons a composed group
// favicon is built from.
const DefaultComposedLimit = 4

// Fetcher produces images for a card's favicon and thumbnail requests.
// It may block and is called off the owning goroutine.
type Fetcher interface {
	Fetch(ctx context.Context, favicon, thumbnail cards.Fetch) (cards.Images, error)
}

// Deliver schedules fn on the goroutine that owns the card model.
type Deliver func(fn func())

// Coordinator keeps each card's fetch requests in step with its grouping
// state. Every invalidation bumps the card's version; completions that
// carry an older version are dropped.
type Coordinator struct {
	model   *cards.Model
	fetcher Fetcher
	deliver Deliver
	limit   int

	ctx    context.Context
	cancel context.CancelFunc
}

// NewCoordinator creates a Coordinator. A nil fetcher disables fetching;
// requests are still derived and versioned.
func NewCoordinator(model *cards.Model, fetcher Fetcher, deliver Deliver) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		model:   model,
		fetcher: fetcher,
		deliver: deliver,
		limit:   DefaultComposedLimit,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Close cancels in-flight fetches. Their completions are still delivered
// and discarded by the version check.
func (c *Coordinator) Close() {
	c.cancel()
}

// Specs derives the requests for a card showing members through rep.
// colorID is the group's stored color, or types.NoColor.
func (c *Coordinator) Specs(members []*types.Tab, rep *types.Tab, colorID int) (favicon, thumbnail cards.Fetch) {
	if len(members) <= 1 {
		single := cards.Fetch{
			Kind:    cards.ImageSingle,
			TabIDs:  []int{rep.ID},
			URLs:    []string{rep.URL},
			Icons:   []string{rep.Favicon},
			ColorID: types.NoColor,
		}
		return single, single
	}

	n := len(members)
	if n > c.limit {
		n = c.limit
	}
	composed := cards.Fetch{Kind: cards.ImageComposed, ColorID: types.NoColor}
	for _, m := range members[:n] {
		composed.TabIDs = append(composed.TabIDs, m.ID)
		composed.URLs = append(composed.URLs, m.URL)
		composed.Icons = append(composed.Icons, m.Favicon)
	}

	favicon = composed
	if colorID != types.NoColor {
		favicon = cards.Fetch{Kind: cards.ImageSolidColor, ColorID: colorID}
	}
	return favicon, composed
}

// Invalidate stores new requests on card. The version is bumped when a
// request changed or force is set, and the changed fields are returned.
func (c *Coordinator) Invalidate(card *cards.TabCard, favicon, thumbnail cards.Fetch, force bool) []cards.Field {
	var fields []cards.Field
	if force || !card.Favicon.Equal(favicon) {
		fields = append(fields, cards.FieldFavicon)
	}
	if force || !card.Thumbnail.Equal(thumbnail) {
		fields = append(fields, cards.FieldThumbnail)
	}
	card.Favicon = favicon
	card.Thumbnail = thumbnail
	if len(fields) > 0 {
		card.Version++
	}
	return fields
}

// Fetch requests images for the card's current requests. The result is
// handed to Deliver and applied only if the card is still in the model
// and its version did not move on.
func (c *Coordinator) Fetch(card *cards.TabCard) {
	if c.fetcher == nil || c.deliver == nil {
		return
	}
	version := card.Version
	favicon, thumbnail := card.Favicon, card.Thumbnail
	go func() {
		images, err := c.fetcher.Fetch(c.ctx, favicon, thumbnail)
		c.deliver(func() {
			if err != nil {
				applog.Error("thumbnail.fetch", err, "tab", card.TabID, "version", version)
				return
			}
			c.apply(card, version, images)
		})
	}()
}

func (c *Coordinator) apply(card *cards.TabCard, version uint64, images cards.Images) {
	idx := c.model.IndexOfCard(card)
	if idx == cards.NotFound || card.Version != version {
		applog.Info("thumbnail.stale", "tab", card.TabID, "version", version, "current", card.Version)
		return
	}
	card.Images = images
	c.model.NotifyChanged(idx, cards.FieldImages)
}
