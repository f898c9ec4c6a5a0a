// Package cards holds the rendered list of cards: one per tab or tab group,
// plus injected message and divider items.
package cards

// Card is one item of the list. The set of implementations is closed:
// *TabCard, *MessageCard and *DividerCard.
type Card interface {
	card()
}

// ImageKind describes how a card's favicon or thumbnail is produced.
type ImageKind int

const (
	ImageNone ImageKind = iota
	// ImageSingle is the tab's own favicon or thumbnail.
	ImageSingle
	// ImageComposed is built from several member tabs, in group order.
	ImageComposed
	// ImageSolidColor replaces a composed favicon with a group color swatch.
	ImageSolidColor
)

func (k ImageKind) String() string {
	switch k {
	case ImageSingle:
		return "single"
	case ImageComposed:
		return "composed"
	case ImageSolidColor:
		return "solid-color"
	default:
		return "none"
	}
}

// Fetch specifies an image request for a card.
type Fetch struct {
	Kind    ImageKind
	TabIDs  []int    // tabs feeding the image, in group order
	URLs    []string // page URLs of TabIDs
	Icons   []string // favicon URLs already known for TabIDs, "" if unknown
	ColorID int
}

// Equal reports whether two fetch specifications request the same image.
func (f Fetch) Equal(o Fetch) bool {
	if f.Kind != o.Kind || f.ColorID != o.ColorID || len(f.TabIDs) != len(o.TabIDs) {
		return false
	}
	for i := range f.TabIDs {
		if f.TabIDs[i] != o.TabIDs[i] {
			return false
		}
	}
	return true
}

// Images is the last fetch result applied to a card.
type Images struct {
	FaviconURLs  []string
	ThumbnailURL string
	ColorID      int
}

// Descriptions are the accessibility strings of a tab card.
type Descriptions struct {
	Content string
	Close   string
}

// TabCard represents a tab, or a whole group through its representative tab.
type TabCard struct {
	TabID    int // representative tab
	RootID   int
	Selected bool
	Title    string
	Domain   string
	ColorID  int
	Members  int

	Favicon   Fetch
	Thumbnail Fetch
	// Version is bumped whenever Favicon or Thumbnail is invalidated. Fetch
	// results carrying an older version are discarded.
	Version uint64
	Images  Images

	Descriptions Descriptions
}

// MessageCard is an injected, non-tab item such as a tip or a notice.
type MessageCard struct {
	Type     string
	Priority int
	Payload  any
}

// DividerCard separates sections of the list.
type DividerCard struct{}

func (*TabCard) card()     {}
func (*MessageCard) card() {}
func (*DividerCard) card() {}
