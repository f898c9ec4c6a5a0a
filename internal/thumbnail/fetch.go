package thumbnail

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/lotas/tabgrid/internal/cards"
	"github.com/lotas/tabgrid/internal/types"
)

var skipPrefixes = []string{"about:", "moz-extension:", "file:", "chrome:", "resource:", "data:"}

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// PageMeta is what a page tells about its own images.
type PageMeta struct {
	Favicon string
	Image   string
}

// PageFetcher resolves favicons and lead images by loading the tab pages.
// Concurrent requests for the same URL share one download.
type PageFetcher struct {
	client *http.Client
	group  singleflight.Group
	limit  int
}

// NewPageFetcher creates a PageFetcher with the given per-request timeout.
func NewPageFetcher(timeout time.Duration) *PageFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PageFetcher{
		client: &http.Client{Timeout: timeout},
		limit:  DefaultComposedLimit,
	}
}

// Fetch resolves both requests of a card. Known favicon URLs are used as
// they are; missing ones come from the page.
func (p *PageFetcher) Fetch(ctx context.Context, favicon, thumbnail cards.Fetch) (cards.Images, error) {
	out := cards.Images{ColorID: types.NoColor}

	switch favicon.Kind {
	case cards.ImageSolidColor:
		out.ColorID = favicon.ColorID
	case cards.ImageSingle, cards.ImageComposed:
		icons, err := p.favicons(ctx, favicon)
		if err != nil {
			return out, err
		}
		out.FaviconURLs = icons
	}

	switch thumbnail.Kind {
	case cards.ImageSingle, cards.ImageComposed:
		// The first member page with a lead image wins.
		for _, u := range thumbnail.URLs {
			meta, err := p.Page(ctx, u)
			if err != nil {
				continue
			}
			if meta.Image != "" {
				out.ThumbnailURL = meta.Image
				break
			}
		}
	}
	return out, nil
}

func (p *PageFetcher) favicons(ctx context.Context, f cards.Fetch) ([]string, error) {
	icons := make([]string, len(f.URLs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	for i, u := range f.URLs {
		if i < len(f.Icons) && f.Icons[i] != "" {
			icons[i] = f.Icons[i]
			continue
		}
		g.Go(func() error {
			meta, err := p.Page(ctx, u)
			if err != nil {
				// A page that cannot be loaded still gets the site's default icon.
				icons[i] = defaultFavicon(u)
				return nil
			}
			icons[i] = meta.Favicon
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return icons, nil
}

// Page loads rawURL and extracts its favicon and lead image.
func (p *PageFetcher) Page(ctx context.Context, rawURL string) (PageMeta, error) {
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(rawURL, prefix) {
			return PageMeta{}, fmt.Errorf("skipping non-HTTP URL: %s", rawURL)
		}
	}
	// The flight is shared, so one caller's cancellation must not fail the
	// others. The client timeout still bounds it.
	shared := context.WithoutCancel(ctx)
	v, err, _ := p.group.Do(rawURL, func() (any, error) {
		return p.load(shared, rawURL)
	})
	if err != nil {
		return PageMeta{}, err
	}
	return v.(PageMeta), nil
}

func (p *PageFetcher) load(ctx context.Context, rawURL string) (PageMeta, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return PageMeta{}, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return PageMeta{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := p.client.Do(req)
	if err != nil {
		return PageMeta{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return PageMeta{}, fmt.Errorf("fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, pageURL)
	if err != nil {
		return PageMeta{}, fmt.Errorf("extract page metadata from %s: %w", rawURL, err)
	}

	meta := PageMeta{Favicon: article.Favicon, Image: article.Image}
	if meta.Favicon == "" {
		meta.Favicon = defaultFavicon(rawURL)
	}
	return meta, nil
}

func defaultFavicon(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/favicon.ico"
}
