// Package images fetches, downsizes and caches post images so repeated
// scans of the same media cost one fetch and one resize.
package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	// Register decoders for the formats reddit serves.
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	"golang.org/x/sync/singleflight"

	"cakeday-bot/internal/cache"
)

// Fetcher retrieves raw image bytes from a URL. It is an external
// collaborator; tests use an in-memory fake.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// maxImageBytes bounds how much of a remote image the fetcher will read.
const maxImageBytes = 20 << 20

// HTTPFetcher fetches image bytes over plain HTTP GET. A nil client uses
// http.DefaultClient.
func HTTPFetcher(client *http.Client) Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return FetcherFunc(func(ctx context.Context, rawURL string) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	})
}

// Processed is a downsized, JPEG-encoded image ready for prompt encoding.
type Processed struct {
	Data   []byte
	Width  int
	Height int
	Format string
}

// previewHosts are rendition hosts that serve the same media as i.redd.it.
// Collapsing them means a gallery item and its preview rendition share one
// cache entry.
var previewHosts = map[string]string{
	"preview.redd.it":          "i.redd.it",
	"external-preview.redd.it": "i.redd.it",
}

// CanonicalKey normalizes the three source shapes the bot encounters
// (direct link, preview rendition, gallery item) into one key space:
// lowercase host, preview hosts folded into i.redd.it, query and fragment
// stripped (renditions differ only in query parameters).
func CanonicalKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	host := strings.ToLower(u.Host)
	if direct, ok := previewHosts[host]; ok {
		host = direct
	}
	return "https://" + host + u.Path
}

// Cache memoizes processed images keyed by canonical source URL.
type Cache struct {
	fetcher Fetcher
	entries *cache.TTLCache[string, *Processed]
	group   singleflight.Group
	maxEdge int
	ttl     time.Duration
}

// NewCache builds an image cache. maxEdge caps the long edge of processed
// images in pixels. Processed images are stable per URL, so ttl should be
// hours rather than minutes.
func NewCache(fetcher Fetcher, maxEdge int, ttl, sweepInterval time.Duration) *Cache {
	return &Cache{
		fetcher: fetcher,
		entries: cache.NewTTLCache[string, *Processed](ttl, sweepInterval),
		maxEdge: maxEdge,
		ttl:     ttl,
	}
}

// GetProcessed returns the processed image for a source URL, fetching and
// resizing on miss. Concurrent misses for the same canonical key share a
// single fetch.
func (c *Cache) GetProcessed(ctx context.Context, rawURL string) (*Processed, error) {
	key := CanonicalKey(rawURL)
	if img, ok := c.entries.Get(key); ok {
		return img, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check under the flight: a racing call may have populated it.
		if img, ok := c.entries.Get(key); ok {
			return img, nil
		}
		raw, err := c.fetcher.Fetch(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("fetch image %s: %w", key, err)
		}
		img, err := c.process(raw)
		if err != nil {
			return nil, fmt.Errorf("process image %s: %w", key, err)
		}
		c.entries.Set(key, img, c.ttl)
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Processed), nil
}

// Sweep removes expired entries, returning how many were dropped.
func (c *Cache) Sweep(at time.Time) int {
	return c.entries.Sweep(at)
}

// process decodes raw bytes, downsizes to the bounding box while keeping
// aspect ratio, converts to RGBA and re-encodes as JPEG.
func (c *Cache) process(raw []byte) (*Processed, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	w, h := fitWithin(src.Bounds().Dx(), src.Bounds().Dy(), c.maxEdge)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return &Processed{
		Data:   buf.Bytes(),
		Width:  w,
		Height: h,
		Format: "jpeg",
	}, nil
}

// fitWithin scales (w, h) down so the long edge is at most maxEdge,
// preserving aspect ratio. Images already within the box keep their size.
func fitWithin(w, h, maxEdge int) (int, int) {
	if w <= 0 || h <= 0 {
		return 1, 1
	}
	long := w
	if h > long {
		long = h
	}
	if long <= maxEdge {
		return w, h
	}
	scale := float64(maxEdge) / float64(long)
	sw := int(float64(w) * scale)
	sh := int(float64(h) * scale)
	if sw < 1 {
		sw = 1
	}
	if sh < 1 {
		sh = 1
	}
	return sw, sh
}
