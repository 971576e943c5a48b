package render

import (
	"image"
	_ "image/gif"  // Support GIF format
	_ "image/jpeg" // Support JPEG format
	_ "image/png"  // Support PNG format
	"log"
	"net/http"
	"sync"
	"time"

	_ "golang.org/x/image/webp" // Support WebP format
)

// SpriteCache stores decoded sprite textures with LRU eviction. Fetches
// are asynchronous and never block a frame: a miss returns nil and the
// renderer falls back to the procedural shape until the texture lands.
// A fetch whose entity was removed in the meantime completes anyway; its
// result just ages out of the cache unused.
type SpriteCache struct {
	mu      sync.RWMutex
	images  map[string]*cachedSprite
	order   []string // LRU order (oldest first)
	maxSize int

	pending map[string]bool
	client  *http.Client
	sem     chan struct{} // Semaphore for concurrent fetches
}

type cachedSprite struct {
	img       image.Image
	fetchedAt time.Time
}

const (
	DefaultMaxSprites    = 128
	SpriteTTL            = 30 * time.Minute
	MaxConcurrentFetches = 3
	FetchTimeout         = 5 * time.Second
)

// NewSpriteCache creates a sprite cache.
func NewSpriteCache(maxSize int) *SpriteCache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSprites
	}
	return &SpriteCache{
		images:  make(map[string]*cachedSprite),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		pending: make(map[string]bool),
		client: &http.Client{
			Timeout: FetchTimeout,
		},
		sem: make(chan struct{}, MaxConcurrentFetches),
	}
}

// Get returns a cached sprite or nil.
func (c *SpriteCache) Get(url string) image.Image {
	if url == "" {
		return nil
	}

	c.mu.RLock()
	cached, exists := c.images[url]
	c.mu.RUnlock()

	if !exists {
		return nil
	}

	if time.Since(cached.fetchedAt) > SpriteTTL {
		c.mu.Lock()
		delete(c.images, url)
		c.mu.Unlock()
		return nil
	}

	return cached.img
}

// GetOrFetch returns a cached sprite or starts an async fetch.
// Never blocks; returns nil immediately on a miss.
func (c *SpriteCache) GetOrFetch(url string) image.Image {
	if url == "" {
		return nil
	}

	if img := c.Get(url); img != nil {
		return img
	}

	c.mu.Lock()
	if !c.pending[url] {
		c.pending[url] = true
		go c.fetchAsync(url)
	}
	c.mu.Unlock()

	return nil
}

func (c *SpriteCache) fetchAsync(url string) {
	c.sem <- struct{}{}
	defer func() { <-c.sem }()

	defer func() {
		c.mu.Lock()
		delete(c.pending, url)
		c.mu.Unlock()
	}()

	resp, err := c.client.Get(url)
	if err != nil {
		log.Printf("sprite fetch failed for %s: %v", trunc(url, 60), err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("sprite fetch returned %d for %s", resp.StatusCode, trunc(url, 60))
		return
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		log.Printf("sprite decode failed for %s: %v (Content-Type: %s)",
			trunc(url, 60), err, resp.Header.Get("Content-Type"))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.images) >= c.maxSize {
		c.evict()
	}

	c.images[url] = &cachedSprite{
		img:       img,
		fetchedAt: time.Now(),
	}
	c.order = append(c.order, url)
}

// evict removes the oldest entry. Caller holds the lock.
func (c *SpriteCache) evict() {
	for len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		if _, exists := c.images[oldest]; exists {
			delete(c.images, oldest)
			return
		}
	}
}

// Size returns the number of cached sprites.
func (c *SpriteCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

func trunc(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
