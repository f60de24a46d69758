package embedding

import (
	"context"
	"io"
	"sync"

	"go.uber.org/zap"
)

// LoaderFunc loads the named embedding model. Loading is synchronous and may
// be slow; callers should not assume low latency on first use of a model name.
type LoaderFunc func(name string) (Provider, error)

// ModelCache keeps at most maxSize named models warm. When inserting a new
// model would exceed the cap, the entire cache is cleared rather than evicting
// a single entry; model swaps are rare enough that the simpler policy wins.
// Safe for concurrent use across pipeline workers.
type ModelCache struct {
	mu      sync.RWMutex
	maxSize int
	loader  LoaderFunc
	models  map[string]Provider
	logger  *zap.Logger
}

// NewModelCache creates a bounded model cache backed by the given loader
func NewModelCache(maxSize int, loader LoaderFunc, logger *zap.Logger) *ModelCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxSize < 1 {
		maxSize = 1
	}
	return &ModelCache{
		maxSize: maxSize,
		loader:  loader,
		models:  make(map[string]Provider),
		logger:  logger,
	}
}

// Get returns the cached provider for the named model, loading it on first use
func (c *ModelCache) Get(name string) (Provider, error) {
	c.mu.RLock()
	if provider, ok := c.models[name]; ok {
		c.mu.RUnlock()
		return provider, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have loaded it while we waited for the lock
	if provider, ok := c.models[name]; ok {
		return provider, nil
	}

	if len(c.models) >= c.maxSize {
		c.logger.Info("embedding model cache full, clearing all entries",
			zap.Int("cached", len(c.models)),
			zap.Int("max_size", c.maxSize))
		c.clearLocked()
	}

	provider, err := c.loader(name)
	if err != nil {
		return nil, err
	}

	c.models[name] = provider
	c.logger.Info("embedding model loaded",
		zap.String("model", name),
		zap.Int("cached", len(c.models)))

	return provider, nil
}

// Len returns the number of models currently held warm
func (c *ModelCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.models)
}

// Close releases every cached model
func (c *ModelCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
	return nil
}

func (c *ModelCache) clearLocked() {
	for name, provider := range c.models {
		if closer, ok := provider.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				c.logger.Warn("failed to close evicted model",
					zap.String("model", name),
					zap.Error(err))
			}
		}
	}
	c.models = make(map[string]Provider)
}

// CachedProvider binds a ModelCache to a single configured model name so the
// matcher sees a plain Provider
type CachedProvider struct {
	cache     *ModelCache
	modelName string
}

// NewCachedProvider creates a Provider that resolves the named model through
// the cache on every call
func NewCachedProvider(cache *ModelCache, modelName string) *CachedProvider {
	return &CachedProvider{cache: cache, modelName: modelName}
}

// Embed resolves the model (loading it lazily) and embeds the texts
func (p *CachedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	provider, err := p.cache.Get(p.modelName)
	if err != nil {
		return nil, err
	}
	return provider.Embed(ctx, texts)
}
