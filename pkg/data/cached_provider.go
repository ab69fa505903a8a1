package data

import (
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/swarm-backtester/pkg/types"
)

// MemoryCache implements DataCache using in-memory storage
type MemoryCache struct {
	cache map[string][]types.OHLCV
	mutex sync.RWMutex
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		cache: make(map[string][]types.OHLCV),
	}
}

// Get returns a copy of the cached candles
func (c *MemoryCache) Get(key string) ([]types.OHLCV, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	data, exists := c.cache[key]
	if !exists {
		return nil, false
	}
	result := make([]types.OHLCV, len(data))
	copy(result, data)
	return result, true
}

// Set stores a copy of data
func (c *MemoryCache) Set(key string, data []types.OHLCV) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	cached := make([]types.OHLCV, len(data))
	copy(cached, data)
	c.cache[key] = cached
}

// Clear removes all cached data
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache = make(map[string][]types.OHLCV)
}

// Size returns the number of cached entries
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.cache)
}

// CachedProvider wraps another DataProvider with caching
type CachedProvider struct {
	provider DataProvider
	cache    DataCache
	log      zerolog.Logger
}

// NewCachedProvider creates a cached provider over an in-memory cache
func NewCachedProvider(provider DataProvider, log zerolog.Logger) *CachedProvider {
	return &CachedProvider{provider: provider, cache: NewMemoryCache(), log: log}
}

// GetName returns the name of the underlying provider with cache indication
func (p *CachedProvider) GetName() string {
	return "Cached " + p.provider.GetName()
}

// LoadData returns cached candles or loads and caches them
func (p *CachedProvider) LoadData(source string) ([]types.OHLCV, error) {
	if cached, ok := p.cache.Get(source); ok {
		return cached, nil
	}

	data, err := p.provider.LoadData(source)
	if err != nil {
		p.log.Error().Err(err).Str("file", filepath.Base(source)).Msg("failed to load data")
		return nil, err
	}

	p.cache.Set(source, data)
	p.log.Info().Str("file", filepath.Base(source)).Int("records", len(data)).Msg("loaded and cached data")
	return data, nil
}

// ValidateData validates data using the underlying provider
func (p *CachedProvider) ValidateData(data []types.OHLCV) error {
	return p.provider.ValidateData(data)
}

// CacheSize returns the number of cached entries
func (p *CachedProvider) CacheSize() int {
	return p.cache.Size()
}
