// Package cache models instruction and data caches with Akita cache
// directories. The caches track tags only; data always comes from the
// flat simulator memory, so a cache never changes what a program computes.
package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int `json:"size"`
	// Associativity (number of ways)
	Associativity int `json:"associativity"`
	// BlockSize in bytes (cache line size)
	BlockSize int `json:"block_size"`
	// MissPenalty is the number of cycles a miss would cost to refill.
	MissPenalty uint64 `json:"miss_penalty"`
}

// DefaultICacheConfig returns the default instruction cache: 4KB, 2-way,
// 32B lines.
func DefaultICacheConfig() Config {
	return Config{
		Size:          4 * 1024,
		Associativity: 2,
		BlockSize:     32,
		MissPenalty:   10,
	}
}

// DefaultDCacheConfig returns the default data cache: 8KB, 4-way, 32B lines.
func DefaultDCacheConfig() Config {
	return Config{
		Size:          8 * 1024,
		Associativity: 4,
		BlockSize:     32,
		MissPenalty:   10,
	}
}

// Validate checks that the geometry describes at least one whole set.
func (c Config) Validate() error {
	if c.BlockSize <= 0 || c.BlockSize&(c.BlockSize-1) != 0 {
		return fmt.Errorf("cache block_size must be a power of two, got %d", c.BlockSize)
	}
	if c.Associativity <= 0 {
		return fmt.Errorf("cache associativity must be > 0")
	}
	if c.Size <= 0 || c.Size%(c.Associativity*c.BlockSize) != 0 {
		return fmt.Errorf("cache size %d is not a multiple of associativity*block_size", c.Size)
	}
	return nil
}

// NumSets returns the number of sets.
func (c Config) NumSets() int {
	return c.Size / (c.Associativity * c.BlockSize)
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Evicted is true if a valid block was replaced.
	Evicted bool
	// EvictedAddr is the address of the evicted block (if Evicted is true).
	EvictedAddr uint64
	// Writeback is true if the evicted block was dirty.
	Writeback bool
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// Accesses returns the number of reads and writes.
func (s Statistics) Accesses() uint64 {
	return s.Reads + s.Writes
}

// HitRate returns hits over accesses, or 0 before the first access.
func (s Statistics) HitRate() float64 {
	if s.Accesses() == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Accesses())
}

// Cache is a write-back, write-allocate cache with LRU replacement.
type Cache struct {
	config    Config
	directory *akitacache.DirectoryImpl
	stats     Statistics
}

// New creates a new cache with the given configuration. It panics on an
// invalid geometry.
func New(config Config) *Cache {
	if err := config.Validate(); err != nil {
		panic(err)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			config.NumSets(),
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// PenaltyCycles returns the refill cycles the recorded misses would cost.
func (c *Cache) PenaltyCycles() uint64 {
	return c.stats.Misses * c.config.MissPenalty
}

// Read records a read of addr.
func (c *Cache) Read(addr uint32) AccessResult {
	c.stats.Reads++
	return c.access(addr, false)
}

// Write records a write of addr.
func (c *Cache) Write(addr uint32) AccessResult {
	c.stats.Writes++
	return c.access(addr, true)
}

func (c *Cache) blockAddr(addr uint32) uint64 {
	return uint64(addr) &^ uint64(c.config.BlockSize-1)
}

func (c *Cache) access(addr uint32, isWrite bool) AccessResult {
	blockAddr := c.blockAddr(addr)

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)
		if isWrite {
			block.IsDirty = true
		}
		return AccessResult{Hit: true}
	}

	c.stats.Misses++
	result := AccessResult{}

	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return result
	}

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = victim.Tag

		if victim.IsDirty {
			c.stats.Writebacks++
			result.Writeback = true
		}
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = isWrite
	c.directory.Visit(victim)

	return result
}

// Contains reports whether the block holding addr is cached.
func (c *Cache) Contains(addr uint32) bool {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	return block != nil && block.IsValid
}

// Flush writes back all dirty blocks and invalidates every line.
func (c *Cache) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				c.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset invalidates all cache lines without writeback and clears the
// statistics.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}
