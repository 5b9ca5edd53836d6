package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector provides simple built-in metrics collection with no external dependencies
type Collector struct {
	engineMetrics     *EngineMetrics
	operationCounters map[string]*int64
	mu                sync.RWMutex
	startTime         time.Time
}

// EngineMetrics tracks rendering-engine activity
type EngineMetrics struct {
	// Compilation
	TemplatesCompiled int64 `json:"templates_compiled"`
	CacheHits         int64 `json:"cache_hits"`
	CacheMisses       int64 `json:"cache_misses"`
	CompileErrors     int64 `json:"compile_errors"`

	// Instances
	InstancesCreated      int64 `json:"instances_created"`
	InstancesRemoved      int64 `json:"instances_removed"`
	ActiveInstances       int64 `json:"active_instances"`
	MaxConcurrentInstance int64 `json:"max_concurrent_instances"`

	// Parts
	PartsApplied int64 `json:"parts_applied"`
	PartsSkipped int64 `json:"parts_skipped"`

	// List reconciliation
	ListItemsCreated int64 `json:"list_items_created"`
	ListItemsReused  int64 `json:"list_items_reused"`
	ListItemsMoved   int64 `json:"list_items_moved"`
	ListItemsRemoved int64 `json:"list_items_removed"`

	// Diagnostics
	KeyCollisions   int64 `json:"key_collisions"`
	DetachedAnchors int64 `json:"detached_anchors"`
	ArityMismatches int64 `json:"arity_mismatches"`

	// Uptime
	StartTime time.Time     `json:"start_time"`
	Uptime    time.Duration `json:"uptime"`
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		engineMetrics: &EngineMetrics{
			StartTime: time.Now(),
		},
		operationCounters: make(map[string]*int64),
		startTime:         time.Now(),
	}
}

// IncrementCompiled records a template compilation (cache miss that succeeded)
func (c *Collector) IncrementCompiled() {
	atomic.AddInt64(&c.engineMetrics.TemplatesCompiled, 1)
}

// IncrementCacheHit records a compiled-template cache hit
func (c *Collector) IncrementCacheHit() {
	atomic.AddInt64(&c.engineMetrics.CacheHits, 1)
}

// IncrementCacheMiss records a compiled-template cache miss
func (c *Collector) IncrementCacheMiss() {
	atomic.AddInt64(&c.engineMetrics.CacheMisses, 1)
}

// IncrementCompileError records a compilation failure
func (c *Collector) IncrementCompileError() {
	atomic.AddInt64(&c.engineMetrics.CompileErrors, 1)
}

// IncrementInstanceCreated records a new template instance
func (c *Collector) IncrementInstanceCreated() {
	atomic.AddInt64(&c.engineMetrics.InstancesCreated, 1)
	currentActive := atomic.AddInt64(&c.engineMetrics.ActiveInstances, 1)

	// Update max concurrent if needed
	for {
		max := atomic.LoadInt64(&c.engineMetrics.MaxConcurrentInstance)
		if currentActive <= max {
			break
		}
		if atomic.CompareAndSwapInt64(&c.engineMetrics.MaxConcurrentInstance, max, currentActive) {
			break
		}
	}
}

// IncrementInstanceRemoved records a removed template instance
func (c *Collector) IncrementInstanceRemoved() {
	atomic.AddInt64(&c.engineMetrics.InstancesRemoved, 1)
	atomic.AddInt64(&c.engineMetrics.ActiveInstances, -1)
}

// IncrementPartApplied records a part receiving a new value
func (c *Collector) IncrementPartApplied() {
	atomic.AddInt64(&c.engineMetrics.PartsApplied, 1)
}

// IncrementPartSkipped records a part skipped because its value did not change
func (c *Collector) IncrementPartSkipped() {
	atomic.AddInt64(&c.engineMetrics.PartsSkipped, 1)
}

// RecordListPass records the outcome of one list reconciliation pass
func (c *Collector) RecordListPass(created, reused, moved, removed int) {
	atomic.AddInt64(&c.engineMetrics.ListItemsCreated, int64(created))
	atomic.AddInt64(&c.engineMetrics.ListItemsReused, int64(reused))
	atomic.AddInt64(&c.engineMetrics.ListItemsMoved, int64(moved))
	atomic.AddInt64(&c.engineMetrics.ListItemsRemoved, int64(removed))
}

// IncrementKeyCollision records two list items sharing a key
func (c *Collector) IncrementKeyCollision() {
	atomic.AddInt64(&c.engineMetrics.KeyCollisions, 1)
}

// IncrementDetachedAnchor records a part operation on a detached anchor
func (c *Collector) IncrementDetachedAnchor() {
	atomic.AddInt64(&c.engineMetrics.DetachedAnchors, 1)
}

// IncrementArityMismatch records an update whose value count differed from the part count
func (c *Collector) IncrementArityMismatch() {
	atomic.AddInt64(&c.engineMetrics.ArityMismatches, 1)
}

// IncrementCustomCounter increments a custom named counter
func (c *Collector) IncrementCustomCounter(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if counter, exists := c.operationCounters[name]; exists {
		atomic.AddInt64(counter, 1)
	} else {
		var newCounter int64 = 1
		c.operationCounters[name] = &newCounter
	}
}

// IncrementBoundedCounter increments a custom counter, but once limit distinct
// counters exist any new name is counted under overflow instead
func (c *Collector) IncrementBoundedCounter(name, overflow string, limit int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.operationCounters[name]; !exists && len(c.operationCounters) >= limit {
		name = overflow
	}
	if counter, exists := c.operationCounters[name]; exists {
		atomic.AddInt64(counter, 1)
	} else {
		var newCounter int64 = 1
		c.operationCounters[name] = &newCounter
	}
}

// GetMetrics returns a snapshot of the current metrics
func (c *Collector) GetMetrics() EngineMetrics {
	c.mu.RLock()
	start := c.startTime
	c.mu.RUnlock()

	return EngineMetrics{
		TemplatesCompiled:     atomic.LoadInt64(&c.engineMetrics.TemplatesCompiled),
		CacheHits:             atomic.LoadInt64(&c.engineMetrics.CacheHits),
		CacheMisses:           atomic.LoadInt64(&c.engineMetrics.CacheMisses),
		CompileErrors:         atomic.LoadInt64(&c.engineMetrics.CompileErrors),
		InstancesCreated:      atomic.LoadInt64(&c.engineMetrics.InstancesCreated),
		InstancesRemoved:      atomic.LoadInt64(&c.engineMetrics.InstancesRemoved),
		ActiveInstances:       atomic.LoadInt64(&c.engineMetrics.ActiveInstances),
		MaxConcurrentInstance: atomic.LoadInt64(&c.engineMetrics.MaxConcurrentInstance),
		PartsApplied:          atomic.LoadInt64(&c.engineMetrics.PartsApplied),
		PartsSkipped:          atomic.LoadInt64(&c.engineMetrics.PartsSkipped),
		ListItemsCreated:      atomic.LoadInt64(&c.engineMetrics.ListItemsCreated),
		ListItemsReused:       atomic.LoadInt64(&c.engineMetrics.ListItemsReused),
		ListItemsMoved:        atomic.LoadInt64(&c.engineMetrics.ListItemsMoved),
		ListItemsRemoved:      atomic.LoadInt64(&c.engineMetrics.ListItemsRemoved),
		KeyCollisions:         atomic.LoadInt64(&c.engineMetrics.KeyCollisions),
		DetachedAnchors:       atomic.LoadInt64(&c.engineMetrics.DetachedAnchors),
		ArityMismatches:       atomic.LoadInt64(&c.engineMetrics.ArityMismatches),
		StartTime:             start,
		Uptime:                time.Since(start),
	}
}

// GetCustomCounters returns all custom counters
func (c *Collector) GetCustomCounters() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]int64)
	for name, counter := range c.operationCounters {
		result[name] = atomic.LoadInt64(counter)
	}
	return result
}

// Reset resets all metrics to zero
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.engineMetrics
	for _, field := range []*int64{
		&m.TemplatesCompiled, &m.CacheHits, &m.CacheMisses, &m.CompileErrors,
		&m.InstancesCreated, &m.InstancesRemoved, &m.ActiveInstances, &m.MaxConcurrentInstance,
		&m.PartsApplied, &m.PartsSkipped,
		&m.ListItemsCreated, &m.ListItemsReused, &m.ListItemsMoved, &m.ListItemsRemoved,
		&m.KeyCollisions, &m.DetachedAnchors, &m.ArityMismatches,
	} {
		atomic.StoreInt64(field, 0)
	}

	// Reset custom counters
	c.operationCounters = make(map[string]*int64)

	// Reset start time
	c.startTime = time.Now()
}

// GetCacheHitRate returns the compiled-template cache hit rate in percent
func (c *Collector) GetCacheHitRate() float64 {
	hits := atomic.LoadInt64(&c.engineMetrics.CacheHits)
	misses := atomic.LoadInt64(&c.engineMetrics.CacheMisses)

	total := hits + misses
	if total == 0 {
		return 0.0
	}

	return float64(hits) / float64(total) * 100.0
}

// GetSkipRate returns the share of part updates skipped as unchanged, in percent
func (c *Collector) GetSkipRate() float64 {
	applied := atomic.LoadInt64(&c.engineMetrics.PartsApplied)
	skipped := atomic.LoadInt64(&c.engineMetrics.PartsSkipped)

	total := applied + skipped
	if total == 0 {
		return 0.0
	}

	return float64(skipped) / float64(total) * 100.0
}
