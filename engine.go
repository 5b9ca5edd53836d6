// Package livepart is a declarative templating and incremental-update engine
// for *html.Node trees. A template's static shape is compiled once; every
// render pass recomputes only the dynamic values and applies them to the live
// tree part by part.
package livepart

import (
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/livefir/livepart/internal/compiler"
	"github.com/livefir/livepart/internal/dom"
	lperrors "github.com/livefir/livepart/internal/errors"
	"github.com/livefir/livepart/internal/instance"
	"github.com/livefir/livepart/internal/marker"
	"github.com/livefir/livepart/internal/memory"
	"github.com/livefir/livepart/internal/metrics"
	"github.com/livefir/livepart/internal/part"
	"github.com/livefir/livepart/internal/store"
)

// Instance is one live rendering of a template.
type Instance = instance.Instance

// CacheStats describes the compiled template cache.
type CacheStats = compiler.Stats

// Metrics is a snapshot of the engine counters.
type Metrics = metrics.EngineMetrics

// Engine compiles templates, renders them into clones and keeps rendered
// instances up to date. An Engine is safe for concurrent Render calls; a
// single instance must not be updated concurrently with itself.
type Engine struct {
	config   Config
	protocol *marker.Protocol
	host     *dom.Host
	compiler *compiler.Compiler
	store    *store.Store
	metrics  *metrics.Collector
	memory   *memory.Manager
	env      *part.Env
	logger   *slog.Logger
	helpers  *helpers
}

// New creates an engine with the given options.
func New(opts ...Option) (*Engine, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	protocol, err := cfg.protocol()
	if err != nil {
		return nil, lperrors.InvalidConfig(err, "invalid marker protocol")
	}

	logger := cfg.logger()
	collector := metrics.NewCollector()
	budget := cfg.Cache
	mem := memory.NewManager(&budget)
	host := dom.NewHost()

	e := &Engine{
		config:   cfg,
		protocol: protocol,
		host:     host,
		store:    store.New(),
		metrics:  collector,
		memory:   mem,
		logger:   logger,
		compiler: compiler.New(compiler.Options{
			Protocol:          protocol,
			ContainerTag:      cfg.ContainerTag,
			FragmentContext:   cfg.FragmentContext,
			KeyAttribute:      cfg.KeyAttribute,
			CompactWhitespace: cfg.CompactWhitespace,
			Memory:            mem,
			Metrics:           collector,
			Logger:            logger,
		}),
		env: &part.Env{
			Host:         host,
			Logger:       logger,
			Metrics:      collector,
			Tracer:       cfg.Tracer,
			KeyAttribute: cfg.KeyAttribute,
		},
	}

	e.helpers = &helpers{e: e}

	logger.Debug("engine created",
		"component", "engine",
		"node_marker", protocol.Node,
		"list_marker", protocol.List,
		"key_attribute", cfg.KeyAttribute)

	return e, nil
}

// Render compiles t (or reuses its cached form), clones it and records values
// against the clone. The returned root is handed to a value slot, Instantiate
// or Root.Render; its structure must not be changed by the caller.
func (e *Engine) Render(t *Template, values ...any) (*html.Node, error) {
	compiled, err := e.compiler.Compile(t)
	if err != nil {
		e.logger.Error("template compilation failed", "component", "engine", "template", t.ID(), "error", err)
		return nil, err
	}

	root := compiled.Clone()
	e.store.Set(root, compiled, values)
	return root, nil
}

// Compile returns the compiled form of t without rendering it.
func (e *Engine) Compile(t *Template) (*compiler.Compiled, error) {
	return e.compiler.Compile(t)
}

// Instantiate builds a live instance over a root returned by Render and
// applies the values it was rendered with.
func (e *Engine) Instantiate(root *html.Node) (*Instance, error) {
	entry, ok := e.store.Lookup(root)
	if !ok {
		return nil, lperrors.UnknownNode("instantiate")
	}
	inst, err := instance.New(root, entry.Compiled, e.protocol, e.helpers)
	if err != nil {
		return nil, err
	}
	inst.Update(entry.Values)
	return inst, nil
}

// Update applies values to an instance, skipping values identical to the
// previous pass.
func (e *Engine) Update(inst *Instance, values ...any) {
	inst.Update(values)
	e.store.Set(inst.Root(), inst.Compiled(), values)
}

// GetValues returns the values a rendered root was last recorded with.
func (e *Engine) GetValues(root *html.Node) ([]any, bool) {
	return e.store.Values(root)
}

// Dispatch fires an event of type typ at target and lets it bubble. It
// returns the number of listeners invoked.
func (e *Engine) Dispatch(target *html.Node, typ string, detail any) int {
	e.metrics.IncrementBoundedCounter(dispatchPrefix+typ, dispatchPrefix+OtherEvents, maxDispatchTypes)
	return e.host.Dispatch(target, &dom.Event{Type: typ, Detail: detail})
}

// Host returns the host that owns listeners, properties and mutation
// observers of every tree this engine renders.
func (e *Engine) Host() *dom.Host {
	return e.host
}

// Metrics returns a snapshot of the engine counters.
func (e *Engine) Metrics() Metrics {
	return e.metrics.GetMetrics()
}

const (
	dispatchPrefix   = "dispatch."
	maxDispatchTypes = 32
)

// OtherEvents is the DispatchCounts entry that collects event types seen after
// the number of distinct types reached its limit.
const OtherEvents = "*"

// DispatchCounts returns the number of dispatched events per event type.
func (e *Engine) DispatchCounts() map[string]int64 {
	counts := make(map[string]int64)
	for name, n := range e.metrics.GetCustomCounters() {
		if typ, ok := strings.CutPrefix(name, dispatchPrefix); ok {
			counts[typ] = n
		}
	}
	return counts
}

// CacheHitRate returns the compiled cache hit rate in percent.
func (e *Engine) CacheHitRate() float64 {
	return e.metrics.GetCacheHitRate()
}

// SkipRate returns the share of part updates skipped as unchanged, in percent.
func (e *Engine) SkipRate() float64 {
	return e.metrics.GetSkipRate()
}

// ResetMetrics zeroes the engine counters. Cache contents are kept.
func (e *Engine) ResetMetrics() {
	e.metrics.Reset()
}

// CacheStats returns compiled cache statistics.
func (e *Engine) CacheStats() CacheStats {
	return e.compiler.Stats()
}

// MemoryStatus returns the compiled cache budget status.
func (e *Engine) MemoryStatus() memory.Status {
	return e.memory.GetMemoryStatus()
}

// LargestTemplates returns up to limit compiled templates ordered by
// estimated size.
func (e *Engine) LargestTemplates(limit int) []memory.TemplateMemoryInfo {
	return e.memory.GetTopTemplates(limit)
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.config
}
