package memory

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Level is the budget state of the compiled-template cache.
type Level string

const (
	LevelOK       Level = "OK"
	LevelWarning  Level = "WARNING"
	LevelCritical Level = "CRITICAL"
)

// Manager tracks the estimated size of compiled templates against a budget.
// The compiled cache never evicts, so the manager only reports pressure.
type Manager struct {
	maxMemoryBytes   int64
	currentUsage     int64
	templateUsage    map[string]int64 // template ID -> estimated size
	memoryThresholds *Thresholds
	level            Level
	mu               sync.RWMutex
	config           *Config
}

// Config defines memory manager configuration
type Config struct {
	MaxMemoryKB          int `yaml:"max_kb" validate:"gt=0"`
	WarningThresholdPct  int `yaml:"warning_pct" validate:"gt=0,lte=100"`
	CriticalThresholdPct int `yaml:"critical_pct" validate:"gtefield=WarningThresholdPct,lte=100"`
}

// Thresholds defines memory usage thresholds
type Thresholds struct {
	WarningBytes  int64 // Warning threshold in bytes
	CriticalBytes int64 // Critical threshold in bytes
}

// DefaultConfig returns the default budget
func DefaultConfig() *Config {
	return &Config{
		MaxMemoryKB:          8 * 1024, // 8MB of compiled markup
		WarningThresholdPct:  75,
		CriticalThresholdPct: 90,
	}
}

// NewManager creates a new memory manager
func NewManager(config *Config) *Manager {
	if config == nil {
		config = DefaultConfig()
	}

	maxBytes := int64(config.MaxMemoryKB) * 1024

	return &Manager{
		maxMemoryBytes: maxBytes,
		templateUsage:  make(map[string]int64),
		config:         config,
		level:          LevelOK,
		memoryThresholds: &Thresholds{
			WarningBytes:  (maxBytes * int64(config.WarningThresholdPct)) / 100,
			CriticalBytes: (maxBytes * int64(config.CriticalThresholdPct)) / 100,
		},
	}
}

// Record accounts a compiled template. It returns the budget level after the
// record and whether the level changed. Recording the same ID twice replaces
// the earlier size.
func (m *Manager) Record(templateID string, size int64) (Level, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, exists := m.templateUsage[templateID]; exists {
		atomic.AddInt64(&m.currentUsage, -old)
	}
	m.templateUsage[templateID] = size
	usage := atomic.AddInt64(&m.currentUsage, size)

	next := m.levelFor(usage)
	changed := next != m.level
	m.level = next
	return next, changed
}

func (m *Manager) levelFor(usage int64) Level {
	switch {
	case usage >= m.memoryThresholds.CriticalBytes:
		return LevelCritical
	case usage >= m.memoryThresholds.WarningBytes:
		return LevelWarning
	default:
		return LevelOK
	}
}

// GetMemoryStatus returns current memory usage status
func (m *Manager) GetMemoryStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	currentUsage := atomic.LoadInt64(&m.currentUsage)

	status := Status{
		CurrentUsage:      currentUsage,
		MaxMemory:         m.maxMemoryBytes,
		Level:             m.level,
		Templates:         len(m.templateUsage),
		WarningThreshold:  m.memoryThresholds.WarningBytes,
		CriticalThreshold: m.memoryThresholds.CriticalBytes,
	}
	if m.maxMemoryBytes > 0 {
		status.UsagePercentage = float64(currentUsage) / float64(m.maxMemoryBytes) * 100
	}
	if len(m.templateUsage) > 0 {
		status.AverageTemplateSize = currentUsage / int64(len(m.templateUsage))
	}

	return status
}

// Status contains memory usage information
type Status struct {
	CurrentUsage        int64   `json:"current_usage"`
	MaxMemory           int64   `json:"max_memory"`
	UsagePercentage     float64 `json:"usage_percentage"`
	Level               Level   `json:"level"`
	Templates           int     `json:"templates"`
	AverageTemplateSize int64   `json:"average_template_size"`
	WarningThreshold    int64   `json:"warning_threshold"`
	CriticalThreshold   int64   `json:"critical_threshold"`
}

// TemplateMemoryInfo contains the size of one compiled template
type TemplateMemoryInfo struct {
	TemplateID string `json:"template_id"`
	Usage      int64  `json:"usage"`
}

// GetTopTemplates returns the largest compiled templates
func (m *Manager) GetTopTemplates(limit int) []TemplateMemoryInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	templates := make([]TemplateMemoryInfo, 0, len(m.templateUsage))
	for id, usage := range m.templateUsage {
		templates = append(templates, TemplateMemoryInfo{TemplateID: id, Usage: usage})
	}
	sort.Slice(templates, func(i, j int) bool {
		if templates[i].Usage == templates[j].Usage {
			return templates[i].TemplateID < templates[j].TemplateID
		}
		return templates[i].Usage > templates[j].Usage
	})

	if limit > len(templates) {
		limit = len(templates)
	}
	return templates[:limit]
}
