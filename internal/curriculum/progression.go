package curriculum

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/phrazzld/chemlab/internal/domain"
	"github.com/phrazzld/chemlab/internal/events"
	"github.com/phrazzld/chemlab/internal/platform/metrics"
)

// Progression tracks module statuses for the selected syllabus. The module
// list is replaced wholesale on every change, so slices handed out earlier
// never observe later transitions.
type Progression struct {
	catalog *Catalog
	logger  *slog.Logger
	metrics *metrics.Collector

	mu       sync.RWMutex
	syllabus string
	modules  []domain.Module
}

// Option configures a Progression.
type Option func(*Progression)

// WithMetrics counts applied module completions in c.
func WithMetrics(c *metrics.Collector) Option {
	return func(p *Progression) {
		p.metrics = c
	}
}

// NewProgression starts progression on the named syllabus.
func NewProgression(catalog *Catalog, syllabus string, logger *slog.Logger, opts ...Option) (*Progression, error) {
	p := &Progression{
		catalog: catalog,
		logger:  logger.With("component", "curriculum"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.SelectSyllabus(syllabus); err != nil {
		return nil, err
	}
	return p, nil
}

// SelectSyllabus replaces the module list with the named catalog's modules,
// the first active and the rest locked. Prior progress is discarded.
func (p *Progression) SelectSyllabus(name string) error {
	modules, err := p.catalog.Modules(name)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.syllabus = name
	p.modules = modules
	p.mu.Unlock()

	p.logger.Info("syllabus selected", "syllabus", name, "module_count", len(modules))
	return nil
}

// Syllabus returns the selected syllabus name.
func (p *Progression) Syllabus() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.syllabus
}

// Modules returns a copy of the current module list.
func (p *Progression) Modules() []domain.Module {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return cloneModules(p.modules)
}

// Module returns a copy of the module with id.
func (p *Progression) Module(id string) (domain.Module, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, m := range p.modules {
		if m.ID == id {
			return m.Clone(), true
		}
	}
	return domain.Module{}, false
}

// OnQuizUnlockEvent completes the module with moduleID at percentage and
// activates the module after it if that one is still locked. It reports
// whether anything changed. Unknown ids and results below domain.PassPercentage
// are no-ops. Completing an already completed module overwrites its score.
func (p *Progression) OnQuizUnlockEvent(moduleID string, percentage int) bool {
	if percentage < domain.PassPercentage {
		return false
	}

	p.mu.Lock()
	idx := -1
	for i, m := range p.modules {
		if m.ID == moduleID {
			idx = i
			break
		}
	}
	if idx < 0 {
		syllabus := p.syllabus
		p.mu.Unlock()
		p.logger.Debug("unlock event for unknown module ignored",
			"module_id", moduleID,
			"syllabus", syllabus)
		return false
	}

	next := cloneModules(p.modules)
	score := percentage
	next[idx].Status = domain.ModuleCompleted
	next[idx].Score = &score
	if idx+1 < len(next) && next[idx+1].Status == domain.ModuleLocked {
		next[idx+1].Status = domain.ModuleActive
	}
	p.modules = next
	p.mu.Unlock()

	p.logger.Info("module completed", "module_id", moduleID, "percentage", percentage)
	if p.metrics != nil {
		p.metrics.ModulesCompleted.Inc()
	}
	return true
}

// CompletionPercent returns the rounded share of completed modules.
func (p *Progression) CompletionPercent() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.modules) == 0 {
		return 0
	}
	completed := 0
	for _, m := range p.modules {
		if m.Status == domain.ModuleCompleted {
			completed++
		}
	}
	return int(math.Round(float64(completed) / float64(len(p.modules)) * 100))
}

// HandleEvent implements events.EventHandler for module.unlock events.
func (p *Progression) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeModuleUnlock {
		return nil
	}

	var payload events.ModuleUnlockPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("decoding %s payload: %w", event.Type, err)
	}
	p.OnQuizUnlockEvent(payload.ModuleID, payload.Percentage)
	return nil
}

func cloneModules(src []domain.Module) []domain.Module {
	out := make([]domain.Module, len(src))
	for i, m := range src {
		out[i] = m.Clone()
	}
	return out
}
