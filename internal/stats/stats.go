// Package stats aggregates the process-wide learning counters.
package stats

import (
	"context"
	"fmt"
	"sync"

	"github.com/phrazzld/chemlab/internal/domain"
	"github.com/phrazzld/chemlab/internal/events"
	"github.com/phrazzld/chemlab/internal/platform/metrics"
)

// Aggregator owns a domain.UserStats value. Counters only grow.
type Aggregator struct {
	mu      sync.RWMutex
	stats   domain.UserStats
	metrics *metrics.Collector
}

// NewAggregator creates an aggregator with zeroed counters. collector may be
// nil.
func NewAggregator(collector *metrics.Collector) *Aggregator {
	return &Aggregator{metrics: collector}
}

// RecordQuiz counts a completed quiz and adds its percentage to the total.
func (a *Aggregator) RecordQuiz(percentage int) {
	a.mu.Lock()
	a.stats.QuizzesTaken++
	a.stats.TotalScore += percentage
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.QuizzesCompleted.Inc()
	}
}

// RecordReaction counts a successful reaction.
func (a *Aggregator) RecordReaction() {
	a.mu.Lock()
	a.stats.ReactionsMastered++
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.ReactionsApplied.Inc()
	}
}

// RecordMolecule counts a successful structure search.
func (a *Aggregator) RecordMolecule() {
	a.mu.Lock()
	a.stats.MoleculesGenerated++
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.MoleculesGenerated.Inc()
	}
}

// Snapshot returns the current counters.
func (a *Aggregator) Snapshot() domain.UserStats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stats
}

// HandleEvent implements events.EventHandler. It records quiz completions,
// applied reactions and generated molecules; other events are ignored.
func (a *Aggregator) HandleEvent(ctx context.Context, event *events.Event) error {
	switch event.Type {
	case events.TypeQuizCompleted:
		var payload events.QuizCompletedPayload
		if err := event.UnmarshalPayload(&payload); err != nil {
			return fmt.Errorf("decoding %s payload: %w", event.Type, err)
		}
		a.RecordQuiz(payload.Percentage)
	case events.TypeReactionApplied:
		a.RecordReaction()
	case events.TypeMoleculeGenerated:
		a.RecordMolecule()
	}
	return nil
}
