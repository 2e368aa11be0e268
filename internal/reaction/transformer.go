// Package reaction applies reagents to structures through the content oracle.
package reaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/phrazzld/chemlab/internal/domain"
	"github.com/phrazzld/chemlab/internal/events"
)

var (
	// ErrReactionFailed wraps every Apply failure. The caller's structure is
	// never modified.
	ErrReactionFailed = errors.New("reaction failed")

	// ErrReactionInProgress is returned when Apply is called while another
	// Apply on the same transformer is waiting for the oracle.
	ErrReactionInProgress = errors.New("reaction already in progress")
)

// Synthesizer produces reaction products. generation.Generator satisfies it.
type Synthesizer interface {
	ApplyReaction(
		ctx context.Context,
		structure domain.Structure,
		reagent string,
		conditions domain.ConditionSet,
	) (domain.Structure, error)
}

// CommitFunc installs an accepted product wherever the caller keeps its
// current structure. A non-nil error means the product was not installed.
type CommitFunc func(product domain.Structure) error

// Transformer turns a structure into its reaction product. One Apply runs at
// a time per transformer.
type Transformer struct {
	synth   Synthesizer
	emitter events.EventEmitter
	logger  *slog.Logger

	mu       sync.Mutex
	inFlight bool
}

// NewTransformer creates a transformer. emitter receives a reaction.applied
// event per committed product and may be nil.
func NewTransformer(synth Synthesizer, emitter events.EventEmitter, logger *slog.Logger) *Transformer {
	return &Transformer{
		synth:   synth,
		emitter: emitter,
		logger:  logger.With("component", "reaction_transformer"),
	}
}

// Apply asks the oracle for the product of treating current with reagent
// under conditions. The product is accepted only if it passes structure
// validation; otherwise an error wrapping ErrReactionFailed is returned.
//
// An accepted product is handed to commit when commit is non-nil. The
// reaction counts, and reaction.applied is emitted, only once commit
// succeeds; a commit error is returned unchanged.
func (t *Transformer) Apply(
	ctx context.Context,
	current domain.Structure,
	reagent string,
	conditions domain.ConditionSet,
	commit CommitFunc,
) (domain.Structure, error) {
	reagent = strings.TrimSpace(reagent)
	if reagent == "" {
		return domain.Structure{}, fmt.Errorf("%w: %w: reagent is required", ErrReactionFailed, domain.ErrValidation)
	}
	if err := conditions.Validate(); err != nil {
		return domain.Structure{}, fmt.Errorf("%w: %w", ErrReactionFailed, err)
	}
	if err := current.Validate(); err != nil {
		return domain.Structure{}, fmt.Errorf("%w: reactant: %w", ErrReactionFailed, err)
	}

	t.mu.Lock()
	if t.inFlight {
		t.mu.Unlock()
		return domain.Structure{}, ErrReactionInProgress
	}
	t.inFlight = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.inFlight = false
		t.mu.Unlock()
	}()

	product, err := t.synth.ApplyReaction(ctx, current.Clone(), reagent, conditions)
	if err != nil {
		t.logger.WarnContext(ctx, "reaction synthesis failed", "reagent", reagent, "error", err)
		return domain.Structure{}, fmt.Errorf("%w: %w", ErrReactionFailed, err)
	}

	accepted, err := domain.NewStructure(product)
	if err != nil {
		t.logger.WarnContext(ctx, "reaction product rejected", "reagent", reagent, "error", err)
		return domain.Structure{}, fmt.Errorf("%w: %w", ErrReactionFailed, err)
	}

	if commit != nil {
		if err := commit(accepted.Clone()); err != nil {
			t.logger.InfoContext(ctx, "reaction product not committed", "reagent", reagent, "error", err)
			return domain.Structure{}, err
		}
	}

	t.logger.InfoContext(ctx, "reaction applied",
		"reactant", current.Name,
		"reagent", reagent,
		"product", accepted.Name)

	if t.emitter != nil {
		err := events.Emit(ctx, t.emitter, events.TypeReactionApplied, events.ReactionAppliedPayload{
			Reagent: reagent,
			Product: accepted.Name,
		})
		if err != nil {
			t.logger.ErrorContext(ctx, "failed to emit reaction event", "error", err)
		}
	}

	return accepted, nil
}
