package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/phrazzld/chemlab/internal/domain"
	"github.com/phrazzld/chemlab/internal/events"
	"github.com/phrazzld/chemlab/internal/generation"
)

// SearchMolecule asks the oracle for the structure of the named molecule and
// makes it the current structure.
func (l *Lab) SearchMolecule(ctx context.Context, name string) (domain.Structure, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Structure{}, fmt.Errorf("%w: molecule name is required", domain.ErrValidation)
	}

	token, err := l.begin(familyMolecule)
	if err != nil {
		return domain.Structure{}, err
	}

	structure, err := l.gen.GenerateStructure(ctx, name)
	if err == nil {
		structure, err = acceptStructure(structure)
	}
	if err != nil {
		l.abort(familyMolecule)
		l.logger.WarnContext(ctx, "structure search failed", "query", name, "error", err)
		return domain.Structure{}, err
	}

	if err := l.commitStructure(familyMolecule, token, structure); err != nil {
		l.logger.InfoContext(ctx, "discarding stale structure", "query", name)
		return domain.Structure{}, err
	}

	if err := events.Emit(ctx, l.emitter, events.TypeMoleculeGenerated, events.MoleculeGeneratedPayload{
		Query: name,
		Name:  structure.Name,
	}); err != nil {
		l.logger.ErrorContext(ctx, "failed to emit molecule event", "error", err)
	}

	return structure.Clone(), nil
}

// AnalyzeStructure re-annotates a hand-edited structure and makes the result
// the current structure. The edited structure must itself be well formed.
func (l *Lab) AnalyzeStructure(ctx context.Context, edited domain.Structure) (domain.Structure, error) {
	edited, err := domain.NewStructure(edited)
	if err != nil {
		return domain.Structure{}, err
	}

	token, err := l.begin(familyMolecule)
	if err != nil {
		return domain.Structure{}, err
	}

	analyzed, err := l.gen.AnalyzeStructure(ctx, edited)
	if err == nil {
		analyzed, err = acceptStructure(analyzed)
	}
	if err != nil {
		l.abort(familyMolecule)
		l.logger.WarnContext(ctx, "structure analysis failed", "molecule", edited.Name, "error", err)
		return domain.Structure{}, err
	}

	if err := l.commitStructure(familyMolecule, token, analyzed); err != nil {
		return domain.Structure{}, err
	}
	return analyzed.Clone(), nil
}

// ApplyReaction treats the current structure with reagent under conditions
// and replaces it with the product. On any failure the current structure is
// left as it was.
func (l *Lab) ApplyReaction(
	ctx context.Context,
	reagent string,
	conditions domain.ConditionSet,
) (domain.Structure, error) {
	l.mu.Lock()
	if l.current == nil {
		l.mu.Unlock()
		return domain.Structure{}, ErrNoStructure
	}
	current := l.current.Clone()
	l.mu.Unlock()

	token, err := l.begin(familyMolecule)
	if err != nil {
		return domain.Structure{}, err
	}

	committed := false
	commit := func(product domain.Structure) error {
		committed = true
		if err := l.commitStructure(familyMolecule, token, product); err != nil {
			l.logger.InfoContext(ctx, "discarding stale reaction product", "reagent", reagent)
			return err
		}
		return nil
	}

	product, err := l.transformer.Apply(ctx, current, reagent, conditions, commit)
	if err != nil {
		if !committed {
			l.abort(familyMolecule)
		}
		return domain.Structure{}, err
	}
	return product.Clone(), nil
}

// acceptStructure passes an oracle structure through the validation gate
// before it can become the current structure.
func acceptStructure(s domain.Structure) (domain.Structure, error) {
	accepted, err := domain.NewStructure(s)
	if err != nil {
		return domain.Structure{}, fmt.Errorf("%w: %w", generation.ErrInvalidResponse, err)
	}
	return accepted, nil
}

// commitStructure installs s as the current structure if token is still
// current for f.
func (l *Lab) commitStructure(f family, token uint64, s domain.Structure) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.finishLocked(f, token); err != nil {
		return err
	}
	clone := s.Clone()
	l.current = &clone
	return nil
}

// CurrentStructure returns a copy of the displayed structure.
func (l *Lab) CurrentStructure() (domain.Structure, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil {
		return domain.Structure{}, ErrNoStructure
	}
	return l.current.Clone(), nil
}

// SaveCurrent archives the displayed structure.
func (l *Lab) SaveCurrent(ctx context.Context) (domain.ArchiveItem, error) {
	current, err := l.CurrentStructure()
	if err != nil {
		return domain.ArchiveItem{}, err
	}

	item := l.archive.Save(current)
	l.logger.InfoContext(ctx, "structure archived", "archive_id", item.ID, "molecule", item.Name)
	return item, nil
}

// ListArchive returns the archived structures, newest first.
func (l *Lab) ListArchive() []domain.ArchiveItem {
	return l.archive.List()
}

// RemoveArchived deletes an archived structure. Unknown ids are ignored.
func (l *Lab) RemoveArchived(id string) {
	l.archive.Remove(id)
}

// LoadArchived makes an archived structure the current one. Any structure
// request still in flight is discarded when it returns.
func (l *Lab) LoadArchived(ctx context.Context, id string) (domain.Structure, error) {
	item, err := l.archive.Get(id)
	if err != nil {
		return domain.Structure{}, err
	}

	l.mu.Lock()
	l.invalidateLocked(familyMolecule)
	structure := item.Data.Clone()
	l.current = &structure
	l.mu.Unlock()

	l.logger.InfoContext(ctx, "structure loaded from archive", "archive_id", id, "molecule", item.Name)
	return item.Data, nil
}
