package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/phrazzld/chemlab/internal/curriculum"
	"github.com/phrazzld/chemlab/internal/domain"
)

// SelectSyllabus switches to the named syllabus. Module progress is reset,
// the study guide is cleared and in-flight quiz and guide requests become
// stale. Stats are kept.
func (l *Lab) SelectSyllabus(ctx context.Context, name string) ([]domain.Module, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.progression.SelectSyllabus(name); err != nil {
		return nil, err
	}
	l.invalidateLocked(familyQuiz)
	l.invalidateLocked(familyStudyGuide)
	l.guide = nil

	l.logger.InfoContext(ctx, "syllabus selected", "syllabus", name)
	return l.progression.Modules(), nil
}

// Syllabus returns the selected syllabus name.
func (l *Lab) Syllabus() string {
	return l.progression.Syllabus()
}

// Modules returns the selected syllabus's modules with their statuses.
func (l *Lab) Modules() []domain.Module {
	return l.progression.Modules()
}

// Syllabi lists every available syllabus with initial statuses.
func (l *Lab) Syllabi() []curriculum.Syllabus {
	return l.catalog.Syllabi()
}

// CompletionPercent returns the share of completed modules in the selected
// syllabus.
func (l *Lab) CompletionPercent() int {
	return l.progression.CompletionPercent()
}

// GenerateStudyGuide fetches a revision guide. With a moduleID the module
// must be unlocked and its topic is used unless topic is set.
func (l *Lab) GenerateStudyGuide(ctx context.Context, moduleID, topic string) (domain.StudyGuide, error) {
	topic = strings.TrimSpace(topic)
	moduleID = strings.TrimSpace(moduleID)

	if moduleID != "" {
		module, err := l.unlockedModule(moduleID)
		if err != nil {
			return domain.StudyGuide{}, err
		}
		if topic == "" {
			topic = module.Topic
		}
	}
	if topic == "" {
		return domain.StudyGuide{}, fmt.Errorf("%w: topic or module is required", domain.ErrValidation)
	}

	token, err := l.begin(familyStudyGuide)
	if err != nil {
		return domain.StudyGuide{}, err
	}

	guide, err := l.gen.GenerateStudyGuide(ctx, topic)
	if err != nil {
		l.abort(familyStudyGuide)
		l.logger.WarnContext(ctx, "study guide generation failed", "topic", topic, "error", err)
		return domain.StudyGuide{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.finishLocked(familyStudyGuide, token); err != nil {
		return domain.StudyGuide{}, err
	}
	l.guide = &guide
	return guide, nil
}

// StudyGuide returns the last accepted study guide.
func (l *Lab) StudyGuide() (domain.StudyGuide, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.guide == nil {
		return domain.StudyGuide{}, false
	}
	return *l.guide, true
}

// ReactionSteps fetches a step-by-step mechanism walkthrough for a described
// reaction.
func (l *Lab) ReactionSteps(ctx context.Context, description string) (domain.ReactionSteps, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return domain.ReactionSteps{}, fmt.Errorf("%w: reaction description is required", domain.ErrValidation)
	}

	token, err := l.begin(familyReactionSteps)
	if err != nil {
		return domain.ReactionSteps{}, err
	}

	steps, err := l.gen.GenerateReactionSteps(ctx, description)
	if err != nil {
		l.abort(familyReactionSteps)
		l.logger.WarnContext(ctx, "reaction steps generation failed", "error", err)
		return domain.ReactionSteps{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.finishLocked(familyReactionSteps, token); err != nil {
		return domain.ReactionSteps{}, err
	}
	return steps, nil
}
