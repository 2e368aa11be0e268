package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/phrazzld/chemlab/internal/domain"
	"github.com/phrazzld/chemlab/internal/quiz"
)

// StartQuiz begins a new quiz attempt. When moduleID is set the module must
// be unlocked in the selected syllabus, its topic is used if topic is empty,
// and a passing result completes it. The previous attempt is replaced only
// once the new one has started.
func (l *Lab) StartQuiz(ctx context.Context, topic, moduleID string) (quiz.Snapshot, error) {
	topic = strings.TrimSpace(topic)
	moduleID = strings.TrimSpace(moduleID)

	if moduleID != "" {
		module, err := l.unlockedModule(moduleID)
		if err != nil {
			return quiz.Snapshot{}, err
		}
		if topic == "" {
			topic = module.Topic
		}
	}
	if topic == "" {
		return quiz.Snapshot{}, fmt.Errorf("%w: topic or module is required", domain.ErrValidation)
	}

	token, err := l.begin(familyQuiz)
	if err != nil {
		return quiz.Snapshot{}, err
	}

	engine := quiz.NewEngine(l.gen, l.emitter, l.logger)
	snap, err := engine.Start(ctx, topic, moduleID)
	if err != nil {
		l.abort(familyQuiz)
		return quiz.Snapshot{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.finishLocked(familyQuiz, token); err != nil {
		l.logger.InfoContext(ctx, "discarding stale quiz", "quiz_id", engine.ID(), "topic", topic)
		return quiz.Snapshot{}, err
	}
	l.quiz = engine
	return snap, nil
}

// AnswerQuizOption answers the current multiple choice question.
func (l *Lab) AnswerQuizOption(optionIndex int) (quiz.Feedback, error) {
	engine, err := l.currentQuiz()
	if err != nil {
		return quiz.Feedback{}, err
	}
	return engine.AnswerMCQ(optionIndex)
}

// AnswerQuizText answers the current fill-in-the-blank or short answer
// question.
func (l *Lab) AnswerQuizText(text string) (quiz.Feedback, error) {
	engine, err := l.currentQuiz()
	if err != nil {
		return quiz.Feedback{}, err
	}
	return engine.AnswerText(text)
}

// NextQuestion advances the current attempt.
func (l *Lab) NextQuestion(ctx context.Context) (quiz.Snapshot, error) {
	engine, err := l.currentQuiz()
	if err != nil {
		return quiz.Snapshot{}, err
	}
	return engine.Next(ctx)
}

// QuizSnapshot returns the state of the current attempt.
func (l *Lab) QuizSnapshot() (quiz.Snapshot, error) {
	engine, err := l.currentQuiz()
	if err != nil {
		return quiz.Snapshot{}, err
	}
	return engine.Snapshot(), nil
}

func (l *Lab) currentQuiz() (*quiz.Engine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.quiz == nil {
		return nil, ErrNoQuiz
	}
	return l.quiz, nil
}

// unlockedModule looks moduleID up in the selected syllabus and rejects
// locked modules.
func (l *Lab) unlockedModule(moduleID string) (domain.Module, error) {
	module, ok := l.progression.Module(moduleID)
	if !ok {
		return domain.Module{}, fmt.Errorf("%w: %q", ErrModuleNotFound, moduleID)
	}
	if module.Status == domain.ModuleLocked {
		return domain.Module{}, fmt.Errorf("%w: %q", ErrModuleLocked, moduleID)
	}
	return module, nil
}
