// Package quiz implements the quiz attempt state machine: question
// generation, at-most-once scoring per question and completion reporting.
package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/chemlab/internal/domain"
	"github.com/phrazzld/chemlab/internal/events"
)

// State is the coarse lifecycle state of an attempt.
type State string

// Attempt states.
const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// Phase refines StateInProgress.
type Phase string

// In-progress phases. Phase is empty outside StateInProgress.
const (
	PhaseAwaitingAnswer     Phase = "awaiting_answer"
	PhaseShowingExplanation Phase = "showing_explanation"
)

// QuestionSource supplies the question list for a topic.
// generation.Generator satisfies it.
type QuestionSource interface {
	GenerateQuiz(ctx context.Context, topic string) (domain.Quiz, error)
}

// Feedback is what the learner sees after answering the current question.
type Feedback struct {
	Answer        string `json:"answer"`
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation"`
}

// Result summarizes a completed attempt.
type Result struct {
	Score      int  `json:"score"`
	Total      int  `json:"total"`
	Percentage int  `json:"percentage"`
	Passed     bool `json:"passed"`
}

// Snapshot is a copy of the engine state safe to hand to callers.
type Snapshot struct {
	ID           string                `json:"id"`
	State        State                 `json:"state"`
	Phase        Phase                 `json:"phase,omitempty"`
	Topic        string                `json:"topic"`
	ModuleID     string                `json:"moduleId,omitempty"`
	Questions    []domain.QuizQuestion `json:"questions"`
	CurrentIndex int                   `json:"currentIndex"`
	Score        int                   `json:"score"`
	Feedback     *Feedback             `json:"feedback,omitempty"`
	Result       *Result               `json:"result,omitempty"`
}

// Engine runs a single quiz attempt. All methods are safe for concurrent
// use; answer and next transitions are applied one at a time.
type Engine struct {
	id      string
	source  QuestionSource
	emitter events.EventEmitter
	logger  *slog.Logger

	mu        sync.Mutex
	starting  bool
	state     State
	phase     Phase
	topic     string
	moduleID  string
	questions []domain.QuizQuestion
	index     int
	score     int
	feedback  *Feedback
	result    *Result
}

// NewEngine creates an engine in StateNotStarted. emitter receives the
// completion and unlock events.
func NewEngine(source QuestionSource, emitter events.EventEmitter, logger *slog.Logger) *Engine {
	id := uuid.NewString()
	return &Engine{
		id:      id,
		source:  source,
		emitter: emitter,
		logger:  logger.With("component", "quiz_engine", "quiz_id", id),
		state:   StateNotStarted,
	}
}

// ID returns the attempt's identifier.
func (e *Engine) ID() string {
	return e.id
}

// Start requests the question list for topic and enters StateInProgress at
// the first question. moduleID may be empty; when set, a passing result
// unlocks the next module. On any failure the engine stays NotStarted.
func (e *Engine) Start(ctx context.Context, topic, moduleID string) (Snapshot, error) {
	topic = strings.TrimSpace(topic)

	e.mu.Lock()
	if e.starting {
		e.mu.Unlock()
		return Snapshot{}, ErrStartInProgress
	}
	if e.state != StateNotStarted {
		e.mu.Unlock()
		return Snapshot{}, fmt.Errorf("%w: start from %s", ErrInvalidTransition, e.state)
	}
	if topic == "" {
		e.mu.Unlock()
		return Snapshot{}, fmt.Errorf("%w: topic is empty", ErrQuizGenerationFailed)
	}
	e.starting = true
	e.mu.Unlock()

	quiz, err := e.source.GenerateQuiz(ctx, topic)
	if err == nil {
		err = quiz.Validate()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.starting = false

	if err != nil {
		e.logger.WarnContext(ctx, "quiz generation failed", "topic", topic, "error", err)
		return Snapshot{}, fmt.Errorf("%w: %w", ErrQuizGenerationFailed, err)
	}

	e.questions = make([]domain.QuizQuestion, len(quiz.Questions))
	for i, q := range quiz.Questions {
		e.questions[i] = q.Clone()
	}
	e.topic = topic
	e.moduleID = moduleID
	e.state = StateInProgress
	e.phase = PhaseAwaitingAnswer
	e.index = 0
	e.score = 0

	e.logger.InfoContext(ctx, "quiz started",
		"topic", topic,
		"module_id", moduleID,
		"question_count", len(e.questions))

	return e.snapshotLocked(), nil
}

// AnswerMCQ answers the current multiple choice question with the option at
// optionIndex. Once the question has been answered further answers are
// no-ops that return the recorded feedback.
func (e *Engine) AnswerMCQ(optionIndex int) (Feedback, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if fb, done, err := e.answerGuardLocked(); done || err != nil {
		return fb, err
	}

	q := e.questions[e.index]
	if q.Type != domain.QuestionMCQ {
		return Feedback{}, fmt.Errorf("%w: question %d is %s", ErrWrongQuestionType, q.ID, q.Type)
	}
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return Feedback{}, fmt.Errorf("%w: %d of %d", ErrInvalidOption, optionIndex, len(q.Options))
	}

	return e.recordLocked(q, q.Options[optionIndex], scoreOption(q, optionIndex)), nil
}

// AnswerText answers the current fill-in-the-blank or short answer question.
// Repeat answers behave as in AnswerMCQ.
func (e *Engine) AnswerText(text string) (Feedback, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if fb, done, err := e.answerGuardLocked(); done || err != nil {
		return fb, err
	}

	q := e.questions[e.index]
	if q.Type == domain.QuestionMCQ {
		return Feedback{}, fmt.Errorf("%w: question %d is %s", ErrWrongQuestionType, q.ID, q.Type)
	}

	return e.recordLocked(q, text, scoreText(q, text)), nil
}

// answerGuardLocked checks that an answer may be recorded. done is true when
// the current question was already answered.
func (e *Engine) answerGuardLocked() (Feedback, bool, error) {
	if e.state != StateInProgress {
		return Feedback{}, false, fmt.Errorf("%w: answer in %s", ErrInvalidTransition, e.state)
	}
	if e.phase == PhaseShowingExplanation {
		return *e.feedback, true, nil
	}
	return Feedback{}, false, nil
}

func (e *Engine) recordLocked(q domain.QuizQuestion, answer string, correct bool) Feedback {
	if correct {
		e.score++
	}
	e.feedback = &Feedback{
		Answer:        answer,
		Correct:       correct,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
	}
	e.phase = PhaseShowingExplanation
	return *e.feedback
}

// Next advances past an answered question. After the last question the
// attempt completes, a quiz.completed event is emitted and, for a
// module-bound attempt at or above domain.PassPercentage, a module.unlock event.
func (e *Engine) Next(ctx context.Context) (Snapshot, error) {
	e.mu.Lock()

	if e.state != StateInProgress || e.phase != PhaseShowingExplanation {
		state, phase := e.state, e.phase
		e.mu.Unlock()
		return Snapshot{}, fmt.Errorf("%w: next in %s/%s", ErrInvalidTransition, state, phase)
	}

	if e.index < len(e.questions)-1 {
		e.index++
		e.phase = PhaseAwaitingAnswer
		e.feedback = nil
		snap := e.snapshotLocked()
		e.mu.Unlock()
		return snap, nil
	}

	total := len(e.questions)
	pct := Percentage(e.score, total)
	e.state = StateCompleted
	e.phase = ""
	e.feedback = nil
	e.result = &Result{
		Score:      e.score,
		Total:      total,
		Percentage: pct,
		Passed:     pct >= domain.PassPercentage,
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "quiz completed",
		"topic", snap.Topic,
		"module_id", snap.ModuleID,
		"score", snap.Result.Score,
		"total", total,
		"percentage", pct)

	e.publishCompletion(ctx, snap)

	return snap, nil
}

// publishCompletion emits the completion events. The attempt is already
// complete, so emit failures are logged rather than returned.
func (e *Engine) publishCompletion(ctx context.Context, snap Snapshot) {
	if e.emitter == nil {
		return
	}

	err := events.Emit(ctx, e.emitter, events.TypeQuizCompleted, events.QuizCompletedPayload{
		QuizID:     e.id,
		Topic:      snap.Topic,
		ModuleID:   snap.ModuleID,
		Score:      snap.Result.Score,
		Total:      snap.Result.Total,
		Percentage: snap.Result.Percentage,
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to emit quiz completion", "error", err)
	}

	if snap.ModuleID == "" || !snap.Result.Passed {
		return
	}

	err = events.Emit(ctx, e.emitter, events.TypeModuleUnlock, events.ModuleUnlockPayload{
		ModuleID:   snap.ModuleID,
		Percentage: snap.Result.Percentage,
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to emit module unlock",
			"module_id", snap.ModuleID,
			"error", err)
	}
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:           e.id,
		State:        e.state,
		Phase:        e.phase,
		Topic:        e.topic,
		ModuleID:     e.moduleID,
		CurrentIndex: e.index,
		Score:        e.score,
	}
	snap.Questions = make([]domain.QuizQuestion, len(e.questions))
	for i, q := range e.questions {
		snap.Questions[i] = q.Clone()
	}
	if e.feedback != nil {
		fb := *e.feedback
		snap.Feedback = &fb
	}
	if e.result != nil {
		r := *e.result
		snap.Result = &r
	}
	return snap
}
