package service

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/chemlab/internal/archive"
	"github.com/phrazzld/chemlab/internal/curriculum"
	"github.com/phrazzld/chemlab/internal/domain"
	"github.com/phrazzld/chemlab/internal/events"
	"github.com/phrazzld/chemlab/internal/generation"
	"github.com/phrazzld/chemlab/internal/platform/metrics"
	"github.com/phrazzld/chemlab/internal/quiz"
	"github.com/phrazzld/chemlab/internal/reaction"
	"github.com/phrazzld/chemlab/internal/stats"
)

// family groups operations that share an in-flight guard and a generation
// counter.
type family string

const (
	familyMolecule      family = "molecule"
	familyQuiz          family = "quiz"
	familyStudyGuide    family = "study_guide"
	familyReactionSteps family = "reaction_steps"
	familyChat          family = "chat"
)

// guard tracks one family's in-flight call and the generation its result
// must still match to be applied.
type guard struct {
	inFlight   bool
	generation uint64
}

// Deps holds the collaborators of a Lab.
type Deps struct {
	Generator generation.Generator
	Catalog   *curriculum.Catalog
	Syllabus  string
	Logger    *slog.Logger

	// Metrics is optional.
	Metrics *metrics.Collector

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Lab is the single owner of a learner's session state. All methods are
// safe for concurrent use.
type Lab struct {
	gen         generation.Generator
	archive     *archive.Archive
	progression *curriculum.Progression
	stats       *stats.Aggregator
	transformer *reaction.Transformer
	emitter     *events.InMemoryEventEmitter
	catalog     *curriculum.Catalog
	logger      *slog.Logger
	now         func() time.Time

	mu      sync.Mutex
	guards  map[family]*guard
	current *domain.Structure
	quiz    *quiz.Engine
	chat    []domain.ChatMessage
	guide   *domain.StudyGuide
}

// NewLab wires the learning components around deps.Generator and selects
// deps.Syllabus.
func NewLab(deps Deps) (*Lab, error) {
	if deps.Generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if deps.Catalog == nil {
		return nil, errors.New("catalog cannot be nil")
	}
	if deps.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}

	logger := deps.Logger.With("component", "lab")

	var progressionOpts []curriculum.Option
	if deps.Metrics != nil {
		progressionOpts = append(progressionOpts, curriculum.WithMetrics(deps.Metrics))
	}
	progression, err := curriculum.NewProgression(deps.Catalog, deps.Syllabus, deps.Logger, progressionOpts...)
	if err != nil {
		return nil, err
	}

	aggregator := stats.NewAggregator(deps.Metrics)

	emitter := events.NewInMemoryEventEmitter(deps.Logger)
	emitter.RegisterHandler(aggregator,
		events.TypeQuizCompleted,
		events.TypeReactionApplied,
		events.TypeMoleculeGenerated)
	emitter.RegisterHandler(progression, events.TypeModuleUnlock)

	l := &Lab{
		gen:         deps.Generator,
		archive:     archive.New(archive.WithClock(now)),
		progression: progression,
		stats:       aggregator,
		transformer: reaction.NewTransformer(deps.Generator, emitter, deps.Logger),
		emitter:     emitter,
		catalog:     deps.Catalog,
		logger:      logger,
		now:         now,
		guards:      make(map[family]*guard),
	}
	for _, f := range []family{familyMolecule, familyQuiz, familyStudyGuide, familyReactionSteps, familyChat} {
		l.guards[f] = &guard{}
	}

	return l, nil
}

// begin marks f as in flight and returns the generation the result must
// match when it is committed.
func (l *Lab) begin(f family) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	g := l.guards[f]
	if g.inFlight {
		return 0, ErrOperationInProgress
	}
	g.inFlight = true
	return g.generation, nil
}

// finishLocked clears the in-flight mark and reports whether token is still
// current. On success the generation advances so that every accepted
// response is tied to exactly one request.
func (l *Lab) finishLocked(f family, token uint64) error {
	g := l.guards[f]
	g.inFlight = false
	if g.generation != token {
		return ErrStaleResponse
	}
	g.generation++
	return nil
}

// abort clears the in-flight mark after a failed call.
func (l *Lab) abort(f family) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.guards[f].inFlight = false
}

// invalidateLocked makes any in-flight result of f stale.
func (l *Lab) invalidateLocked(f family) {
	l.guards[f].generation++
}

// Overview summarizes the learner's progress for a dashboard.
type Overview struct {
	Stats             domain.UserStats `json:"stats"`
	AverageScore      int              `json:"averageScore"`
	ArchiveCount      int              `json:"archiveCount"`
	Syllabus          string           `json:"syllabus"`
	CompletionPercent int              `json:"completionPercent"`
}

// Stats returns the process-wide counters.
func (l *Lab) Stats() domain.UserStats {
	return l.stats.Snapshot()
}

// Overview returns the counters together with archive and curriculum totals.
func (l *Lab) Overview() Overview {
	s := l.stats.Snapshot()
	return Overview{
		Stats:             s,
		AverageScore:      s.AverageScore(),
		ArchiveCount:      l.archive.Len(),
		Syllabus:          l.progression.Syllabus(),
		CompletionPercent: l.progression.CompletionPercent(),
	}
}
