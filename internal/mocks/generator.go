package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/chemlab/internal/domain"
	"github.com/phrazzld/chemlab/internal/generation"
)

// MockGenerator implements generation.Generator for testing. Each method
// delegates to its Fn field when set and otherwise returns the default
// values below.
type MockGenerator struct {
	GenerateStructureFn     func(ctx context.Context, name string) (domain.Structure, error)
	AnalyzeStructureFn      func(ctx context.Context, structure domain.Structure) (domain.Structure, error)
	ApplyReactionFn         func(ctx context.Context, structure domain.Structure, reagent string, conditions domain.ConditionSet) (domain.Structure, error)
	GenerateQuizFn          func(ctx context.Context, topic string) (domain.Quiz, error)
	GenerateReactionStepsFn func(ctx context.Context, description string) (domain.ReactionSteps, error)
	GenerateStudyGuideFn    func(ctx context.Context, topic string) (domain.StudyGuide, error)
	ChatFn                  func(ctx context.Context, history []domain.ChatTurn, message string) (string, error)

	// Default response values
	Structure domain.Structure
	Quiz      domain.Quiz
	Reply     string
	Err       error

	// mu protects the call tracking state for concurrent test cases
	mu    sync.Mutex
	calls map[string]int

	// Reagents contains every reagent passed to ApplyReaction
	Reagents []string

	// Histories contains every history passed to Chat
	Histories [][]domain.ChatTurn
}

var _ generation.Generator = (*MockGenerator)(nil)

func (m *MockGenerator) track(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
}

// Calls returns how many times method was invoked.
func (m *MockGenerator) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// GenerateStructure implements the generation.Generator interface
func (m *MockGenerator) GenerateStructure(ctx context.Context, name string) (domain.Structure, error) {
	m.track("GenerateStructure")
	if m.GenerateStructureFn != nil {
		return m.GenerateStructureFn(ctx, name)
	}
	return m.Structure.Clone(), m.Err
}

// AnalyzeStructure implements the generation.Generator interface
func (m *MockGenerator) AnalyzeStructure(ctx context.Context, structure domain.Structure) (domain.Structure, error) {
	m.track("AnalyzeStructure")
	if m.AnalyzeStructureFn != nil {
		return m.AnalyzeStructureFn(ctx, structure)
	}
	return m.Structure.Clone(), m.Err
}

// ApplyReaction implements the generation.Generator interface
func (m *MockGenerator) ApplyReaction(
	ctx context.Context,
	structure domain.Structure,
	reagent string,
	conditions domain.ConditionSet,
) (domain.Structure, error) {
	m.track("ApplyReaction")
	m.mu.Lock()
	m.Reagents = append(m.Reagents, reagent)
	m.mu.Unlock()

	if m.ApplyReactionFn != nil {
		return m.ApplyReactionFn(ctx, structure, reagent, conditions)
	}
	return m.Structure.Clone(), m.Err
}

// GenerateQuiz implements the generation.Generator interface
func (m *MockGenerator) GenerateQuiz(ctx context.Context, topic string) (domain.Quiz, error) {
	m.track("GenerateQuiz")
	if m.GenerateQuizFn != nil {
		return m.GenerateQuizFn(ctx, topic)
	}
	return m.Quiz, m.Err
}

// GenerateReactionSteps implements the generation.Generator interface
func (m *MockGenerator) GenerateReactionSteps(ctx context.Context, description string) (domain.ReactionSteps, error) {
	m.track("GenerateReactionSteps")
	if m.GenerateReactionStepsFn != nil {
		return m.GenerateReactionStepsFn(ctx, description)
	}
	if m.Err != nil {
		return domain.ReactionSteps{}, m.Err
	}
	return domain.ReactionSteps{
		Name:  description,
		Steps: []domain.ReactionStep{{Step: 1, KeyConcept: "Nucleophilic attack", Description: description}},
	}, nil
}

// GenerateStudyGuide implements the generation.Generator interface
func (m *MockGenerator) GenerateStudyGuide(ctx context.Context, topic string) (domain.StudyGuide, error) {
	m.track("GenerateStudyGuide")
	if m.GenerateStudyGuideFn != nil {
		return m.GenerateStudyGuideFn(ctx, topic)
	}
	if m.Err != nil {
		return domain.StudyGuide{}, m.Err
	}
	return domain.StudyGuide{
		Topic:          topic,
		Summary:        "Summary of " + topic,
		KeyPoints:      []string{"Key point"},
		CommonMistakes: []string{"Common mistake"},
		Resources:      []domain.VideoResource{},
	}, nil
}

// Chat implements the generation.Generator interface
func (m *MockGenerator) Chat(ctx context.Context, history []domain.ChatTurn, message string) (string, error) {
	m.track("Chat")
	m.mu.Lock()
	m.Histories = append(m.Histories, append([]domain.ChatTurn(nil), history...))
	m.mu.Unlock()

	if m.ChatFn != nil {
		return m.ChatFn(ctx, history, message)
	}
	return m.Reply, m.Err
}

// NewMockGeneratorWithError creates a MockGenerator whose every method fails with err
func NewMockGeneratorWithError(err error) *MockGenerator {
	return &MockGenerator{Err: err}
}

// NewMockGenerator creates a MockGenerator returning sample ethanol and a
// three question quiz.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		Structure: SampleEthanol(),
		Quiz:      SampleQuiz("Alcohols"),
		Reply:     "Ethanol is a primary alcohol.",
	}
}

func coord(v float64) *float64 { return &v }

// SampleEthanol returns a well-formed ethanol skeleton with explicit hydrogens
// on the hydroxyl only.
func SampleEthanol() domain.Structure {
	return domain.Structure{
		Name:        "Ethanol",
		Description: "A primary alcohol",
		Atoms: []domain.Atom{
			{ID: "c1", Element: "C", X: coord(0), Y: coord(0)},
			{ID: "c2", Element: "C", X: coord(1.3), Y: coord(0.75)},
			{ID: "o1", Element: "O", X: coord(2.6), Y: coord(0)},
			{ID: "h1", Element: "H", X: coord(3.4), Y: coord(0.5)},
		},
		Bonds: []domain.Bond{
			{Source: "c1", Target: "c2", Order: domain.BondSingle},
			{Source: "c2", Target: "o1", Order: domain.BondSingle},
			{Source: "o1", Target: "h1", Order: domain.BondSingle},
		},
	}
}

// SampleEthene returns the dehydration product of SampleEthanol.
func SampleEthene() domain.Structure {
	return domain.Structure{
		Name:        "Ethene",
		Description: "The simplest alkene",
		Atoms: []domain.Atom{
			{ID: "c1", Element: "C", X: coord(0), Y: coord(0)},
			{ID: "c2", Element: "C", X: coord(1.3), Y: coord(0)},
		},
		Bonds: []domain.Bond{
			{Source: "c1", Target: "c2", Order: domain.BondDouble},
		},
	}
}

// SampleQuiz returns one question of each type for topic. The correct MCQ
// option is index 1.
func SampleQuiz(topic string) domain.Quiz {
	return domain.Quiz{
		Topic: topic,
		Questions: []domain.QuizQuestion{
			{
				ID:            1,
				Type:          domain.QuestionMCQ,
				Question:      "What is the hybridization of carbon in methane?",
				Options:       []string{"sp", "sp3", "sp2"},
				CorrectAnswer: "sp3",
				Explanation:   "Four sigma bonds require four equivalent hybrid orbitals.",
			},
			{
				ID:            2,
				Type:          domain.QuestionFITB,
				Question:      "CH3CH2OH is called ____.",
				CorrectAnswer: "Ethanol",
				Explanation:   "Two carbons with a hydroxyl group.",
			},
			{
				ID:            3,
				Type:          domain.QuestionShortAnswer,
				Question:      "Explain why SN2 reactions invert stereochemistry.",
				CorrectAnswer: "Backside attack",
				Explanation:   "The nucleophile approaches opposite the leaving group.",
			},
		},
	}
}
