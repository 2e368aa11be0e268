package generation

import (
	"context"

	"github.com/phrazzld/chemlab/internal/domain"
)

// Generator defines the interface for requesting content from the oracle.
// Implementations return structures that already passed domain.NewStructure
// and quizzes that passed shape validation; callers still own the decision
// of whether a result is applied to application state.
type Generator interface {
	// GenerateStructure builds the molecular graph for a named molecule.
	GenerateStructure(ctx context.Context, name string) (domain.Structure, error)

	// AnalyzeStructure re-annotates an existing, possibly hand-edited, structure.
	AnalyzeStructure(ctx context.Context, structure domain.Structure) (domain.Structure, error)

	// ApplyReaction returns the product of treating structure with reagent
	// under the given conditions.
	ApplyReaction(
		ctx context.Context,
		structure domain.Structure,
		reagent string,
		conditions domain.ConditionSet,
	) (domain.Structure, error)

	// GenerateQuiz returns a fixed, ordered question list for topic.
	GenerateQuiz(ctx context.Context, topic string) (domain.Quiz, error)

	// GenerateReactionSteps explains a described reaction step by step.
	GenerateReactionSteps(ctx context.Context, description string) (domain.ReactionSteps, error)

	// GenerateStudyGuide summarizes topic for revision.
	GenerateStudyGuide(ctx context.Context, topic string) (domain.StudyGuide, error)

	// Chat continues a tutoring conversation and returns the tutor's reply.
	Chat(ctx context.Context, history []domain.ChatTurn, message string) (string, error)
}
