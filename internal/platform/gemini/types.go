package gemini

import "github.com/phrazzld/chemlab/internal/domain"

// Template names under prompts/.
const (
	tmplStructure     = "structure.tmpl"
	tmplAnalyze       = "analyze.tmpl"
	tmplReaction      = "reaction.tmpl"
	tmplQuiz          = "quiz.tmpl"
	tmplReactionSteps = "reaction_steps.tmpl"
	tmplStudyGuide    = "study_guide.tmpl"
	tmplChat          = "chat.tmpl"
)

// Operation labels used in logs and metrics.
const (
	opStructure     = "structure"
	opAnalyze       = "analyze"
	opReaction      = "reaction"
	opQuiz          = "quiz"
	opReactionSteps = "reaction_steps"
	opStudyGuide    = "study_guide"
	opChat          = "chat"
)

// promptData represents the data passed to the prompt templates
type promptData struct {
	Name          string
	Topic         string
	Description   string
	Reagent       string
	StructureJSON string
	Conditions    domain.ConditionSet
}
