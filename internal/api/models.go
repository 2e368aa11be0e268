package api

import (
	"errors"

	"github.com/phrazzld/chemlab/internal/domain"
	"github.com/phrazzld/chemlab/internal/quiz"
)

// SearchMoleculeRequest defines the payload for a structure search.
type SearchMoleculeRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// AnalyzeStructureRequest carries a hand-edited structure.
type AnalyzeStructureRequest struct {
	Structure domain.Structure `json:"structure"`
}

// ApplyReactionRequest defines the payload for applying a reagent to the
// current structure. Conditions default to domain.DefaultConditions.
type ApplyReactionRequest struct {
	Reagent    string               `json:"reagent"    validate:"required,max=200"`
	Conditions *domain.ConditionSet `json:"conditions"`
}

// StartQuizRequest starts a quiz on a free topic or on a module's topic.
type StartQuizRequest struct {
	Topic    string `json:"topic"     validate:"required_without=ModuleID,max=200"`
	ModuleID string `json:"module_id" validate:"max=50"`
}

// AnswerRequest answers the current question. Exactly one field must be
// set: OptionIndex for mcq questions, Text otherwise.
type AnswerRequest struct {
	OptionIndex *int    `json:"option_index"`
	Text        *string `json:"text"`
}

// Validate implements the self-validation hook used by shared.ValidateRequest.
func (r AnswerRequest) Validate() error {
	if (r.OptionIndex == nil) == (r.Text == nil) {
		return errors.New("exactly one of option_index and text is required")
	}
	return nil
}

// SelectSyllabusRequest switches the active syllabus.
type SelectSyllabusRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

// StudyGuideRequest asks for a guide on a free topic or a module's topic.
type StudyGuideRequest struct {
	Topic    string `json:"topic"     validate:"required_without=ModuleID,max=200"`
	ModuleID string `json:"module_id" validate:"max=50"`
}

// ReactionStepsRequest asks for a mechanism walkthrough.
type ReactionStepsRequest struct {
	Description string `json:"description" validate:"required,max=2000"`
}

// ChatRequest sends a message to the tutor.
type ChatRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// StructureResponse wraps a structure with its derived formula.
type StructureResponse struct {
	Formula   string           `json:"formula"`
	Structure domain.Structure `json:"structure"`
}

// QuestionView is a question as shown before it is answered.
type QuestionView struct {
	ID       int                 `json:"id"`
	Type     domain.QuestionType `json:"type"`
	Question string              `json:"question"`
	Options  []string            `json:"options,omitempty"`
}

// QuizResponse is the client view of a quiz attempt. Correct answers are
// only revealed through Feedback once a question has been answered.
type QuizResponse struct {
	ID            string         `json:"id"`
	State         quiz.State     `json:"state"`
	Phase         quiz.Phase     `json:"phase,omitempty"`
	Topic         string         `json:"topic"`
	ModuleID      string         `json:"module_id,omitempty"`
	QuestionCount int            `json:"question_count"`
	CurrentIndex  int            `json:"current_index"`
	Current       *QuestionView  `json:"current,omitempty"`
	Score         int            `json:"score"`
	Feedback      *quiz.Feedback `json:"feedback,omitempty"`
	Result        *quiz.Result   `json:"result,omitempty"`
}

// CurriculumResponse describes the selected syllabus and its progress.
type CurriculumResponse struct {
	Syllabus          string          `json:"syllabus"`
	CompletionPercent int             `json:"completion_percent"`
	Modules           []domain.Module `json:"modules"`
}

// ChatHistoryResponse lists the tutor conversation.
type ChatHistoryResponse struct {
	Messages []domain.ChatMessage `json:"messages"`
}

// ArchiveResponse lists the archived structures, newest first.
type ArchiveResponse struct {
	Items []domain.ArchiveItem `json:"items"`
}

func structureToResponse(s domain.Structure) StructureResponse {
	return StructureResponse{Formula: s.Formula(), Structure: s}
}

func quizToResponse(snap quiz.Snapshot) QuizResponse {
	resp := QuizResponse{
		ID:            snap.ID,
		State:         snap.State,
		Phase:         snap.Phase,
		Topic:         snap.Topic,
		ModuleID:      snap.ModuleID,
		QuestionCount: len(snap.Questions),
		CurrentIndex:  snap.CurrentIndex,
		Score:         snap.Score,
		Feedback:      snap.Feedback,
		Result:        snap.Result,
	}
	if snap.State == quiz.StateInProgress && snap.CurrentIndex < len(snap.Questions) {
		q := snap.Questions[snap.CurrentIndex]
		resp.Current = &QuestionView{
			ID:       q.ID,
			Type:     q.Type,
			Question: q.Question,
			Options:  q.Options,
		}
	}
	return resp
}
