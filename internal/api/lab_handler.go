package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/chemlab/internal/api/shared"
	"github.com/phrazzld/chemlab/internal/curriculum"
	"github.com/phrazzld/chemlab/internal/domain"
	"github.com/phrazzld/chemlab/internal/quiz"
	"github.com/phrazzld/chemlab/internal/redact"
	"github.com/phrazzld/chemlab/internal/service"
)

// LabService is the application state the handlers operate on.
// *service.Lab satisfies it.
type LabService interface {
	SearchMolecule(ctx context.Context, name string) (domain.Structure, error)
	AnalyzeStructure(ctx context.Context, edited domain.Structure) (domain.Structure, error)
	ApplyReaction(ctx context.Context, reagent string, conditions domain.ConditionSet) (domain.Structure, error)
	CurrentStructure() (domain.Structure, error)

	SaveCurrent(ctx context.Context) (domain.ArchiveItem, error)
	ListArchive() []domain.ArchiveItem
	RemoveArchived(id string)
	LoadArchived(ctx context.Context, id string) (domain.Structure, error)

	StartQuiz(ctx context.Context, topic, moduleID string) (quiz.Snapshot, error)
	AnswerQuizOption(optionIndex int) (quiz.Feedback, error)
	AnswerQuizText(text string) (quiz.Feedback, error)
	NextQuestion(ctx context.Context) (quiz.Snapshot, error)
	QuizSnapshot() (quiz.Snapshot, error)

	SelectSyllabus(ctx context.Context, name string) ([]domain.Module, error)
	Syllabus() string
	Modules() []domain.Module
	Syllabi() []curriculum.Syllabus
	CompletionPercent() int

	GenerateStudyGuide(ctx context.Context, moduleID, topic string) (domain.StudyGuide, error)
	ReactionSteps(ctx context.Context, description string) (domain.ReactionSteps, error)

	Chat(ctx context.Context, message string) (domain.ChatMessage, error)
	ChatHistory() []domain.ChatMessage
	ResetChat()

	Overview() service.Overview
}

var _ LabService = (*service.Lab)(nil)

// LabHandler handles the learning API.
type LabHandler struct {
	lab    LabService
	logger *slog.Logger
}

// NewLabHandler creates a new LabHandler
func NewLabHandler(lab LabService, logger *slog.Logger) *LabHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for LabHandler")
	}
	return &LabHandler{
		lab:    lab,
		logger: logger.With(slog.String("component", "lab_handler")),
	}
}

// Routes mounts the handlers on r.
func (h *LabHandler) Routes(r chi.Router) {
	r.Route("/molecules", func(r chi.Router) {
		r.Post("/search", h.SearchMolecule)
		r.Post("/analyze", h.AnalyzeStructure)
		r.Post("/react", h.ApplyReaction)
		r.Get("/current", h.CurrentStructure)
	})

	r.Route("/archive", func(r chi.Router) {
		r.Get("/", h.ListArchive)
		r.Post("/", h.SaveCurrent)
		r.Delete("/{id}", h.RemoveArchived)
		r.Post("/{id}/load", h.LoadArchived)
	})

	r.Route("/quiz", func(r chi.Router) {
		r.Post("/", h.StartQuiz)
		r.Get("/", h.GetQuiz)
		r.Post("/answer", h.AnswerQuestion)
		r.Post("/next", h.NextQuestion)
	})

	r.Route("/curriculum", func(r chi.Router) {
		r.Get("/", h.GetCurriculum)
		r.Put("/syllabus", h.SelectSyllabus)
		r.Get("/syllabi", h.ListSyllabi)
	})

	r.Post("/study/guide", h.StudyGuide)
	r.Post("/study/reaction-steps", h.ReactionSteps)

	r.Route("/chat", func(r chi.Router) {
		r.Post("/", h.Chat)
		r.Get("/", h.ChatHistory)
		r.Delete("/", h.ResetChat)
	})

	r.Get("/stats", h.Stats)
}

// decodeAndValidate reads the body into req and validates it. On failure it
// writes a 400 response and returns false.
func (h *LabHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := shared.DecodeJSON(r, req); err != nil {
		h.logger.Debug("invalid request format",
			slog.String("error", redact.Error(err)),
			slog.String("path", r.URL.Path))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return false
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return false
	}
	return true
}

// respondError maps err to a status code and a safe message.
func (h *LabHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}

// SearchMolecule handles POST /molecules/search
func (h *LabHandler) SearchMolecule(w http.ResponseWriter, r *http.Request) {
	var req SearchMoleculeRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	structure, err := h.lab.SearchMolecule(r.Context(), req.Name)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, structureToResponse(structure))
}

// AnalyzeStructure handles POST /molecules/analyze
func (h *LabHandler) AnalyzeStructure(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeStructureRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	structure, err := h.lab.AnalyzeStructure(r.Context(), req.Structure)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, structureToResponse(structure))
}

// ApplyReaction handles POST /molecules/react
func (h *LabHandler) ApplyReaction(w http.ResponseWriter, r *http.Request) {
	var req ApplyReactionRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	conditions := domain.DefaultConditions()
	if req.Conditions != nil {
		conditions = *req.Conditions
	}

	product, err := h.lab.ApplyReaction(r.Context(), req.Reagent, conditions)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, structureToResponse(product))
}

// CurrentStructure handles GET /molecules/current
func (h *LabHandler) CurrentStructure(w http.ResponseWriter, r *http.Request) {
	structure, err := h.lab.CurrentStructure()
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, structureToResponse(structure))
}

// ListArchive handles GET /archive
func (h *LabHandler) ListArchive(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, ArchiveResponse{Items: h.lab.ListArchive()})
}

// SaveCurrent handles POST /archive
func (h *LabHandler) SaveCurrent(w http.ResponseWriter, r *http.Request) {
	item, err := h.lab.SaveCurrent(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, item)
}

// RemoveArchived handles DELETE /archive/{id}. Removing an unknown id
// succeeds.
func (h *LabHandler) RemoveArchived(w http.ResponseWriter, r *http.Request) {
	h.lab.RemoveArchived(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// LoadArchived handles POST /archive/{id}/load
func (h *LabHandler) LoadArchived(w http.ResponseWriter, r *http.Request) {
	structure, err := h.lab.LoadArchived(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, structureToResponse(structure))
}

// StartQuiz handles POST /quiz
func (h *LabHandler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	var req StartQuizRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	snap, err := h.lab.StartQuiz(r.Context(), req.Topic, req.ModuleID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, quizToResponse(snap))
}

// GetQuiz handles GET /quiz
func (h *LabHandler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	snap, err := h.lab.QuizSnapshot()
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, quizToResponse(snap))
}

// AnswerQuestion handles POST /quiz/answer
func (h *LabHandler) AnswerQuestion(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	var (
		feedback quiz.Feedback
		err      error
	)
	if req.OptionIndex != nil {
		feedback, err = h.lab.AnswerQuizOption(*req.OptionIndex)
	} else {
		feedback, err = h.lab.AnswerQuizText(*req.Text)
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, feedback)
}

// NextQuestion handles POST /quiz/next
func (h *LabHandler) NextQuestion(w http.ResponseWriter, r *http.Request) {
	snap, err := h.lab.NextQuestion(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, quizToResponse(snap))
}

// GetCurriculum handles GET /curriculum
func (h *LabHandler) GetCurriculum(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, CurriculumResponse{
		Syllabus:          h.lab.Syllabus(),
		CompletionPercent: h.lab.CompletionPercent(),
		Modules:           h.lab.Modules(),
	})
}

// SelectSyllabus handles PUT /curriculum/syllabus
func (h *LabHandler) SelectSyllabus(w http.ResponseWriter, r *http.Request) {
	var req SelectSyllabusRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	modules, err := h.lab.SelectSyllabus(r.Context(), req.Name)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, CurriculumResponse{
		Syllabus:          h.lab.Syllabus(),
		CompletionPercent: h.lab.CompletionPercent(),
		Modules:           modules,
	})
}

// ListSyllabi handles GET /curriculum/syllabi
func (h *LabHandler) ListSyllabi(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.lab.Syllabi())
}

// StudyGuide handles POST /study/guide
func (h *LabHandler) StudyGuide(w http.ResponseWriter, r *http.Request) {
	var req StudyGuideRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	guide, err := h.lab.GenerateStudyGuide(r.Context(), req.ModuleID, req.Topic)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, guide)
}

// ReactionSteps handles POST /study/reaction-steps
func (h *LabHandler) ReactionSteps(w http.ResponseWriter, r *http.Request) {
	var req ReactionStepsRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	steps, err := h.lab.ReactionSteps(r.Context(), req.Description)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, steps)
}

// Chat handles POST /chat
func (h *LabHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	reply, err := h.lab.Chat(r.Context(), req.Message)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, reply)
}

// ChatHistory handles GET /chat
func (h *LabHandler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	messages := h.lab.ChatHistory()
	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ChatHistoryResponse{Messages: messages})
}

// ResetChat handles DELETE /chat
func (h *LabHandler) ResetChat(w http.ResponseWriter, r *http.Request) {
	h.lab.ResetChat()
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /stats
func (h *LabHandler) Stats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.lab.Overview())
}
