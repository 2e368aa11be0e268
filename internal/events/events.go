package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types published by the learning components.
const (
	// TypeQuizCompleted is emitted once per finished quiz attempt.
	TypeQuizCompleted = "quiz.completed"

	// TypeModuleUnlock is emitted when a module-bound quiz reaches the pass mark.
	TypeModuleUnlock = "module.unlock"

	// TypeReactionApplied is emitted once an accepted reaction product has been
	// committed as the current structure.
	TypeReactionApplied = "reaction.applied"

	// TypeMoleculeGenerated is emitted once a searched structure has been
	// committed as the current structure.
	TypeMoleculeGenerated = "molecule.generated"
)

// Event is a notification passed between components without direct
// dependencies on each other.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	// Payload contains the type-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates a new Event with the specified type and payload.
func NewEvent(eventType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
	}, nil
}

// QuizCompletedPayload describes a finished quiz attempt.
type QuizCompletedPayload struct {
	QuizID     string `json:"quiz_id"`
	Topic      string `json:"topic"`
	ModuleID   string `json:"module_id,omitempty"`
	Score      int    `json:"score"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}

// ModuleUnlockPayload carries the result that completes a module.
type ModuleUnlockPayload struct {
	ModuleID   string `json:"module_id"`
	Percentage int    `json:"percentage"`
}

// ReactionAppliedPayload describes an accepted reaction.
type ReactionAppliedPayload struct {
	Reagent string `json:"reagent"`
	Product string `json:"product"`
}

// MoleculeGeneratedPayload names a freshly generated structure.
type MoleculeGeneratedPayload struct {
	Query string `json:"query"`
	Name  string `json:"name"`
}

// EventHandler defines an interface for components that can handle events.
// Handlers ignore event types they are not interested in.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *Event) error
}

// Emit builds an event of eventType around payload and publishes it.
func Emit(ctx context.Context, emitter EventEmitter, eventType string, payload interface{}) error {
	event, err := NewEvent(eventType, payload)
	if err != nil {
		return err
	}
	return emitter.EmitEvent(ctx, event)
}
