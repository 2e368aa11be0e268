package domain

import (
	"fmt"
	"time"
)

// ConditionSet describes the conditions a reaction is applied under.
type ConditionSet struct {
	Temp     float64 `json:"temp"`     // °C
	Pressure float64 `json:"pressure"` // atm
	Catalyst string  `json:"catalyst"`
	Solvent  string  `json:"solvent"`
}

// DefaultConditions returns room temperature, atmospheric pressure, no
// catalyst and ethanol as solvent.
func DefaultConditions() ConditionSet {
	return ConditionSet{Temp: 25, Pressure: 1, Solvent: "Ethanol"}
}

// Validate checks that the pressure is strictly positive.
func (c ConditionSet) Validate() error {
	if c.Pressure <= 0 {
		return fmt.Errorf("%w: pressure must be greater than 0 atm, got %g", ErrInvalidConditions, c.Pressure)
	}
	return nil
}

// ReactionStep is one step of a mechanism walkthrough.
type ReactionStep struct {
	Step        int    `json:"step"`
	KeyConcept  string `json:"keyConcept"`
	Description string `json:"description"`
}

// ReactionSteps is the mechanism walkthrough for a described reaction.
type ReactionSteps struct {
	Name       string         `json:"name"`
	Steps      []ReactionStep `json:"steps"`
	References []string       `json:"references,omitempty"`
}

// VideoResource is an external learning resource referenced by a study guide.
type VideoResource struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Source string `json:"source"`
}

// StudyGuide summarizes a topic for revision.
type StudyGuide struct {
	Topic          string          `json:"topic"`
	Summary        string          `json:"summary"`
	KeyPoints      []string        `json:"keyPoints"`
	CommonMistakes []string        `json:"commonMistakes"`
	Resources      []VideoResource `json:"resources"`
}

// ChatRole identifies the author of a chat turn.
type ChatRole string

// Chat roles understood by the oracle.
const (
	ChatRoleUser  ChatRole = "user"
	ChatRoleModel ChatRole = "model"
)

// ChatTurn is a single history entry sent to the oracle.
type ChatTurn struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}

// ChatMessage is a chat turn as kept in the tutor history.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      ChatRole  `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
