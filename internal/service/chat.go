package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/chemlab/internal/domain"
)

// Chat sends message to the tutor and returns the reply. While a structure is
// displayed the outgoing message carries a line describing it; the history
// keeps the message as typed. Both turns are recorded only when the tutor
// answers.
func (l *Lab) Chat(ctx context.Context, message string) (domain.ChatMessage, error) {
	if strings.TrimSpace(message) == "" {
		return domain.ChatMessage{}, fmt.Errorf("%w: message is required", domain.ErrValidation)
	}

	token, err := l.begin(familyChat)
	if err != nil {
		return domain.ChatMessage{}, err
	}

	l.mu.Lock()
	history := make([]domain.ChatTurn, len(l.chat))
	for i, m := range l.chat {
		history[i] = domain.ChatTurn{Role: m.Role, Text: m.Text}
	}
	outgoing := message
	if l.current != nil {
		outgoing = withStructureContext(*l.current, message)
	}
	l.mu.Unlock()

	sent := l.now()
	reply, err := l.gen.Chat(ctx, history, outgoing)
	if err != nil {
		l.abort(familyChat)
		l.logger.WarnContext(ctx, "tutor chat failed", "error", err)
		return domain.ChatMessage{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.finishLocked(familyChat, token); err != nil {
		return domain.ChatMessage{}, err
	}

	answer := domain.ChatMessage{
		ID:        uuid.NewString(),
		Role:      domain.ChatRoleModel,
		Text:      reply,
		Timestamp: l.now(),
	}
	l.chat = append(l.chat,
		domain.ChatMessage{
			ID:        uuid.NewString(),
			Role:      domain.ChatRoleUser,
			Text:      message,
			Timestamp: sent,
		},
		answer,
	)
	return answer, nil
}

func withStructureContext(s domain.Structure, message string) string {
	return fmt.Sprintf(
		"[Context: User is currently viewing a molecule named %q. Description: %q. Atoms: %d. Bonds: %d.]\n\nUser Question: %s",
		s.Name, s.Description, len(s.Atoms), len(s.Bonds), message)
}

// ChatHistory returns a copy of the conversation so far.
func (l *Lab) ChatHistory() []domain.ChatMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.ChatMessage(nil), l.chat...)
}

// ResetChat clears the conversation. A reply still in flight is discarded.
func (l *Lab) ResetChat() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.invalidateLocked(familyChat)
	l.chat = nil
}
