package session

import (
	"strings"

	"crisp/internal/models"
)

// BuildTranscript renders the chat as "role: content" lines.
func BuildTranscript(history []models.ChatMessage) string {
	lines := make([]string, 0, len(history))
	for _, m := range history {
		lines = append(lines, string(m.Role)+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}
