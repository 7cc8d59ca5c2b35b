package dialogue

import "strings"

// HistoryWindow bounds how many prior turns are folded into the prompt.
const HistoryWindow = 10

// BuildContext assembles the generation prompt from prior turns and the
// current message. Only the most recent HistoryWindow turns are used, in
// chronological order. With no history the context is exactly the message.
func BuildContext(history []Turn, current string) string {
	if len(history) == 0 {
		return current
	}
	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}

	var b strings.Builder
	b.WriteString("Previous conversation:\n")
	for _, turn := range history {
		b.WriteString("User: ")
		b.WriteString(turn.User)
		b.WriteString("\nAI: ")
		b.WriteString(turn.AI)
		b.WriteString("\n")
	}
	b.WriteString("\nCurrent user message: ")
	b.WriteString(current)
	b.WriteString("\n")
	return b.String()
}

// SelectHistory applies the precedence rule for a turn: a non-empty
// client-supplied history is authoritative, otherwise the persisted one.
func SelectHistory(clientSupplied, persisted []Turn) []Turn {
	if len(clientSupplied) > 0 {
		return clientSupplied
	}
	return persisted
}
