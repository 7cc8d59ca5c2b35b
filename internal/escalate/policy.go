package escalate

import "strings"

// Decision is the pre-generation routing choice for a turn.
type Decision int

const (
	Generate Decision = iota
	TicketExplicit
)

// AfterDecision is the post-generation check on the reply.
type AfterDecision int

const (
	Accept AfterDecision = iota
	TicketFallback
)

// Phrases that route a turn straight to ticketing, no generation.
var ticketTriggers = []string{
	"open a ticket",
	"open the ticket",
	"create a ticket",
	"raise a ticket",
	"submit a ticket",
}

// failureIndicator marks degraded generator output that should fall back
// to ticketing.
const failureIndicator = "technical difficulties"

// Decide routes a turn before the generator is called. An explicit ticket
// request bypasses generation regardless of the rest of the message.
func Decide(message string) Decision {
	lower := strings.ToLower(message)
	for _, phrase := range ticketTriggers {
		if strings.Contains(lower, phrase) {
			return TicketExplicit
		}
	}
	return Generate
}

// DecideAfter checks generator output. Empty output and the fixed failure
// phrase both trigger a ticket fallback.
func DecideAfter(reply string) AfterDecision {
	if strings.TrimSpace(reply) == "" {
		return TicketFallback
	}
	if strings.Contains(strings.ToLower(reply), failureIndicator) {
		return TicketFallback
	}
	return Accept
}
