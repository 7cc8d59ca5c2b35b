package tts

import (
	"regexp"
	"strings"

	"github.com/merazka/telvoice/internal/persona"
)

var (
	slahWord  = regexp.MustCompile(`(?i)\bslah\b`)
	amiraWord = regexp.MustCompile(`(?i)\bamira\b`)
)

// Arabic output spells names and brand natively.
var arabicReplacements = []struct{ from, to string }{
	{"Slah", "صلاح"},
	{"slah", "صلاح"},
	{"SLAH", "صلاح"},
	{"Amira", "أميرة"},
	{"amira", "أميرة"},
	{"AMIRA", "أميرة"},
	{"B2C", "بي تو سي"},
	{"B2B", "بي تو بي"},
	{"Ooredoo", "أوريدو"},
}

// FixPronunciation rewrites names and acronyms so the synthesizer speaks
// them correctly in the session language.
func FixPronunciation(text, langCode string, _ persona.Persona) string {
	switch langCode {
	case "ar-SA":
		for _, r := range arabicReplacements {
			text = strings.ReplaceAll(text, r.from, r.to)
		}
	case "fr-FR":
		text = slahWord.ReplaceAllString(text, "Slah")
		text = amiraWord.ReplaceAllString(text, "Amira")
		text = strings.ReplaceAll(text, "B2C", "B deux C")
		text = strings.ReplaceAll(text, "B2B", "B deux B")
	default:
		text = slahWord.ReplaceAllString(text, "Slah")
		text = amiraWord.ReplaceAllString(text, "Amira")
		text = strings.ReplaceAll(text, "B2C", "B two C")
		text = strings.ReplaceAll(text, "B2B", "B two B")
	}
	return text
}
