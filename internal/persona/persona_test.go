package persona

import "testing"

func TestDefaults(t *testing.T) {
	if DefaultLanguage().Code != "en-US" {
		t.Fatalf("default language = %q, want en-US", DefaultLanguage().Code)
	}
	if DefaultPersona().Name != "Amira" {
		t.Fatalf("default persona = %q, want Amira", DefaultPersona().Name)
	}
}

func TestLanguageByDigit(t *testing.T) {
	l, ok := LanguageByDigit("3")
	if !ok || l.Code != "fr-FR" {
		t.Fatalf("digit 3 = %+v ok=%v, want fr-FR", l, ok)
	}
	if _, ok := LanguageByDigit("9"); ok {
		t.Fatalf("digit 9 should not resolve")
	}
}

func TestPersonaVoiceFallback(t *testing.T) {
	p, _ := PersonaByID(1)
	if got := p.Voice("ar-SA"); got != "ar-SA-HamedNeural" {
		t.Fatalf("Voice(ar-SA) = %q", got)
	}
	if got := p.Voice("de-DE"); got != "en-US-GuyNeural" {
		t.Fatalf("Voice(unknown) = %q, want english fallback", got)
	}
}

func TestSystemPromptGenderGrammar(t *testing.T) {
	slah, _ := PersonaByID(1)
	amira, _ := PersonaByID(2)
	if got := slah.SystemPrompt("fr-FR"); got == amira.SystemPrompt("fr-FR") {
		t.Fatalf("french prompts should differ by gender")
	}
	if got := amira.SystemPrompt("xx"); got != amira.SystemPrompt("en-US") {
		t.Fatalf("unknown language should fall back to english, got %q", got)
	}
}
