package persona

// Language is one of the closed set of locales the assistant speaks.
type Language struct {
	Code     string // BCP-47 code used by speech services
	Name     string // spoken name used in IVR menus
	Digit    string // IVR key-press that selects it
	SayVoice string // telephony <Say> voice
}

// Persona is a named assistant identity with its own voice and gender grammar.
type Persona struct {
	ID    int
	Name  string
	Male  bool
	Role  string // spoken description used in IVR menus
	Digit string
}

var languages = []Language{
	{Code: "en-US", Name: "English", Digit: "1", SayVoice: "alice"},
	{Code: "ar-SA", Name: "Arabic", Digit: "2", SayVoice: "alice"},
	{Code: "fr-FR", Name: "French", Digit: "3", SayVoice: "alice"},
}

var personas = []Persona{
	{ID: 1, Name: "Slah", Male: true, Role: "our B2B Enterprise Assistant", Digit: "1"},
	{ID: 2, Name: "Amira", Male: false, Role: "our B2C Customer Assistant", Digit: "2"},
}

// Edge TTS voices per persona and language.
var voices = map[int]map[string]string{
	1: {
		"en-US": "en-US-GuyNeural",
		"fr-FR": "fr-FR-HenriNeural",
		"ar-SA": "ar-SA-HamedNeural",
	},
	2: {
		"en-US": "en-US-JennyNeural",
		"fr-FR": "fr-FR-DeniseNeural",
		"ar-SA": "ar-SA-ZariyahNeural",
	},
}

// Languages returns the supported locales in menu order.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// Personas returns the available assistants in menu order.
func Personas() []Persona {
	out := make([]Persona, len(personas))
	copy(out, personas)
	return out
}

// DefaultLanguage is applied when the caller never picks one.
func DefaultLanguage() Language { return languages[0] }

// DefaultPersona is applied when the caller never picks one.
func DefaultPersona() Persona { return personas[1] }

func LanguageByDigit(digit string) (Language, bool) {
	for _, l := range languages {
		if l.Digit == digit {
			return l, true
		}
	}
	return Language{}, false
}

func LanguageByCode(code string) (Language, bool) {
	for _, l := range languages {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

func PersonaByDigit(digit string) (Persona, bool) {
	for _, p := range personas {
		if p.Digit == digit {
			return p, true
		}
	}
	return Persona{}, false
}

func PersonaByID(id int) (Persona, bool) {
	for _, p := range personas {
		if p.ID == id {
			return p, true
		}
	}
	return Persona{}, false
}

// Voice returns the speech-synthesis voice for the persona in the given
// locale, falling back to the English voice for unknown codes.
func (p Persona) Voice(langCode string) string {
	m, ok := voices[p.ID]
	if !ok {
		m = voices[DefaultPersona().ID]
	}
	if v, ok := m[langCode]; ok {
		return v
	}
	return m["en-US"]
}

// SystemPrompt returns the gender-aware advisor prompt for the persona.
// French and Arabic inflect the advisor noun by grammatical gender.
func (p Persona) SystemPrompt(langCode string) string {
	switch langCode {
	case "fr-FR":
		if p.Male {
			return "Vous êtes " + p.Name + ", un conseiller télécom humain et amical pour Ooredoo."
		}
		return "Vous êtes " + p.Name + ", une conseillère télécom humaine et amicale pour Ooredoo."
	case "ar-SA":
		if p.Male {
			return "أنت " + p.Name + "، مستشار اتصالات بشري وودود في أوريدو."
		}
		return "أنت " + p.Name + "، مستشارة اتصالات بشرية وودودة في أوريدو."
	default:
		return "You are " + p.Name + ", a friendly human telecom advisor for Ooredoo."
	}
}
