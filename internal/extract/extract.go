package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// Extraction is the best-effort annotation pulled from one utterance.
// Empty fields mean nothing was found; that is a valid outcome.
type Extraction struct {
	Name  string
	Issue string
}

// word matches one name token. Go's \w is ASCII-only; names here arrive in
// French and Arabic too, so spell out the Unicode letter/digit classes.
const word = `[\p{L}\p{N}_]+`

var namePatterns = []*regexp.Regexp{
	// English
	regexp.MustCompile(`my name is (` + word + `(?:\s+` + word + `)*)`),
	regexp.MustCompile(`i'm (` + word + `(?:\s+` + word + `)*)`),
	regexp.MustCompile(`i am (` + word + `(?:\s+` + word + `)*)`),
	regexp.MustCompile(`call me (` + word + `(?:\s+` + word + `)*)`),
	regexp.MustCompile(`this is (` + word + `(?:\s+` + word + `)*)`),
	regexp.MustCompile(`i'm called (` + word + `(?:\s+` + word + `)*)`),
	// French
	regexp.MustCompile(`je m'appelle (` + word + `(?:\s+` + word + `)*)`),
	regexp.MustCompile(`mon nom est (` + word + `(?:\s+` + word + `)*)`),
	regexp.MustCompile(`je suis (` + word + `(?:\s+` + word + `)*)`),
	regexp.MustCompile(`c'est (` + word + `(?:\s+` + word + `)*)`),
	// Arabic, transliterated
	regexp.MustCompile(`ismi (` + word + `(?:\s+` + word + `)*)`),
	regexp.MustCompile(`ana (` + word + `(?:\s+` + word + `)*)`),
}

// Words a caller says after "I'm ..." that are not names.
var nameStoplist = map[string]bool{
	"good": true, "fine": true, "okay": true, "well": true,
	"here": true, "calling": true, "looking": true, "trying": true,
}

// issueCategory keeps a fixed definition order so tie-breaking between equal
// keyword scores is deterministic: the first-defined category wins.
type issueCategory struct {
	name     string
	keywords []string
}

var issueCategories = []issueCategory{
	{name: "billing", keywords: []string{
		"bill", "billing", "payment", "charge", "invoice", "cost", "price", "money", "pay", "owed", "debt",
		"facture", "paiement", "coût", "prix", "argent",
		"فاتورة", "دفع", "سعر", "مال", "تكلفة",
	}},
	{name: "internet", keywords: []string{
		"internet", "wifi", "wi-fi", "connection", "slow", "outage", "speed", "broadband", "network",
		"connexion", "lent", "panne", "vitesse",
		"إنترنت", "واي فاي", "اتصال", "بطيء", "سرعة", "شبكة",
	}},
	{name: "mobile", keywords: []string{
		"phone", "mobile", "cell", "call", "text", "sms", "voicemail", "signal", "roaming",
		"téléphone", "appel", "texto",
		"هاتف", "جوال", "مكالمة", "رسالة", "إشارة",
	}},
	{name: "technical", keywords: []string{
		"technical", "support", "help", "problem", "issue", "error", "bug", "fix", "repair", "broken",
		"technique", "aide", "problème", "erreur", "réparer",
		"تقني", "مساعدة", "مشكلة", "خطأ", "إصلاح",
	}},
	{name: "account", keywords: []string{
		"account", "login", "password", "profile", "settings", "personal", "information", "data",
		"compte", "mot de passe", "profil", "paramètres",
		"حساب", "تسجيل دخول", "كلمة مرور", "ملف شخصي", "إعدادات",
	}},
	{name: "service", keywords: []string{
		"service", "plan", "package", "subscription", "upgrade", "downgrade", "change", "switch",
		"forfait", "abonnement", "amélioration",
		"خدمة", "باقة", "اشتراك", "ترقية", "تغيير",
	}},
}

// Annotate extracts a caller name and issue category from one utterance.
func Annotate(text string) Extraction {
	return Extraction{
		Name:  Name(text),
		Issue: Issue(text),
	}
}

// Name matches self-introduction phrasings against the lowercased text.
// The first matching pattern wins; stoplisted tokens are rejected.
func Name(text string) string {
	lower := strings.ToLower(text)
	for _, re := range namePatterns {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		if first := strings.Fields(name); len(first) > 0 && nameStoplist[first[0]] {
			continue
		}
		return titleCase(name)
	}
	return ""
}

// Issue scores each category by keyword hits and returns the strict maximum.
// Ties resolve to the earlier-defined category; zero hits return "".
func Issue(text string) string {
	lower := strings.ToLower(text)

	best := ""
	bestScore := 0
	for _, cat := range issueCategories {
		score := 0
		for _, kw := range cat.keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			best = cat.name
			bestScore = score
		}
	}
	return best
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 {
			r[0] = unicode.ToUpper(r[0])
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
