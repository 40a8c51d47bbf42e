package policy

import "strings"

// Mixed marks a conversation that switches between languages.
const Mixed = "mixed"

// Language is a supported language code and its display name.
type Language struct {
	Code string
	Name string
}

var Languages = []Language{
	{"en", "English"},
	{"hi", "Hindi"},
	{"ta", "Tamil"},
	{"te", "Telugu"},
	{"bn", "Bengali"},
	{"mr", "Marathi"},
	{"gu", "Gujarati"},
	{"kn", "Kannada"},
	{"ml", "Malayalam"},
	{"pa", "Punjabi"},
	{"es", "Spanish"},
	{"fr", "French"},
	{"de", "German"},
	{"pt", "Portuguese"},
	{"ar", "Arabic"},
	{"zh", "Chinese"},
	{Mixed, "Multiple languages mixed"},
}

var instructions = map[string]string{
	"en":  "Respond in English",
	"hi":  "Respond in Hindi (Devanagari script). Use natural Hindi expressions and grammar.",
	"ta":  "Respond in Tamil (Tamil script). Use natural Tamil expressions and grammar.",
	"te":  "Respond in Telugu (Telugu script). Use natural Telugu expressions and grammar.",
	"bn":  "Respond in Bengali (Bengali script). Use natural Bengali expressions and grammar.",
	"mr":  "Respond in Marathi (Devanagari script). Use natural Marathi expressions and grammar.",
	"gu":  "Respond in Gujarati (Gujarati script). Use natural Gujarati expressions and grammar.",
	"kn":  "Respond in Kannada (Kannada script). Use natural Kannada expressions and grammar.",
	"ml":  "Respond in Malayalam (Malayalam script). Use natural Malayalam expressions and grammar.",
	"pa":  "Respond in Punjabi (Gurmukhi script). Use natural Punjabi expressions and grammar.",
	"es":  "Respond in Spanish. Use natural Spanish expressions and grammar.",
	"fr":  "Respond in French. Use natural French expressions and grammar.",
	"de":  "Respond in German. Use natural German expressions and grammar.",
	"pt":  "Respond in Portuguese. Use natural Portuguese expressions and grammar.",
	"ar":  "Respond in Arabic (Arabic script). Use natural Arabic expressions and grammar.",
	"zh":  "Respond in Chinese (Simplified characters). Use natural Chinese expressions and grammar.",
	Mixed: "Respond in the same language mix as the scammer is using",
}

// Supported reports whether code is a known language code or "mixed".
func Supported(code string) bool {
	_, ok := instructions[strings.ToLower(code)]
	return ok
}

// NormalizeLanguage lowercases code and maps anything unknown to fallback.
func NormalizeLanguage(code, fallback string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if Supported(code) {
		return code
	}
	return fallback
}

// LanguageInstruction tells the generator which language and script to use.
func LanguageInstruction(code string) string {
	if s, ok := instructions[strings.ToLower(code)]; ok {
		return s
	}
	return instructions["en"]
}
