package domain

const PivotLanguage = "en"

var supportedLanguages = map[string]string{
	"en": "English",
	"hi": "Hindi",
	"te": "Telugu",
	"ta": "Tamil",
	"kn": "Kannada",
	"mr": "Marathi",
	"gu": "Gujarati",
	"bn": "Bengali",
	"ml": "Malayalam",
	"pa": "Punjabi",
}

func IsSupportedLanguage(code string) bool {
	_, ok := supportedLanguages[code]
	return ok
}

// LanguageName returns the English name of a supported language code, or the
// code itself.
func LanguageName(code string) string {
	if name, ok := supportedLanguages[code]; ok {
		return name
	}
	return code
}
