package usecase

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
	"github.com/kirillkom/funding-rag-assistant/internal/core/ports"
)

type LanguageService struct {
	detector      ports.LanguageDetector
	defaultLang   string
	minConfidence float64
}

func NewLanguageService(detector ports.LanguageDetector, defaultLang string, minConfidence float64) *LanguageService {
	if !domain.IsSupportedLanguage(defaultLang) {
		defaultLang = domain.PivotLanguage
	}
	return &LanguageService{
		detector:      detector,
		defaultLang:   defaultLang,
		minConfidence: minConfidence,
	}
}

// Resolve picks the language of text. A supported hint wins over detection.
// When neither yields a supported language the default is returned together
// with an ErrUnsupportedLanguage error; callers continue with the default.
func (s *LanguageService) Resolve(text, hint string) (string, error) {
	if hint = strings.TrimSpace(hint); hint != "" {
		if code, ok := normalizeLanguageTag(hint); ok {
			return code, nil
		}
	}

	if s.detector == nil {
		return s.defaultLang, nil
	}
	code, confidence := s.detector.Detect(text)
	if code == "" || confidence < s.minConfidence {
		return s.defaultLang, domain.WrapError(domain.ErrUnsupportedLanguage, "detect language",
			fmt.Errorf("detected %q with confidence %.2f", code, confidence))
	}
	if !domain.IsSupportedLanguage(code) {
		return s.defaultLang, domain.WrapError(domain.ErrUnsupportedLanguage, "detect language",
			fmt.Errorf("language %q is not supported", code))
	}
	return code, nil
}

// normalizeLanguageTag accepts BCP 47 tags ("hi-IN", "HI") and English
// language names ("Hindi").
func normalizeLanguageTag(hint string) (string, bool) {
	for _, code := range languageCodes {
		if strings.EqualFold(domain.LanguageName(code), hint) {
			return code, true
		}
	}
	tag, err := language.Parse(hint)
	if err != nil {
		return "", false
	}
	base, _ := tag.Base()
	code := base.String()
	return code, domain.IsSupportedLanguage(code)
}

var languageCodes = []string{"en", "hi", "te", "ta", "kn", "mr", "gu", "bn", "ml", "pa"}
