package ollama

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
)

func buildTranslationPrompt(text, from, to string) string {
	return fmt.Sprintf(`Translate the text below from %s to %s.
Keep company names, investor names, numbers, currency symbols and citation markers like [1] unchanged.
Return only the translation, without quotes or explanations.

Text:
%s
`, domain.LanguageName(from), domain.LanguageName(to), text)
}

// translationTokenBudget leaves room for scripts that tokenize into many
// pieces per character.
func translationTokenBudget(text string) int {
	n := utf8.RuneCountInString(text)*3 + 32
	if n > 2048 {
		return 2048
	}
	return n
}

func cleanTranslation(raw string) string {
	out := strings.TrimSpace(raw)
	for _, prefix := range []string{"Translation:", "translation:"} {
		out = strings.TrimSpace(strings.TrimPrefix(out, prefix))
	}
	out = strings.Trim(out, "\"'`“”")
	return strings.TrimSpace(out)
}
