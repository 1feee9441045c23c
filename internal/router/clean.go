package router

import (
	"regexp"
	"strings"
	"unicode"
)

const maxInterpretationLength = 2000

// leadInPhrases — шаблонные вступления, которые вырезаются из ответа.
var leadInPhrases = []string{
	"Конечно, вот интерпретация:",
	"Вот интерпретация вашего расклада:",
	"Интерпретация карт:",
	"Вот что говорят карта:",
	"Карты показывают:",
	"На основе вашего расклада:",
}

// anglicisms — точечные замены англицизмов, которые модели иногда оставляют.
var anglicisms = map[string]string{
	"responsable":    "ответственный",
	"stable":         "стабильный",
	"energy":         "энергия",
	"card":           "карта",
	"spread":         "расклад",
	"upright":        "прямая",
	"reversed":       "перевернутая",
	"tarot":          "таро",
	"reading":        "гадание",
	"interpretation": "толкование",
	"advice":         "совет",
	"guidance":       "руководство",
	"message":        "послание",
}

var (
	thinkOpenRe = regexp.MustCompile(`(?s)<think>.*`)
	thinkTagRe  = regexp.MustCompile(`(?i)</?think>`)
)

// CleanResponse приводит принятый ответ к виду, пригодному для показа:
// вырезает внутренний монолог reasoning-моделей, шаблонные вступления
// и англицизмы, обрезает слишком длинный текст.
func CleanResponse(text string) string {
	if text == "" {
		return text
	}

	// Внутренний монолог reasoning-моделей (<think>...</think>).
	if strings.Contains(text, "<think>") {
		if idx := strings.Index(text, "</think>"); idx >= 0 {
			text = text[idx+len("</think>"):]
		} else {
			text = thinkOpenRe.ReplaceAllString(text, "")
		}
	}
	text = thinkTagRe.ReplaceAllString(text, "")

	for _, phrase := range leadInPhrases {
		text = strings.ReplaceAll(text, phrase, "")
	}

	for wrong, correct := range anglicisms {
		text = strings.ReplaceAll(text, wrong, correct)
		text = strings.ReplaceAll(text, capitalize(wrong), capitalize(correct))
	}

	text = strings.TrimSpace(text)

	if runes := []rune(text); len(runes) > maxInterpretationLength {
		text = string(runes[:maxInterpretationLength]) + "..."
	}
	return text
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
