package router

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Пороговые значения валидации ответа.
const (
	minResponseLength = 50
	minCyrillicRatio  = 0.8
	// fallbackAcceptMin — минимальная длина, при которой невалидный
	// ответ еще сохраняется как fallback-кандидат.
	fallbackAcceptMin = 10
	maxQuestionMarks  = 2
	minWordCount      = 30
)

var englishRefusals = []string{
	"i cannot", "i'm sorry", "as an ai", "i am not able",
	"cannot fulfill", "unable to", "not appropriate", "i'm an ai",
	"as a language model", "i'm a language model",
}

// fillerPhrases — шаблонные встречные вопросы и канцеляризмы,
// по которым ответ бракуется целиком.
var fillerPhrases = []string{
	"provide me with more context",
	"could you please provide",
	"what would you like me to do",
	"i need more information",
	"please provide",
	"tell me more",
	"какую задачу",
	"что вы хотите",
	"пожалуйста, предоставьте",
	"уточните, пожалуйста",
	"как таролог, я",
	"в качестве таролога",
	"согласно картам таро",
}

var forbiddenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`<[^>]+>`),        // HTML-теги
	regexp.MustCompile(`\{.*?\}`),        // JSON-подобные структуры
	regexp.MustCompile(`\[.*?\]`),        // квадратные скобки с содержимым
	regexp.MustCompile(`(?i)https?://`),  // URL
	regexp.MustCompile(`(?i)www\.`),      // URL без протокола
	regexp.MustCompile(`(?i)\\[a-z_]+`),  // бэкслеш-команды
}

// cyrillicRatio возвращает долю кириллических символов в тексте.
func cyrillicRatio(text string) float64 {
	runes := []rune(text)
	if len(runes) == 0 {
		return 0
	}
	count := 0
	for _, r := range runes {
		if r >= 0x0400 && r <= 0x04FF {
			count++
		}
	}
	return float64(count) / float64(len(runes))
}

// Validate проверяет пригодность текста интерпретации.
// Возвращает (валиден, причина). Причина валидного текста — "valid".
func Validate(text string) (bool, string) {
	t := strings.TrimSpace(text)
	if t == "" {
		return false, "empty_or_not_string"
	}

	length := len([]rune(t))
	if length < minResponseLength {
		return false, fmt.Sprintf("too_short_%d", length)
	}

	ratio := cyrillicRatio(t)
	if ratio < minCyrillicRatio {
		return false, fmt.Sprintf("low_cyrillic_ratio_%.2f", ratio)
	}

	lower := strings.ToLower(t)
	for _, refusal := range englishRefusals {
		if strings.Contains(lower, refusal) {
			return false, "contains_english_refusal"
		}
	}
	for _, phrase := range fillerPhrases {
		if strings.Contains(lower, phrase) {
			return false, "contains_filler_phrase"
		}
	}

	for _, pattern := range forbiddenPatterns {
		if pattern.MatchString(t) {
			return false, "contains_forbidden_tokens"
		}
	}

	if strings.Count(lower, "?") > maxQuestionMarks {
		return false, "too_many_questions"
	}
	if len(strings.Fields(t)) < minWordCount {
		return false, "too_few_words"
	}

	return true, "valid"
}

// CandidateScore оценивает невалидный ответ для выбора лучшего fallback.
// Чем выше оценка, тем лучше кандидат.
func CandidateScore(text, validationReason string) float64 {
	score := 0.0
	length := len([]rune(strings.TrimSpace(text)))

	// Базовый счет за длину, нормализован до 1.0.
	score += min(float64(length)/1000.0, 1.0)

	ratio := cyrillicRatio(text)
	score += ratio

	switch {
	case strings.Contains(validationReason, "low_cyrillic_ratio"):
		if parsed, err := strconv.ParseFloat(lastToken(validationReason), 64); err == nil {
			score += parsed * 0.3
		} else {
			score += 0.2
		}
	case strings.Contains(validationReason, "too_short"):
		if parsed, err := strconv.Atoi(lastToken(validationReason)); err == nil {
			score += (float64(parsed) / minResponseLength) * 0.2
		} else {
			score += 0.05
		}
	case strings.Contains(validationReason, "contains_english_refusal"),
		strings.Contains(validationReason, "contains_forbidden"),
		strings.Contains(validationReason, "contains_filler"):
		score *= 0.1
	}

	return score
}

func lastToken(reason string) string {
	parts := strings.Split(reason, "_")
	return parts[len(parts)-1]
}
