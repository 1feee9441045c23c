package router

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validInterpretation — эталонный пригодный текст: длинный, русский,
// без встречных вопросов.
func validInterpretation() string {
	return strings.TrimSpace(strings.Repeat("сегодня карты говорят о важных переменах в жизни ", 5))
}

func TestValidate_AcceptsGoodText(t *testing.T) {
	ok, reason := Validate(validInterpretation())
	assert.True(t, ok)
	assert.Equal(t, "valid", reason)
}

func TestValidate_Empty(t *testing.T) {
	ok, reason := Validate("   ")
	assert.False(t, ok)
	assert.Equal(t, "empty_or_not_string", reason)
}

func TestValidate_TooShort(t *testing.T) {
	ok, reason := Validate("короткий ответ")
	assert.False(t, ok)
	assert.Equal(t, "too_short_14", reason)
}

func TestValidate_LowCyrillicRatio(t *testing.T) {
	text := strings.Repeat("the cards show great change ahead for you today my friend ", 3)
	ok, reason := Validate(text)
	assert.False(t, ok)
	assert.Contains(t, reason, "low_cyrillic_ratio_")
}

func TestValidate_EnglishRefusal(t *testing.T) {
	// Отказ попадается и внутри в остальном русского текста.
	text := validInterpretation() + " i cannot continue " + validInterpretation()
	ok, reason := Validate(text)
	assert.False(t, ok)
	assert.Equal(t, "contains_english_refusal", reason)
}

func TestValidate_FillerPhrase(t *testing.T) {
	text := validInterpretation() + " уточните, пожалуйста, детали"
	ok, reason := Validate(text)
	assert.False(t, ok)
	assert.Equal(t, "contains_filler_phrase", reason)
}

func TestValidate_ForbiddenTokens(t *testing.T) {
	cases := map[string]string{
		"html":      validInterpretation() + " <div>вставка</div>",
		"json":      validInterpretation() + " {\"ключ\": 1}",
		"brackets":  validInterpretation() + " [вставка]",
		"backslash": validInterpretation() + " \\boxed",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			ok, reason := Validate(text)
			require.False(t, ok)
			assert.Equal(t, "contains_forbidden_tokens", reason)
		})
	}
}

func TestValidate_TooManyQuestions(t *testing.T) {
	text := validInterpretation() + " что? где? когда?"
	ok, reason := Validate(text)
	assert.False(t, ok)
	assert.Equal(t, "too_many_questions", reason)
}

func TestValidate_TooFewWords(t *testing.T) {
	// Длина выше порога, но слов меньше тридцати.
	text := strings.Repeat("карта", 15)
	ok, reason := Validate(text)
	assert.False(t, ok)
	assert.Equal(t, "too_few_words", reason)
}

func TestCandidateScore_LongerTextScoresHigher(t *testing.T) {
	short := "расклад " + strings.Repeat("о", 20)
	long := strings.Repeat("расклад говорит о переменах ", 20)

	shortScore := CandidateScore(short, "too_short_28")
	longScore := CandidateScore(long, "too_few_words")
	assert.Greater(t, longScore, shortScore)
}

func TestCandidateScore_RefusalPenalized(t *testing.T) {
	text := validInterpretation()
	neutral := CandidateScore(text, "too_few_words")
	refused := CandidateScore(text, "contains_english_refusal")
	assert.Less(t, refused, neutral)
	assert.InDelta(t, neutral*0.1, refused, 1e-9)
}

func TestCandidateScore_ParsesRatioFromReason(t *testing.T) {
	text := strings.Repeat("half русский text тут ", 10)
	withRatio := CandidateScore(text, "low_cyrillic_ratio_0.79")
	generic := CandidateScore(text, "low_cyrillic_ratio_oops")
	// 0.79*0.3 > 0.2 — константа для нечитаемой причины дает меньше.
	assert.Less(t, generic, withRatio)
}

func TestCandidateScore_TooShortUsesParsedLength(t *testing.T) {
	text := "карты говорят"
	parsed := CandidateScore(text, "too_short_13")
	assert.InDelta(t, min(13.0/1000.0, 1.0)+cyrillicRatio(text)+(13.0/50.0)*0.2, parsed, 1e-9)
}
