// Package prompts собирает тексты промптов для AI-интерпретации.
// Все функции чистые: никакого состояния и никакого I/O.
package prompts

import (
	"fmt"
	"strings"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/models"
)

// SystemPrompt — системный промпт таролога.
const SystemPrompt = "Вы — опытный таролог и копирайтер на русском языке. Всегда отвечайте на русском. " +
	"Не используйте английские слова, латиницу, нечитаемые фрагменты или сырые JSON-метки. " +
	"Формат ответа: заголовок (одно предложение), затем 3 раздела: Прошлое / Настоящее / Будущее. " +
	"Каждый раздел — 2–4 предложения, эмпатичный, понятный, без технических подробностей. " +
	"Итог — одно короткое позитивное резюме (1-2 предложения). Не используйте HTML-теги сами — мы будем экранировать вывод."

// defaultPositions — подписи позиций трехкарточного расклада.
var defaultPositions = []string{"Прошлое", "Настоящее", "Будущее"}

// PositionLabel возвращает подпись позиции расклада (позиции нумеруются с 1).
func PositionLabel(kind models.SpreadKind, position int) string {
	if kind == models.SpreadThree && position >= 1 && position <= len(defaultPositions) {
		return defaultPositions[position-1]
	}
	if kind == models.SpreadSingle {
		return "Карта дня"
	}
	return fmt.Sprintf("Позиция %d", position)
}

// ProfileContext собирает текстовый контекст профиля пользователя.
// Возвращает пустую строку, если ни одно поле не заполнено.
func ProfileContext(p models.UserProfile) string {
	if p.Age <= 0 && p.Gender == "" && p.Name == "" {
		return ""
	}

	genderLabel := "человек"
	switch strings.ToLower(p.Gender) {
	case "male":
		genderLabel = "мужчина"
	case "female":
		genderLabel = "женщина"
	}

	var agePhrase string
	switch {
	case p.Age <= 0:
	case p.Age < 25:
		agePhrase = "молодой"
	case p.Age <= 35:
		agePhrase = "в расцвете сил"
	case p.Age <= 50:
		agePhrase = "зрелый"
	default:
		agePhrase = "опытный"
	}

	lines := []string{
		"Учитывай следующие данные о пользователе при интерпретации, но НЕ упоминай их прямо в тексте:",
	}
	if p.Name != "" {
		lines = append(lines, "- Имя: "+p.Name)
	}
	if p.Gender != "" {
		lines = append(lines, "- Пол: "+genderLabel)
	}
	if p.Age > 0 {
		lines = append(lines, fmt.Sprintf("- Возраст: %d лет (%s)", p.Age, agePhrase))
	}
	lines = append(lines, "Используй эти данные для тонкой настройки интерпретации, но не указывай их явно.")

	return strings.Join(lines, "\n")
}

// CardsText собирает текст по картам для промпта.
func CardsText(kind models.SpreadKind, cards []models.DrawnCard) string {
	if len(cards) == 0 {
		return "нет данных по картам"
	}

	// Одна карта — просто список без позиций.
	if kind == models.SpreadSingle || len(cards) == 1 {
		lines := make([]string, 0, len(cards))
		for _, c := range cards {
			lines = append(lines, fmt.Sprintf("• %s (%s)", c.Name, c.Orientation.Label()))
		}
		return strings.Join(lines, "\n")
	}

	lines := make([]string, 0, len(cards))
	for i, c := range cards {
		position := c.Position
		if position == "" {
			if i < len(defaultPositions) {
				position = defaultPositions[i]
			} else {
				position = fmt.Sprintf("Позиция %d", i+1)
			}
		}
		lines = append(lines, fmt.Sprintf("• %s: %s (%s)", position, c.Name, c.Orientation.Label()))
	}
	return strings.Join(lines, "\n")
}

// SpreadPrompt строит пользовательский промпт первичной интерпретации расклада.
func SpreadPrompt(req models.GenerationRequest) string {
	category := req.Topic
	if category == "" {
		category = "общий"
	}

	parts := []string{
		"Ты — профессиональный русскоязычный таролог с 20-летним стажем.",
		"",
		"🚨 ВАЖНЫЕ ПРАВИЛА ЯЗЫКА:",
		"1. Отвечай ТОЛЬКО на русском языке.",
		"2. Не используй английские слова, кроме общеупотребимых имён собственных.",
		"3. Пиши живым, человечным, разговорным языком, как опытный таролог, объясняющий расклад клиенту.",
		"4. Избегай категоричных предсказаний смерти, тяжёлых заболеваний и других пугающих прогнозов.",
		"5. Не используй технические форматы (JSON, списки ключ-значение и т.п.).",
		"",
	}
	if pc := ProfileContext(req.Profile); pc != "" {
		parts = append(parts, pc, "")
	}
	parts = append(parts,
		"Тип расклада: "+req.Kind.DisplayName(),
		"Категория вопроса: "+category,
		"",
		"Карты в раскладе:",
		CardsText(req.Kind, req.Cards),
		"",
		"Начни интерпретацию на русском языке:",
	)
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// QuestionPrompt строит промпт ответа на вопрос по уже сделанному раскладу.
func QuestionPrompt(record *models.SpreadRecord, question string, profile models.UserProfile) string {
	category := record.Topic
	if category == "" {
		category = "общий"
	}
	cardsText := CardsText(record.Kind, record.Cards)
	if strings.TrimSpace(cardsText) == "" {
		cardsText = "нет подробного описания карт"
	}

	parts := []string{
		"Ты — опытный таролог. Ответь на вопрос пользователя по предыдущему раскладу.",
		"",
	}
	if pc := ProfileContext(profile); pc != "" {
		parts = append(parts, pc, "")
	}
	parts = append(parts,
		fmt.Sprintf("Вопрос пользователя: %q", strings.TrimSpace(question)),
		"",
		"Информация о раскладе:",
		"- Тип: "+record.Kind.DisplayName(),
		"- Категория: "+category,
		"- Карты: "+cardsText,
		"- Исходная интерпретация: "+strings.TrimSpace(record.Interpretation),
		"",
		"Ответ (только на русском языке):",
	)
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
