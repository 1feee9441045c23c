package prompts

import (
	"fmt"
	"strings"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/models"
)

// FallbackInterpretation строит локальную детерминированную интерпретацию
// без обращения к сети — на случай полного отказа всех моделей.
func FallbackInterpretation(kind models.SpreadKind, cards []models.DrawnCard, category, userName string) string {
	if userName == "" {
		userName = "друг"
	}
	if category == "" {
		category = "общий"
	}

	descriptions := make([]string, 0, len(cards))
	for i, c := range cards {
		position := c.Position
		if position == "" {
			position = fmt.Sprintf("Позиция %d", i+1)
		}
		status := "прямая"
		if c.Orientation == models.OrientationReversed {
			status = "перевернута"
		}
		descriptions = append(descriptions, fmt.Sprintf("• %s: %s (%s)", position, c.Name, status))
	}
	cardsText := strings.Join(descriptions, "\n")

	var interpretation string
	switch {
	case kind == models.SpreadSingle && len(cards) > 0:
		interpretation = fmt.Sprintf(
			"%s, карта **%s** указывает на важные энергии в вашей жизни. "+
				"Эта карта связана с категорией **%s** и может говорить о новых возможностях "+
				"или вызовах, которые вам предстоит рассмотреть.",
			userName, cards[0].Name, category)
	case kind == models.SpreadThree:
		interpretation = fmt.Sprintf(
			"%s, ваш расклад **Три Карты** показывает:\n\n%s\n\n"+
				"В контексте **%s** этот расклад раскрывает различные аспекты вашей ситуации. "+
				"Первая карта говорит о прошлом влиянии, вторая - о текущей ситуации, "+
				"третья - о возможном будущем развитии событий.",
			userName, cardsText, category)
	default:
		interpretation = fmt.Sprintf(
			"%s, ваш расклад показывает:\n\n%s\n\n"+
				"В контексте **%s** этот расклад раскрывает различные аспекты вашей ситуации. "+
				"Каждая карта вносит свой уникальный вклад в общую картину.",
			userName, cardsText, category)
	}

	return interpretation + "\n\n🔮 *Базовая интерпретация (AI временно недоступен)*"
}

// FallbackAnswer строит локальный ответ на вопрос по раскладу.
func FallbackAnswer(question, userName string) string {
	if userName == "" {
		userName = "друг"
	}
	return fmt.Sprintf(
		"%s, на основании вашего вопроса:\n\n%q\n\n"+
			"Я рекомендую вам внимательно изучить интерпретацию вашего расклада. "+
			"Каждая карта содержит глубокий символизм, который может пролить свет на вашу ситуацию. "+
			"Обратите внимание на взаимосвязи между картами и их позициями в раскладе.\n\n"+
			"🔮 *Для более детального анализа рекомендуется обратиться к опытному тарологу*",
		userName, question)
}
