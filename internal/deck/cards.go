package deck

import (
	"fmt"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/models"
)

// majorArcana — 22 старших аркана с ключевыми словами.
var majorArcana = []models.Card{
	{Name: "Шут", Description: "Начало пути, спонтанность и доверие к жизни.", KeywordsUpright: []string{"новое начало", "свобода", "спонтанность"}, KeywordsReversed: []string{"безрассудство", "наивность", "риск"}},
	{Name: "Маг", Description: "Воля, мастерство и умение воплощать задуманное.", KeywordsUpright: []string{"воля", "мастерство", "концентрация"}, KeywordsReversed: []string{"манипуляции", "обман", "нереализованность"}},
	{Name: "Верховная Жрица", Description: "Интуиция, тайное знание и внутренний голос.", KeywordsUpright: []string{"интуиция", "тайна", "мудрость"}, KeywordsReversed: []string{"скрытность", "поверхностность", "игнорирование интуиции"}},
	{Name: "Императрица", Description: "Изобилие, забота и творческое плодородие.", KeywordsUpright: []string{"изобилие", "забота", "творчество"}, KeywordsReversed: []string{"зависимость", "застой", "гиперопека"}},
	{Name: "Император", Description: "Порядок, стабильность и уверенное руководство.", KeywordsUpright: []string{"порядок", "стабильность", "авторитет"}, KeywordsReversed: []string{"жесткость", "контроль", "упрямство"}},
	{Name: "Иерофант", Description: "Традиции, духовное наставничество и обучение.", KeywordsUpright: []string{"традиция", "наставник", "знание"}, KeywordsReversed: []string{"догматизм", "бунт", "ограничения"}},
	{Name: "Влюбленные", Description: "Выбор сердца, союз и гармония отношений.", KeywordsUpright: []string{"любовь", "выбор", "гармония"}, KeywordsReversed: []string{"разлад", "сомнения", "неверный выбор"}},
	{Name: "Колесница", Description: "Движение вперед, победа и сила воли.", KeywordsUpright: []string{"победа", "движение", "решимость"}, KeywordsReversed: []string{"потеря контроля", "препятствия", "распыление"}},
	{Name: "Сила", Description: "Мягкая сила, терпение и владение собой.", KeywordsUpright: []string{"сила духа", "терпение", "смелость"}, KeywordsReversed: []string{"слабость", "сомнения", "вспыльчивость"}},
	{Name: "Отшельник", Description: "Уединение, поиск истины и внутренний свет.", KeywordsUpright: []string{"поиск", "мудрость", "уединение"}, KeywordsReversed: []string{"изоляция", "одиночество", "замкнутость"}},
	{Name: "Колесо Фортуны", Description: "Перемены, циклы судьбы и новые возможности.", KeywordsUpright: []string{"удача", "перемены", "судьба"}, KeywordsReversed: []string{"неудача", "сопротивление переменам", "застой"}},
	{Name: "Справедливость", Description: "Равновесие, честность и закономерный итог.", KeywordsUpright: []string{"справедливость", "равновесие", "честность"}, KeywordsReversed: []string{"несправедливость", "предвзятость", "уклонение"}},
	{Name: "Повешенный", Description: "Пауза, новый взгляд и осознанная жертва.", KeywordsUpright: []string{"пауза", "переосмысление", "жертва"}, KeywordsReversed: []string{"застревание", "сопротивление", "напрасная жертва"}},
	{Name: "Смерть", Description: "Завершение этапа и неизбежное обновление.", KeywordsUpright: []string{"завершение", "трансформация", "обновление"}, KeywordsReversed: []string{"страх перемен", "затянувшееся прощание", "стагнация"}},
	{Name: "Умеренность", Description: "Баланс, терпение и поиск золотой середины.", KeywordsUpright: []string{"баланс", "умеренность", "исцеление"}, KeywordsReversed: []string{"крайности", "дисбаланс", "нетерпение"}},
	{Name: "Дьявол", Description: "Привязанности, искушения и скрытые зависимости.", KeywordsUpright: []string{"искушение", "зависимость", "материализм"}, KeywordsReversed: []string{"освобождение", "осознание", "разрыв оков"}},
	{Name: "Башня", Description: "Внезапное разрушение иллюзий и освобождение.", KeywordsUpright: []string{"потрясение", "разрушение", "откровение"}, KeywordsReversed: []string{"избегание катастрофы", "страх перемен", "затяжной кризис"}},
	{Name: "Звезда", Description: "Надежда, вдохновение и тихое обновление.", KeywordsUpright: []string{"надежда", "вдохновение", "вера"}, KeywordsReversed: []string{"разочарование", "уныние", "потеря веры"}},
	{Name: "Луна", Description: "Иллюзии, подсознание и неясные тревоги.", KeywordsUpright: []string{"интуиция", "иллюзии", "подсознание"}, KeywordsReversed: []string{"прояснение", "рассеивание страхов", "самообман"}},
	{Name: "Солнце", Description: "Радость, ясность и жизненная энергия.", KeywordsUpright: []string{"радость", "успех", "ясность"}, KeywordsReversed: []string{"временные трудности", "пессимизм", "задержка успеха"}},
	{Name: "Суд", Description: "Пробуждение, переоценка и второй шанс.", KeywordsUpright: []string{"пробуждение", "призвание", "возрождение"}, KeywordsReversed: []string{"самокритика", "сомнения", "отказ от призыва"}},
	{Name: "Мир", Description: "Завершение цикла, целостность и достижение.", KeywordsUpright: []string{"завершение", "целостность", "достижение"}, KeywordsReversed: []string{"незавершенность", "задержка", "отсутствие итога"}},
}

var suits = []struct {
	name     string
	genitive string
	theme    string
}{
	{"Жезлы", "Жезлов", "энергия, действие и творческий порыв"},
	{"Кубки", "Кубков", "чувства, отношения и интуиция"},
	{"Мечи", "Мечей", "разум, решения и конфликты"},
	{"Пентакли", "Пентаклей", "материя, работа и ресурсы"},
}

var ranks = []string{
	"Туз", "Двойка", "Тройка", "Четверка", "Пятерка", "Шестерка",
	"Семерка", "Восьмерка", "Девятка", "Десятка",
	"Паж", "Рыцарь", "Королева", "Король",
}

// buildDeck собирает полную колоду из 78 карт: старшие арканы с
// индивидуальными описаниями, младшие — по масти и достоинству.
func buildDeck() []models.Card {
	cards := make([]models.Card, 0, 78)

	for i, card := range majorArcana {
		card.ID = i
		card.Arcana = "major"
		card.ImagePath = fmt.Sprintf("assets/cards/major_%02d.jpg", i)
		cards = append(cards, card)
	}

	id := len(majorArcana)
	for si, suit := range suits {
		for ri, rank := range ranks {
			cards = append(cards, models.Card{
				ID:               id,
				Name:             fmt.Sprintf("%s %s", rank, suit.genitive),
				Arcana:           "minor",
				Suit:             suit.name,
				Description:      fmt.Sprintf("Карта масти %s: %s.", suit.name, suit.theme),
				KeywordsUpright:  []string{suit.theme},
				KeywordsReversed: []string{"блокировка: " + suit.theme},
				ImagePath:        fmt.Sprintf("assets/cards/minor_%d_%02d.jpg", si, ri),
			})
			id++
		}
	}

	return cards
}
