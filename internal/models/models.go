package models

import (
	"fmt"
	"strings"
	"time"
)

// Orientation определяет положение карты в раскладе.
type Orientation string

const (
	OrientationUpright  Orientation = "upright"
	OrientationReversed Orientation = "reversed"
)

// Label возвращает русскую подпись положения карты для промптов и сообщений.
func (o Orientation) Label() string {
	if o == OrientationReversed {
		return "перевернутая"
	}
	return "прямая"
}

// Card описывает одну карту колоды Таро.
type Card struct {
	ID               int      `json:"id"`
	Name             string   `json:"name"`
	Arcana           string   `json:"arcana"` // major или minor
	Suit             string   `json:"suit,omitempty"`
	Description      string   `json:"description"`
	KeywordsUpright  []string `json:"keywords_upright"`
	KeywordsReversed []string `json:"keywords_reversed"`
	ImagePath        string   `json:"image_path,omitempty"`
}

// DrawnCard — карта, вытянутая в конкретную позицию расклада.
type DrawnCard struct {
	Card
	Orientation Orientation `json:"orientation"`
	Position    string      `json:"position,omitempty"` // «Прошлое», «Настоящее», «Будущее»
}

// SpreadKind определяет тип расклада.
type SpreadKind string

const (
	SpreadSingle SpreadKind = "single"
	SpreadThree  SpreadKind = "three"
)

// RequiredPositions возвращает количество позиций для типа расклада.
func (k SpreadKind) RequiredPositions() int {
	if k == SpreadThree {
		return 3
	}
	return 1
}

// DisplayName возвращает человеческое название расклада.
func (k SpreadKind) DisplayName() string {
	if k == SpreadThree {
		return "Расклад «Прошлое–Настоящее–Будущее»"
	}
	return "Карта дня"
}

// ParseSpreadKind нормализует внешние обозначения типа расклада.
func ParseSpreadKind(raw string) (SpreadKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "single", "one", "one_card", "card", "1":
		return SpreadSingle, nil
	case "three", "three_card", "three_cards", "3":
		return SpreadThree, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSpreadKind, raw)
	}
}

// SessionStatus — статус интерактивной сессии выбора карт.
type SessionStatus string

const (
	StatusPending    SessionStatus = "pending"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusCancelled  SessionStatus = "cancelled"
)

// Session хранит состояние одной интерактивной сессии выбора карт.
// Все поля присутствуют всегда: нулевое значение означает «не задано».
type Session struct {
	ID              string
	UserID          int64
	ChatID          int64
	Kind            SpreadKind
	Topic           string
	Cards           map[int]DrawnCard // позиция (1..K) -> карта
	CurrentPosition int
	Status          SessionStatus
	AIExecuted      bool
	SavedSpreadID   int64 // 0, пока расклад не сохранен

	// Отслеживаемые идентификаторы сообщений чата (0 — сообщения нет).
	InterfaceMessageID  int
	GeneratingMessageID int
	ResultMessageID     int

	CreatedAt time.Time
}

// CardsInOrder возвращает выбранные карты в порядке позиций.
func (s *Session) CardsInOrder() []DrawnCard {
	cards := make([]DrawnCard, 0, len(s.Cards))
	for pos := 1; pos <= s.Kind.RequiredPositions(); pos++ {
		if c, ok := s.Cards[pos]; ok {
			cards = append(cards, c)
		}
	}
	return cards
}

// UserProfile содержит подсказки профиля для персонализации интерпретации.
type UserProfile struct {
	Name   string
	Age    int    // 0 — неизвестен
	Gender string // male, female или пусто
}

// GenerationRequest — запрос на генерацию интерпретации или ответа на вопрос.
type GenerationRequest struct {
	UserID   int64
	Kind     SpreadKind
	Topic    string
	Cards    []DrawnCard
	Profile  UserProfile
	Question string
	Model    string // явное переопределение модели, обычно пусто
}

// ResultKind различает качество принятого результата генерации.
type ResultKind string

const (
	// ResultValidated — ответ прошел полную валидацию.
	ResultValidated ResultKind = "validated"
	// ResultFallbackAccepted — принят лучший из невалидных кандидатов.
	ResultFallbackAccepted ResultKind = "fallback_accepted"
	// ResultLocalFallback — локальный шаблон без обращения к сети.
	ResultLocalFallback ResultKind = "local_fallback"
	// ResultFailed — ни одна модель не дала пригодного текста.
	ResultFailed ResultKind = "failed"
)

// GenerationResult — итог работы роутера моделей.
type GenerationResult struct {
	Kind     ResultKind
	Text     string
	Model    string
	Failures map[string]string // модель -> причина, заполняется при полном отказе
	Err      error             // ErrAllModelsFailed или ErrModelInCooldown при Kind == failed
}

// Usable сообщает, есть ли в результате текст, пригодный для показа пользователю.
func (r GenerationResult) Usable() bool {
	return r.Kind == ResultValidated || r.Kind == ResultFallbackAccepted
}

// SpreadRecord — сохраненный расклад из хранилища.
type SpreadRecord struct {
	ID             int64
	UserID         int64
	Kind           SpreadKind
	Topic          string
	Cards          []DrawnCard
	Interpretation string
	CreatedAt      time.Time
}
