// Package deck реализует колоду Таро со случайной раздачей карт.
package deck

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/interfaces"
	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/models"
)

// RNG — источник случайности, инжектируемый для детерминированных тестов.
type RNG interface {
	Intn(n int) int
}

// Compile-time check to ensure Deck implements interfaces.Deck
var _ interfaces.Deck = (*Deck)(nil)

// Deck — полная колода из 78 карт.
type Deck struct {
	mu    sync.Mutex
	cards []models.Card
	rng   RNG
}

// New создает колоду. При rng == nil используется собственный
// генератор, засеянный текущим временем.
func New(rng RNG) *Deck {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Deck{cards: buildDeck(), rng: rng}
}

// Size возвращает количество карт в колоде.
func (d *Deck) Size() int { return len(d.cards) }

// Draw вытягивает n различных карт со случайной ориентацией.
// Одна карта не может выпасть дважды в пределах одного вызова.
func (d *Deck) Draw(_ context.Context, n int, _ string) ([]models.DrawnCard, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: запрошено %d карт", models.ErrEmptyDeck, n)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if n > len(d.cards) {
		return nil, fmt.Errorf("%w: запрошено %d из %d", models.ErrEmptyDeck, n, len(d.cards))
	}

	// Частичная тасовка Фишера-Йетса: первые n позиций.
	indexes := make([]int, len(d.cards))
	for i := range indexes {
		indexes[i] = i
	}
	drawn := make([]models.DrawnCard, 0, n)
	for i := 0; i < n; i++ {
		j := i + d.rng.Intn(len(indexes)-i)
		indexes[i], indexes[j] = indexes[j], indexes[i]

		orientation := models.OrientationUpright
		if d.rng.Intn(2) == 1 {
			orientation = models.OrientationReversed
		}
		drawn = append(drawn, models.DrawnCard{
			Card:        d.cards[indexes[i]],
			Orientation: orientation,
		})
	}
	return drawn, nil
}
