package game

import (
	"math/rand"
	"time"

	"github.com/jason-s-yu/hanabi/internal/models"
)

// DeckSize is the number of cards in a full deck.
const DeckSize = 50

// copiesPerNumber is how many cards of each number every color has.
var copiesPerNumber = map[models.Number]int{
	models.One:   3,
	models.Two:   2,
	models.Three: 2,
	models.Four:  2,
	models.Five:  1,
}

// Deck is the draw pile. Cards are drawn from the end of the slice.
type Deck struct {
	cards []models.Card
}

// NewDeck builds the full card population and shuffles it with rng.
// A nil rng uses a time seeded source.
func NewDeck(rng *rand.Rand) *Deck {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	cards := population()
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	return &Deck{cards: cards}
}

// population returns the 50 cards in color then number order with ids 1..50.
func population() []models.Card {
	cards := make([]models.Card, 0, DeckSize)
	id := 1
	for _, color := range models.Colors {
		for _, number := range models.Numbers {
			for i := 0; i < copiesPerNumber[number]; i++ {
				cards = append(cards, models.Card{ID: id, Color: color, Number: number})
				id++
			}
		}
	}
	return cards
}

// Draw removes and returns the top card. ok is false once the deck is exhausted.
func (d *Deck) Draw() (card models.Card, ok bool) {
	if len(d.cards) == 0 {
		return models.Card{}, false
	}
	last := len(d.cards) - 1
	card = d.cards[last]
	d.cards = d.cards[:last]
	return card, true
}

func (d *Deck) Len() int { return len(d.cards) }

func (d *Deck) IsEmpty() bool { return len(d.cards) == 0 }

// undraw puts a dealt card back on top. Only used to take back cards dealt
// before the game started.
func (d *Deck) undraw(c models.Card) {
	d.cards = append(d.cards, c)
}

// cardsCopy is used for invariant checks.
func (d *Deck) cardsCopy() []models.Card {
	out := make([]models.Card, len(d.cards))
	copy(out, d.cards)
	return out
}
