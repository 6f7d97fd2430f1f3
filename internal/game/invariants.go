package game

import (
	"fmt"

	"github.com/jason-s-yu/hanabi/internal/models"
)

// CheckInvariants verifies card conservation, id disjointness, token bounds
// and the turn cursor. It returns the first violation found.
func (g *Game) CheckInvariants() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.hintTokens < 0 || g.hintTokens > g.Rules.HintTokens {
		return fmt.Errorf("hint tokens %d outside [0, %d]", g.hintTokens, g.Rules.HintTokens)
	}
	if g.errorTokens < 0 || g.errorTokens > g.Rules.ErrorTokens {
		return fmt.Errorf("error tokens %d outside [0, %d]", g.errorTokens, g.Rules.ErrorTokens)
	}
	if g.current >= len(g.players) || (g.started && g.current < 0) {
		return fmt.Errorf("turn cursor %d does not name one of %d players", g.current, len(g.players))
	}

	seen := make(map[int]string, DeckSize)
	claim := func(c models.Card, where string) error {
		if c.ID < 1 || c.ID > DeckSize {
			return fmt.Errorf("card %s in %s has an id outside 1..%d", c, where, DeckSize)
		}
		if prev, dup := seen[c.ID]; dup {
			return fmt.Errorf("card id %d is in both %s and %s", c.ID, prev, where)
		}
		seen[c.ID] = where
		return nil
	}

	for _, c := range g.deck.cardsCopy() {
		if err := claim(c, "deck"); err != nil {
			return err
		}
	}
	for _, p := range g.players {
		for _, c := range p.Hand {
			if err := claim(c.Card, "hand of "+p.Name); err != nil {
				return err
			}
		}
	}
	for _, c := range g.discards {
		if err := claim(c, "discard pile"); err != nil {
			return err
		}
	}

	perColor := make(map[models.Color]int)
	for _, c := range g.playedCards {
		if err := claim(c, "played stacks"); err != nil {
			return err
		}
		perColor[c.Color]++
	}
	for _, color := range models.Colors {
		if want := g.played[color].Score(); perColor[color] != want {
			return fmt.Errorf("%s stack is at %d but holds %d cards", color, want, perColor[color])
		}
	}
	if len(seen) != DeckSize {
		return fmt.Errorf("card conservation broken: %d cards accounted for, want %d", len(seen), DeckSize)
	}
	return nil
}
