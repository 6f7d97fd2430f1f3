// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/hanabi/internal/models"
)

// CardView is a card as one particular player is allowed to see it. Color and
// Number are omitted when the viewer holds the card and has not been told.
type CardView struct {
	ID        int                   `json:"id"`
	Color     *models.Color         `json:"color,omitempty"`
	Number    *models.Number        `json:"number,omitempty"`
	Knowledge *models.CardKnowledge `json:"knowledge,omitempty"`
}

// PlayerView is one seat from the perspective of the requesting player.
type PlayerView struct {
	Name          string     `json:"name"`
	Seat          int        `json:"seat"`
	HandSize      int        `json:"hand_size"`
	IsCurrentTurn bool       `json:"is_current_turn"`
	Hand          []CardView `json:"hand,omitempty"` // omitted before the game starts
}

// TableView is the state snapshot sent to one player.
type TableView struct {
	GameID        uuid.UUID                      `json:"game_id"`
	Started       bool                           `json:"started"`
	HintTokens    int                            `json:"hint_tokens"`
	HintTokensMax int                            `json:"hint_tokens_max"`
	ErrorTokens   int                            `json:"error_tokens"`
	PlayedStacks  map[models.Color]models.Number `json:"played_stacks"`
	DiscardPile   []models.Card                  `json:"discard_pile"`
	DeckSize      int                            `json:"deck_size"`
	NextPlayer    string                         `json:"next_player,omitempty"`
	State         EndState                       `json:"state"`
	Score         int                            `json:"score"`
	Players       []PlayerView                   `json:"players"`
}

// View builds the snapshot for viewer. Every hand but the viewer's own is
// shown in full; the viewer sees only what hints told them about their cards.
func (g *Game) View(viewer string) TableView {
	g.mu.Lock()
	defer g.mu.Unlock()

	v := TableView{
		GameID:        g.ID,
		Started:       g.started,
		HintTokens:    g.hintTokens,
		HintTokensMax: g.Rules.HintTokens,
		ErrorTokens:   g.errorTokens,
		PlayedStacks:  make(map[models.Color]models.Number, len(g.played)),
		DiscardPile:   make([]models.Card, len(g.discards)),
		DeckSize:      g.deck.Len(),
		State:         g.end,
		Score:         g.score(),
		Players:       make([]PlayerView, 0, len(g.players)),
	}
	for c, n := range g.played {
		v.PlayedStacks[c] = n
	}
	copy(v.DiscardPile, g.discards)
	if g.started && !g.end.IsOver() {
		v.NextPlayer = g.players[g.current].Name
	}

	for i, p := range g.players {
		pv := PlayerView{
			Name:          p.Name,
			Seat:          p.Seat,
			HandSize:      len(p.Hand),
			IsCurrentTurn: g.started && !g.end.IsOver() && i == g.current,
		}
		if g.started {
			pv.Hand = make([]CardView, len(p.Hand))
			for j, c := range p.Hand {
				pv.Hand[j] = VisibleCard(viewer, p.Name, c)
			}
		}
		v.Players = append(v.Players, pv)
	}
	return v
}

// VisibleCard renders a card held by owner for viewer.
func VisibleCard(viewer, owner string, c models.CardInHand) CardView {
	k := c.Knowledge
	cv := CardView{ID: c.Card.ID, Knowledge: &k}
	color, number := c.Card.Color, c.Card.Number
	if viewer != owner || k.KnowsColor {
		cv.Color = &color
	}
	if viewer != owner || k.KnowsNumber {
		cv.Number = &number
	}
	return cv
}

// DrawnCardView renders a freshly drawn card. The drawer only learns its id.
func DrawnCardView(viewer, drawer string, c *models.Card) *CardView {
	if c == nil {
		return nil
	}
	cv := VisibleCard(viewer, drawer, models.NewCardInHand(*c))
	return &cv
}
