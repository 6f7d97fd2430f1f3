// internal/game/game.go
package game

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/hanabi/internal/models"
	"github.com/sirupsen/logrus"
)

// MaxScore is the score with every stack at FIVE.
const MaxScore = 25

// TurnResult is attached to every successful action so the caller can tell
// clients whose turn it is and whether the game ended.
type TurnResult struct {
	NextPlayer string   `json:"next_player,omitempty"`
	State      EndState `json:"state"`
	Score      int      `json:"score"`
}

// DiscardOutcome describes a successful discard.
type DiscardOutcome struct {
	TurnResult
	Player     string       `json:"player"`
	Discarded  models.Card  `json:"discarded_card"`
	Drawn      *models.Card `json:"drawn_card,omitempty"`
	HintGained bool         `json:"hint_gained"`
}

// PlayOutcome describes a play attempt. Success false means an error token was
// burnt and the card went to the discard pile. EpicFail is set when that burnt
// the last error token and ended the game.
type PlayOutcome struct {
	TurnResult
	Player     string       `json:"player"`
	Card       models.Card  `json:"played_card"`
	Drawn      *models.Card `json:"drawn_card,omitempty"`
	Success    bool         `json:"success"`
	HintGained bool         `json:"hint_gained"`
	EpicFail   bool         `json:"epic_fail"`
}

// HintOutcome describes a hint. Exactly one of Color and Number is set.
// Matched lists the ids of the target's cards the hint applied to.
type HintOutcome struct {
	TurnResult
	From    string         `json:"hinting_player"`
	Target  string         `json:"target_player"`
	Color   *models.Color  `json:"hinted_color,omitempty"`
	Number  *models.Number `json:"hinted_number,omitempty"`
	Matched []int          `json:"matched_card_ids"`
}

// Game is the authoritative state of one table. Every exported method takes
// the lock, so callers never see a half applied action.
type Game struct {
	ID    uuid.UUID
	Rules Rules

	mu  sync.Mutex
	log logrus.FieldLogger

	hintTokens  int
	errorTokens int
	played      map[models.Color]models.Number
	playedCards []models.Card
	players     []*models.Player
	deck        *Deck
	discards    []models.Card

	started bool
	current int // index into players; -1 until Start
	turns   int // successful actions since Start
	end     EndState
}

// Option customises a Game at construction.
type Option func(*Game)

// WithRand makes the deck order deterministic.
func WithRand(rng *rand.Rand) Option {
	return func(g *Game) { g.deck = NewDeck(rng) }
}

// WithLogger sets the logger; the default is the logrus standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(g *Game) { g.log = l }
}

// WithDeck installs a prepared deck. Tests use it to stack the deck.
func WithDeck(d *Deck) Option {
	return func(g *Game) { g.deck = d }
}

// NewGame creates a table with full token pools and a freshly shuffled deck.
func NewGame(rules Rules, opts ...Option) (*Game, error) {
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	g := &Game{
		ID:          uuid.New(),
		Rules:       rules,
		log:         logrus.StandardLogger(),
		hintTokens:  rules.HintTokens,
		errorTokens: rules.ErrorTokens,
		played:      make(map[models.Color]models.Number),
		discards:    make([]models.Card, 0, DeckSize),
		current:     -1,
		end:         EndState{Phase: PhaseInProgress},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.deck == nil {
		g.deck = NewDeck(nil)
	}
	g.log = g.log.WithField("game", g.ID)
	g.log.Debugf("Created game with %d cards in deck.", g.deck.Len())
	return g, nil
}

// AddPlayer seats a new player and deals their hand off the top of the deck.
func (g *Game) AddPlayer(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case strings.TrimSpace(name) == "":
		return ErrInvalidName
	case g.started:
		return ErrGameAlreadyStarted
	case g.playerByName(name) != nil:
		return ErrDuplicatePlayer
	case len(g.players) >= g.Rules.MaxPlayers:
		return ErrTableFull
	}

	handSize := g.Rules.HandSizeFor(len(g.players) + 1)
	if g.deck.Len() < handSize {
		g.log.Warnf("Not enough cards left to seat %s.", name)
		return ErrInsufficientCards
	}

	hand := make([]models.CardInHand, 0, handSize)
	for i := 0; i < handSize; i++ {
		c, _ := g.deck.Draw()
		hand = append(hand, models.NewCardInHand(c))
	}
	p := &models.Player{Name: name, Seat: len(g.players), Hand: hand}
	g.players = append(g.players, p)
	g.log.WithField("player", name).Infof("Player seated with %d cards, %d players at table.", handSize, len(g.players))
	return nil
}

// Start fixes turn order to join order and gives the first turn to the first
// player who joined. On a large table the hands dealt before it became large
// are cut down to the large table size; the surplus goes back on the deck in
// reverse deal order, which is safe because no hand has been shown yet.
func (g *Game) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return ErrGameAlreadyStarted
	}
	if len(g.players) < g.Rules.MinPlayers {
		return ErrNotEnoughPlayers
	}

	size := g.Rules.HandSizeFor(len(g.players))
	for i := len(g.players) - 1; i >= 0; i-- {
		p := g.players[i]
		for len(p.Hand) > size {
			last := len(p.Hand) - 1
			g.deck.undraw(p.Hand[last].Card)
			p.Hand = p.Hand[:last]
		}
	}

	g.started = true
	g.current = 0
	if g.deck.IsEmpty() {
		g.end = EndState{Phase: PhaseFinalRound, TurnsLeft: len(g.players)}
	}
	g.log.Infof("Game started with %d players, %s goes first.", len(g.players), g.players[0].Name)
	return nil
}

// DiscardCard moves a card from the player's hand to the discard pile, draws a
// replacement if possible and regains a hint token below the maximum.
func (g *Game) DiscardCard(name string, cardID int) (DiscardOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, idx, err := g.locateCard(name, cardID)
	if err != nil {
		return DiscardOutcome{}, err
	}

	card, drawn := g.replaceCard(p, idx)
	g.discards = append(g.discards, card)

	out := DiscardOutcome{Player: name, Discarded: card, Drawn: drawn}
	if g.hintTokens < g.Rules.HintTokens {
		g.hintTokens++
		out.HintGained = true
	}
	g.log.WithField("player", name).Debugf("Discarded %s, %d hint tokens.", card, g.hintTokens)

	g.finishTurn()
	out.TurnResult = g.turnResult()
	return out, nil
}

// PlayCard tries to put a card on its color's stack using the next-largest
// rule. A failed play burns an error token and discards the card; burning the
// last token ends the game.
func (g *Game) PlayCard(name string, cardID int) (PlayOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, idx, err := g.locateCard(name, cardID)
	if err != nil {
		return PlayOutcome{}, err
	}

	card, drawn := g.replaceCard(p, idx)
	out := PlayOutcome{Player: name, Card: card, Drawn: drawn}
	logger := g.log.WithField("player", name)

	if card.Number.IsNextLargest(g.topOf(card.Color)) {
		g.played[card.Color] = card.Number
		g.playedCards = append(g.playedCards, card)
		out.Success = true
		if card.Number == models.Five && g.hintTokens < g.Rules.HintTokens {
			g.hintTokens++
			out.HintGained = true
		}
		logger.Debugf("Played %s, stacks now %v.", card, g.played)
		if g.Rules.EndOnPerfectScore && g.score() == MaxScore {
			g.end = over(ReasonPerfectScore)
		}
	} else {
		g.errorTokens--
		g.discards = append(g.discards, card)
		logger.Debugf("Failed to play %s, %d error tokens left.", card, g.errorTokens)
		if g.errorTokens == 0 {
			out.EpicFail = true
			g.end = over(ReasonErrorTokensZero)
		}
	}

	if !g.end.IsOver() {
		g.finishTurn()
	} else {
		logger.Infof("Game over (%s) with score %d.", g.end.Reason, g.score())
	}
	out.TurnResult = g.turnResult()
	return out, nil
}

// HintColor tells target which of their cards are of the given color.
func (g *Game) HintColor(from, target string, color models.Color) (HintOutcome, error) {
	if !color.Valid() {
		return HintOutcome{}, ErrInvalidHint
	}
	out, err := g.hint(from, target, func(c *models.CardInHand) bool {
		return c.Knowledge.ApplyColorHint(c.Card.Color, color)
	})
	if err == nil {
		out.Color = &color
	}
	return out, err
}

// HintNumber tells target which of their cards carry the given number.
func (g *Game) HintNumber(from, target string, number models.Number) (HintOutcome, error) {
	if !number.Valid() {
		return HintOutcome{}, ErrInvalidHint
	}
	out, err := g.hint(from, target, func(c *models.CardInHand) bool {
		return c.Knowledge.ApplyNumberHint(c.Card.Number, number)
	})
	if err == nil {
		out.Number = &number
	}
	return out, err
}

// hint spends a token and applies update to every card in the target's hand.
// update reports whether the card matched the hint.
func (g *Game) hint(from, target string, update func(*models.CardInHand) bool) (HintOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.checkPlayable(); err != nil {
		return HintOutcome{}, err
	}
	if g.playerByName(from) == nil {
		return HintOutcome{}, ErrPlayerNotFound
	}
	p := g.playerByName(target)
	if p == nil {
		return HintOutcome{}, ErrPlayerNotFound
	}
	if from == target {
		return HintOutcome{}, ErrSelfHint
	}
	if g.hintTokens <= 0 {
		return HintOutcome{}, ErrNoHintTokens
	}

	g.hintTokens--
	out := HintOutcome{From: from, Target: target, Matched: []int{}}
	for i := range p.Hand {
		if update(&p.Hand[i]) {
			out.Matched = append(out.Matched, p.Hand[i].Card.ID)
		}
	}
	g.log.WithField("player", from).Debugf("Hinted %s, %d cards matched, %d hint tokens left.", target, len(out.Matched), g.hintTokens)

	g.finishTurn()
	out.TurnResult = g.turnResult()
	return out, nil
}

// Score is the sum of the top number of every stack.
func (g *Game) Score() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.score()
}

// TurnsLeft returns the remaining turns once the final round has begun.
func (g *Game) TurnsLeft() (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.end.Phase != PhaseFinalRound {
		return 0, false
	}
	return g.end.TurnsLeft, true
}

func (g *Game) DeckIsEmpty() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.deck.IsEmpty()
}

func (g *Game) State() EndState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.end
}

func (g *Game) IsOver() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.end.IsOver()
}

func (g *Game) Started() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.started
}

// CurrentPlayer returns whose turn it is. ok is false before Start.
func (g *Game) CurrentPlayer() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current < 0 {
		return "", false
	}
	return g.players[g.current].Name, true
}

// PlayerNames returns the seated players in turn order.
func (g *Game) PlayerNames() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, len(g.players))
	for i, p := range g.players {
		names[i] = p.Name
	}
	return names
}

// Tokens returns the current hint and error token counts.
func (g *Game) Tokens() (hints, errs int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hintTokens, g.errorTokens
}

// --- internal helpers, all assume the lock is held ---

func (g *Game) checkPlayable() error {
	if !g.started {
		return ErrGameNotStarted
	}
	if g.end.IsOver() {
		return ErrGameOver
	}
	return nil
}

func (g *Game) locateCard(name string, cardID int) (*models.Player, int, error) {
	if err := g.checkPlayable(); err != nil {
		return nil, -1, err
	}
	p := g.playerByName(name)
	if p == nil {
		return nil, -1, ErrPlayerNotFound
	}
	idx := p.CardIndex(cardID)
	if idx < 0 {
		return nil, -1, ErrCardNotFound
	}
	return p, idx, nil
}

// replaceCard takes the card at idx out of the hand and puts a fresh draw in
// its slot. With an empty deck the hand shrinks instead.
func (g *Game) replaceCard(p *models.Player, idx int) (models.Card, *models.Card) {
	removed := p.Hand[idx].Card
	next, ok := g.deck.Draw()
	if !ok {
		p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
		return removed, nil
	}
	p.Hand[idx] = models.NewCardInHand(next)
	return removed, &next
}

// finishTurn advances the cursor and the end-of-game state machine.
func (g *Game) finishTurn() {
	g.turns++
	g.end = g.end.afterTurn(len(g.players), g.deck.IsEmpty())
	if g.end.IsOver() {
		g.log.Infof("Final round complete, game over with score %d.", g.score())
		return
	}
	g.current = (g.current + 1) % len(g.players)
	g.log.Debugf("Turn %d: next player %s (%s).", g.turns, g.players[g.current].Name, g.end)
}

func (g *Game) turnResult() TurnResult {
	tr := TurnResult{State: g.end, Score: g.score()}
	if !g.end.IsOver() && g.current >= 0 {
		tr.NextPlayer = g.players[g.current].Name
	}
	return tr
}

func (g *Game) topOf(c models.Color) *models.Number {
	n, ok := g.played[c]
	if !ok {
		return nil
	}
	return &n
}

func (g *Game) score() int {
	total := 0
	for _, n := range g.played {
		total += n.Score()
	}
	return total
}

func (g *Game) playerByName(name string) *models.Player {
	for _, p := range g.players {
		if p.Name == name {
			return p
		}
	}
	return nil
}
