// internal/game/game_test.go
package game

import (
	"errors"
	"io"
	"math/rand"
	"testing"

	"github.com/jason-s-yu/hanabi/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cn struct {
	c models.Color
	n models.Number
}

// stackedDeck returns a deck whose first draws are the given cards in order.
// The rest of the population follows in canonical order.
func stackedDeck(t *testing.T, first ...cn) *Deck {
	t.Helper()
	rest := population()
	drawOrder := make([]models.Card, 0, DeckSize)
	for _, want := range first {
		found := -1
		for i, c := range rest {
			if c.Color == want.c && c.Number == want.n {
				found = i
				break
			}
		}
		require.NotEqual(t, -1, found, "no %s %s left to stack", want.c, want.n)
		drawOrder = append(drawOrder, rest[found])
		rest = append(rest[:found], rest[found+1:]...)
	}
	drawOrder = append(drawOrder, rest...)

	// Draw pops from the end, so store the draw order reversed.
	cards := make([]models.Card, len(drawOrder))
	for i, c := range drawOrder {
		cards[len(cards)-1-i] = c
	}
	return &Deck{cards: cards}
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// setupTestGame seats the named players and starts the game.
func setupTestGame(t *testing.T, rules Rules, deck *Deck, names ...string) *Game {
	t.Helper()
	opts := []Option{WithLogger(quietLogger())}
	if deck != nil {
		opts = append(opts, WithDeck(deck))
	} else {
		opts = append(opts, WithRand(rand.New(rand.NewSource(42))))
	}
	g, err := NewGame(rules, opts...)
	require.NoError(t, err)
	for _, n := range names {
		require.NoError(t, g.AddPlayer(n))
	}
	require.NoError(t, g.Start())
	require.NoError(t, g.CheckInvariants())
	return g
}

func handOf(g *Game, name string) []models.CardInHand {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.playerByName(name)
	out := make([]models.CardInHand, len(p.Hand))
	copy(out, p.Hand)
	return out
}

func findCard(t *testing.T, g *Game, name string, c models.Color, n models.Number) int {
	t.Helper()
	for _, h := range handOf(g, name) {
		if h.Card.Color == c && h.Card.Number == n {
			return h.Card.ID
		}
	}
	t.Fatalf("%s holds no %s %s", name, c, n)
	return 0
}

func TestNewDeckPopulation(t *testing.T) {
	d := NewDeck(rand.New(rand.NewSource(1)))
	require.Equal(t, DeckSize, d.Len())

	ids := map[int]bool{}
	counts := map[cn]int{}
	for !d.IsEmpty() {
		c, ok := d.Draw()
		require.True(t, ok)
		assert.False(t, ids[c.ID], "duplicate id %d", c.ID)
		ids[c.ID] = true
		counts[cn{c.Color, c.Number}]++
	}
	assert.Len(t, ids, DeckSize)
	for _, color := range models.Colors {
		assert.Equal(t, 3, counts[cn{color, models.One}])
		assert.Equal(t, 2, counts[cn{color, models.Two}])
		assert.Equal(t, 2, counts[cn{color, models.Three}])
		assert.Equal(t, 2, counts[cn{color, models.Four}])
		assert.Equal(t, 1, counts[cn{color, models.Five}])
	}

	_, ok := d.Draw()
	assert.False(t, ok, "an exhausted deck signals exhaustion instead of failing")
}

func TestNewGameRejectsBadRules(t *testing.T) {
	r := DefaultRules()
	r.HintTokens = 0
	_, err := NewGame(r)
	assert.Error(t, err)

	r = DefaultRules()
	r.LargeTableHandSize = 6
	_, err = NewGame(r)
	assert.Error(t, err)
}

func TestAddPlayerErrors(t *testing.T) {
	g, err := NewGame(DefaultRules(), WithLogger(quietLogger()))
	require.NoError(t, err)

	require.NoError(t, g.AddPlayer("alice"))
	assert.ErrorIs(t, g.AddPlayer("alice"), ErrDuplicatePlayer)
	assert.ErrorIs(t, g.AddPlayer("  "), ErrInvalidName)
	assert.ErrorIs(t, g.Start(), ErrNotEnoughPlayers)

	require.NoError(t, g.AddPlayer("bob"))
	require.NoError(t, g.Start())
	assert.ErrorIs(t, g.AddPlayer("carol"), ErrGameAlreadyStarted)
	assert.ErrorIs(t, g.Start(), ErrGameAlreadyStarted)
}

func TestAddPlayerTableFull(t *testing.T) {
	g, err := NewGame(DefaultRules(), WithLogger(quietLogger()))
	require.NoError(t, err)
	for _, n := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, g.AddPlayer(n))
	}
	assert.ErrorIs(t, g.AddPlayer("f"), ErrTableFull)
}

func TestAddPlayerInsufficientCards(t *testing.T) {
	r := DefaultRules()
	r.MaxPlayers = 20
	r.LargeTableThreshold = 100
	g, err := NewGame(r, WithLogger(quietLogger()))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, g.AddPlayer(string(rune('a'+i))))
	}
	assert.True(t, g.DeckIsEmpty())
	assert.ErrorIs(t, g.AddPlayer("late"), ErrInsufficientCards)
	assert.Len(t, g.PlayerNames(), 10)
}

func TestActionsBeforeStart(t *testing.T) {
	g, err := NewGame(DefaultRules(), WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, g.AddPlayer("alice"))
	require.NoError(t, g.AddPlayer("bob"))

	_, err = g.DiscardCard("alice", 1)
	assert.ErrorIs(t, err, ErrGameNotStarted)
	_, err = g.HintColor("alice", "bob", models.Red)
	assert.ErrorIs(t, err, ErrGameNotStarted)
	_, ok := g.CurrentPlayer()
	assert.False(t, ok)
}

func TestSmallTableHandSize(t *testing.T) {
	g := setupTestGame(t, DefaultRules(), nil, "alice", "bob", "carol")
	for _, n := range g.PlayerNames() {
		assert.Len(t, handOf(g, n), 5)
	}
	assert.Equal(t, DeckSize-15, g.deck.Len())
}

func TestLargeTableHandSize(t *testing.T) {
	g, err := NewGame(DefaultRules(), WithLogger(quietLogger()), WithRand(rand.New(rand.NewSource(3))))
	require.NoError(t, err)
	for _, n := range []string{"a", "b", "c", "d"} {
		require.NoError(t, g.AddPlayer(n))
	}
	assert.Len(t, handOf(g, "a"), 5, "seats dealt before the table became large")
	assert.Len(t, handOf(g, "d"), 4)

	require.NoError(t, g.Start())
	for _, n := range g.PlayerNames() {
		assert.Len(t, handOf(g, n), 4)
	}
	assert.Equal(t, DeckSize-16, g.deck.Len())
	require.NoError(t, g.CheckInvariants())
}

// Three players with hands of five; alice plays a red one, bob misplays a
// second red one and the turn passes to carol.
func TestPlayAndMisplayScenario(t *testing.T) {
	deck := stackedDeck(t,
		cn{models.Red, models.One}, cn{models.Blue, models.Two}, cn{models.Blue, models.Three}, cn{models.Green, models.Four}, cn{models.White, models.Two},
		cn{models.Red, models.One}, cn{models.Yellow, models.Two}, cn{models.Yellow, models.Three}, cn{models.Green, models.Two}, cn{models.White, models.Three},
	)
	g := setupTestGame(t, DefaultRules(), deck, "alice", "bob", "carol")

	cur, _ := g.CurrentPlayer()
	require.Equal(t, "alice", cur)

	out, err := g.PlayCard("alice", findCard(t, g, "alice", models.Red, models.One))
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.NotNil(t, out.Drawn)
	assert.Len(t, handOf(g, "alice"), 5, "played card is replaced")
	assert.Equal(t, "bob", out.NextPlayer)
	assert.Equal(t, 1, g.Score())

	bobRed := findCard(t, g, "bob", models.Red, models.One)
	out, err = g.PlayCard("bob", bobRed)
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.False(t, out.EpicFail)
	_, errs := g.Tokens()
	assert.Equal(t, 2, errs)
	assert.Equal(t, "carol", out.NextPlayer)

	v := g.View("carol")
	require.NotEmpty(t, v.DiscardPile)
	assert.Equal(t, bobRed, v.DiscardPile[len(v.DiscardPile)-1].ID)
	assert.Equal(t, models.One, v.PlayedStacks[models.Red])
	require.NoError(t, g.CheckInvariants())
}

func TestDiscardDoesNotOverflowHints(t *testing.T) {
	g := setupTestGame(t, DefaultRules(), nil, "alice", "bob", "carol")

	out, err := g.DiscardCard("alice", handOf(g, "alice")[0].Card.ID)
	require.NoError(t, err)
	assert.False(t, out.HintGained)
	hints, _ := g.Tokens()
	assert.Equal(t, 8, hints)
}

func TestDiscardRegainsHint(t *testing.T) {
	g := setupTestGame(t, DefaultRules(), nil, "alice", "bob")

	_, err := g.HintNumber("alice", "bob", models.One)
	require.NoError(t, err)
	hints, _ := g.Tokens()
	require.Equal(t, 7, hints)

	out, err := g.DiscardCard("bob", handOf(g, "bob")[2].Card.ID)
	require.NoError(t, err)
	assert.True(t, out.HintGained)
	hints, _ = g.Tokens()
	assert.Equal(t, 8, hints)
}

func TestDiscardUnknownCardAndPlayer(t *testing.T) {
	g := setupTestGame(t, DefaultRules(), nil, "alice", "bob")

	_, err := g.DiscardCard("alice", handOf(g, "bob")[0].Card.ID)
	assert.ErrorIs(t, err, ErrCardNotFound, "a card in another hand is not in yours")
	_, err = g.PlayCard("mallory", 1)
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	cur, _ := g.CurrentPlayer()
	assert.Equal(t, "alice", cur, "failed actions do not advance the turn")
}

func TestHintMarksEveryCard(t *testing.T) {
	deck := stackedDeck(t,
		cn{models.Red, models.One}, cn{models.Red, models.Two}, cn{models.Blue, models.One}, cn{models.Green, models.Four}, cn{models.White, models.One},
		cn{models.Red, models.Three}, cn{models.Yellow, models.Two}, cn{models.Red, models.Four}, cn{models.Green, models.Two}, cn{models.White, models.Three},
	)
	g := setupTestGame(t, DefaultRules(), deck, "alice", "bob")

	out, err := g.HintColor("alice", "bob", models.Red)
	require.NoError(t, err)
	require.NotNil(t, out.Color)
	assert.Equal(t, models.Red, *out.Color)
	assert.Len(t, out.Matched, 2)

	for _, c := range handOf(g, "bob") {
		if c.Card.Color == models.Red {
			assert.True(t, c.Knowledge.KnowsColor, "matching card %s", c.Card)
			assert.True(t, c.Knowledge.ExcludedColors.Empty())
		} else {
			assert.False(t, c.Knowledge.KnowsColor, "non matching card %s", c.Card)
			assert.True(t, c.Knowledge.ExcludedColors.Has(models.Red))
		}
	}

	out, err = g.HintNumber("bob", "alice", models.One)
	require.NoError(t, err)
	assert.Len(t, out.Matched, 3)
	for _, c := range handOf(g, "alice") {
		if c.Card.Number == models.One {
			assert.True(t, c.Knowledge.KnowsNumber)
		} else {
			assert.True(t, c.Knowledge.ExcludedNumbers.Has(models.One))
		}
	}

	hints, _ := g.Tokens()
	assert.Equal(t, 6, hints)
}

func TestHintWithNoMatchesStillExcludes(t *testing.T) {
	deck := stackedDeck(t,
		cn{models.Red, models.One}, cn{models.Red, models.Two}, cn{models.Red, models.Three}, cn{models.Red, models.Four}, cn{models.Red, models.One},
		cn{models.Blue, models.One}, cn{models.Blue, models.Two}, cn{models.Blue, models.Three}, cn{models.Blue, models.Four}, cn{models.Blue, models.One},
	)
	g := setupTestGame(t, DefaultRules(), deck, "alice", "bob")

	out, err := g.HintColor("alice", "bob", models.White)
	require.NoError(t, err)
	assert.Empty(t, out.Matched)
	for _, c := range handOf(g, "bob") {
		assert.True(t, c.Knowledge.ExcludedColors.Has(models.White))
	}
}

func TestHintErrors(t *testing.T) {
	r := DefaultRules()
	r.HintTokens = 1
	g := setupTestGame(t, r, nil, "alice", "bob")

	_, err := g.HintColor("alice", "alice", models.Red)
	assert.ErrorIs(t, err, ErrSelfHint)
	_, err = g.HintColor("alice", "nobody", models.Red)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	_, err = g.HintNumber("alice", "bob", models.Number(9))
	assert.ErrorIs(t, err, ErrInvalidHint)

	_, err = g.HintColor("alice", "bob", models.Red)
	require.NoError(t, err)
	_, err = g.HintNumber("bob", "alice", models.Two)
	assert.ErrorIs(t, err, ErrNoHintTokens)

	cur, _ := g.CurrentPlayer()
	assert.Equal(t, "bob", cur)
}

func TestPlayingFiveRegainsHintUpToMax(t *testing.T) {
	deck := stackedDeck(t,
		cn{models.Red, models.One}, cn{models.Red, models.Two}, cn{models.Red, models.Three}, cn{models.Red, models.Four}, cn{models.Red, models.Five},
		cn{models.Blue, models.One}, cn{models.Blue, models.Two}, cn{models.Blue, models.Three}, cn{models.Blue, models.Four}, cn{models.Blue, models.Five},
	)
	g := setupTestGame(t, DefaultRules(), deck, "alice", "bob")

	// alice builds red while bob burns a hint each round.
	for i, n := range []models.Number{models.One, models.Two, models.Three, models.Four} {
		out, err := g.PlayCard("alice", findCard(t, g, "alice", models.Red, n))
		require.NoError(t, err, "play %d", i)
		require.True(t, out.Success)
		_, err = g.HintColor("bob", "alice", models.Green)
		require.NoError(t, err)
	}
	hints, _ := g.Tokens()
	require.Equal(t, 4, hints)

	out, err := g.PlayCard("alice", findCard(t, g, "alice", models.Red, models.Five))
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.True(t, out.HintGained)
	hints, _ = g.Tokens()
	assert.Equal(t, 5, hints)

	require.NoError(t, g.CheckInvariants())
}

func TestPlayFiveAtMaxHints(t *testing.T) {
	deck := stackedDeck(t,
		cn{models.Red, models.One}, cn{models.Red, models.Two}, cn{models.Red, models.Three}, cn{models.Red, models.Four}, cn{models.Red, models.Five},
		cn{models.Blue, models.One}, cn{models.Blue, models.One}, cn{models.Blue, models.One}, cn{models.White, models.One}, cn{models.White, models.One},
	)
	g := setupTestGame(t, DefaultRules(), deck, "alice", "bob")

	for _, n := range []models.Number{models.One, models.Two, models.Three, models.Four} {
		_, err := g.PlayCard("alice", findCard(t, g, "alice", models.Red, n))
		require.NoError(t, err)
		// bob discards so tokens stay at max.
		_, err = g.DiscardCard("bob", handOf(g, "bob")[0].Card.ID)
		require.NoError(t, err)
	}
	out, err := g.PlayCard("alice", findCard(t, g, "alice", models.Red, models.Five))
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.False(t, out.HintGained)
	hints, _ := g.Tokens()
	assert.Equal(t, 8, hints)
	assert.Equal(t, 5, g.Score())
}

func TestErrorTokensZeroEndsGame(t *testing.T) {
	deck := stackedDeck(t,
		cn{models.Red, models.Two}, cn{models.Red, models.Three}, cn{models.Red, models.Four}, cn{models.Blue, models.Two}, cn{models.Blue, models.Three},
		cn{models.Green, models.Two}, cn{models.Green, models.Three}, cn{models.Green, models.Four}, cn{models.White, models.Two}, cn{models.White, models.Three},
	)
	g := setupTestGame(t, DefaultRules(), deck, "alice", "bob")

	out, err := g.PlayCard("alice", findCard(t, g, "alice", models.Red, models.Two))
	require.NoError(t, err)
	assert.False(t, out.Success)
	out, err = g.PlayCard("bob", findCard(t, g, "bob", models.Green, models.Two))
	require.NoError(t, err)
	assert.False(t, out.EpicFail)

	before := len(g.View("alice").DiscardPile)
	card := findCard(t, g, "alice", models.Red, models.Three)
	out, err = g.PlayCard("alice", card)
	require.NoError(t, err)
	assert.True(t, out.EpicFail)
	assert.Equal(t, PhaseOver, out.State.Phase)
	assert.Equal(t, ReasonErrorTokensZero, out.State.Reason)
	assert.Empty(t, out.NextPlayer)

	v := g.View("alice")
	assert.Len(t, v.DiscardPile, before+1, "the failed card still lands on the discard pile")
	assert.Equal(t, card, v.DiscardPile[len(v.DiscardPile)-1].ID)
	_, errs := g.Tokens()
	assert.Equal(t, 0, errs)

	_, err = g.DiscardCard("bob", handOf(g, "bob")[0].Card.ID)
	assert.ErrorIs(t, err, ErrGameOver)
	_, err = g.HintColor("bob", "alice", models.Red)
	assert.ErrorIs(t, err, ErrGameOver)
	require.NoError(t, g.CheckInvariants())
}

// Once the last card is drawn each player gets exactly one more turn.
func TestFinalRoundAfterDeckExhausted(t *testing.T) {
	g := setupTestGame(t, DefaultRules(), nil, "alice", "bob", "carol")
	names := g.PlayerNames()

	for i := 0; !g.DeckIsEmpty(); i++ {
		cur, ok := g.CurrentPlayer()
		require.True(t, ok)
		require.Equal(t, names[i%3], cur)
		_, err := g.DiscardCard(cur, handOf(g, cur)[0].Card.ID)
		require.NoError(t, err)
		require.NoError(t, g.CheckInvariants())
	}

	left, ok := g.TurnsLeft()
	require.True(t, ok)
	assert.Equal(t, 3, left)
	assert.Equal(t, PhaseFinalRound, g.State().Phase)

	for i := 0; i < 3; i++ {
		cur, _ := g.CurrentPlayer()
		target := names[0]
		if target == cur {
			target = names[1]
		}
		out, err := g.HintNumber(cur, target, models.One)
		require.NoError(t, err)
		if i < 2 {
			assert.Equal(t, PhaseFinalRound, out.State.Phase)
			assert.Equal(t, 2-i, out.State.TurnsLeft)
		} else {
			assert.Equal(t, PhaseOver, out.State.Phase)
			assert.Equal(t, ReasonDeckExhausted, out.State.Reason)
		}
	}
	assert.True(t, g.IsOver())
	assert.Equal(t, 0, g.Score())
	_, err := g.HintNumber("alice", "bob", models.One)
	assert.ErrorIs(t, err, ErrGameOver)
}

func TestHandShrinksWhenDeckEmpty(t *testing.T) {
	g := setupTestGame(t, DefaultRules(), nil, "alice", "bob")
	for !g.DeckIsEmpty() {
		cur, _ := g.CurrentPlayer()
		_, err := g.DiscardCard(cur, handOf(g, cur)[0].Card.ID)
		require.NoError(t, err)
	}
	cur, _ := g.CurrentPlayer()
	before := len(handOf(g, cur))
	out, err := g.DiscardCard(cur, handOf(g, cur)[0].Card.ID)
	require.NoError(t, err)
	assert.Nil(t, out.Drawn)
	assert.Len(t, handOf(g, cur), before-1)
	require.NoError(t, g.CheckInvariants())
}

func TestPerfectScoreEndsGame(t *testing.T) {
	g := setupTestGame(t, DefaultRules(), nil, "alice", "bob")

	// Hand-build the position: every stack complete except red at four.
	g.mu.Lock()
	for _, c := range models.Colors {
		g.played[c] = models.Five
	}
	g.played[models.Red] = models.Four
	g.players[0].Hand[0] = models.NewCardInHand(models.Card{ID: 99, Color: models.Red, Number: models.Five})
	g.mu.Unlock()

	out, err := g.PlayCard("alice", 99)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, ReasonPerfectScore, out.State.Reason)
	assert.Equal(t, MaxScore, out.Score)
}

func TestRoundRobin(t *testing.T) {
	g := setupTestGame(t, DefaultRules(), nil, "a", "b", "c", "d")
	names := g.PlayerNames()
	for m := 0; m < 20; m++ {
		cur, _ := g.CurrentPlayer()
		require.Equal(t, names[m%len(names)], cur, "after %d actions", m)
		_, err := g.DiscardCard(cur, handOf(g, cur)[0].Card.ID)
		require.NoError(t, err)
	}
}

// Random legal play until the game ends, checking invariants after every step.
func TestRandomGamesKeepInvariants(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		rng := rand.New(rand.NewSource(seed))
		g := setupTestGame(t, DefaultRules(), NewDeck(rng), "a", "b", "c")
		names := g.PlayerNames()
		prevErrs := 3

		for steps := 0; !g.IsOver(); steps++ {
			require.Less(t, steps, 500, "seed %d did not terminate", seed)
			cur, _ := g.CurrentPlayer()
			hand := handOf(g, cur)
			var err error
			switch rng.Intn(3) {
			case 0:
				_, err = g.PlayCard(cur, hand[rng.Intn(len(hand))].Card.ID)
			case 1:
				_, err = g.DiscardCard(cur, hand[rng.Intn(len(hand))].Card.ID)
			default:
				target := names[(rng.Intn(2)+1+indexOf(names, cur))%3]
				_, err = g.HintColor(cur, target, models.Colors[rng.Intn(5)])
				if errors.Is(err, ErrNoHintTokens) {
					_, err = g.DiscardCard(cur, hand[0].Card.ID)
				}
			}
			require.NoError(t, err, "seed %d step %d", seed, steps)
			require.NoError(t, g.CheckInvariants(), "seed %d step %d", seed, steps)

			_, errs := g.Tokens()
			require.LessOrEqual(t, errs, prevErrs)
			prevErrs = errs
		}
		assert.True(t, g.State().IsOver())
		if prevErrs == 0 {
			assert.Equal(t, ReasonErrorTokensZero, g.State().Reason)
		}
	}
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
