package handlers

import (
	"errors"

	"github.com/jason-s-yu/hanabi/internal/game"
)

// Explanations sent in ERROR_RESPONSE. Clients match on these strings.
const (
	explainUnreadableType   = "The type of the message could not be read."
	explainBadPayload       = "The payload of the received message could not be deserialized."
	explainAlreadyConnected = "The Player is already connected."
	explainNotConnected     = "The Player is not yet connected."
	explainJoinAfterStart   = "Connection refused because the game has already started."
	explainGameOver         = "The game is already over."
	explainNotYourTurn      = "It is not the Player's turn."
	explainBadPassword      = "The table password is incorrect."
	explainInternal         = "The request could not be processed."
)

var explanations = []struct {
	err  error
	text string
}{
	{game.ErrDuplicatePlayer, "A Player with the chosen name already exists."},
	{game.ErrInvalidName, "The chosen name is empty."},
	{game.ErrInsufficientCards, "The deck has no more cards to deal a new hand."},
	{game.ErrTableFull, "The table is full."},
	{game.ErrNotEnoughPlayers, "Not enough Players have joined to start the game."},
	{game.ErrGameAlreadyStarted, "The game has already started."},
	{game.ErrGameNotStarted, "The game has not started yet."},
	{game.ErrGameOver, explainGameOver},
	{game.ErrPlayerNotFound, "The given Player could not be found."},
	{game.ErrCardNotFound, "The given Card cannot be found on the Player's hand."},
	{game.ErrNoHintTokens, "Hint token count is zero, a hint cannot be played."},
	{game.ErrSelfHint, "A Player cannot give a hint to themselves."},
	{game.ErrInvalidHint, "The hint names no valid color or number."},
}

// explain maps an engine error to the text shown to the player.
func explain(err error) string {
	for _, e := range explanations {
		if errors.Is(err, e.err) {
			return e.text
		}
	}
	return explainInternal
}
