package game

import "errors"

// Rule and precondition failures returned by Game. None of them mutate state.
var (
	ErrDuplicatePlayer    = errors.New("player already exists")
	ErrInvalidName        = errors.New("player name is empty")
	ErrInsufficientCards  = errors.New("deck cannot supply a full hand")
	ErrTableFull          = errors.New("table is full")
	ErrNotEnoughPlayers   = errors.New("not enough players to start")
	ErrGameAlreadyStarted = errors.New("game already started")
	ErrGameNotStarted     = errors.New("game not started")
	ErrGameOver           = errors.New("game is over")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrCardNotFound       = errors.New("card not found in hand")
	ErrNoHintTokens       = errors.New("no hint tokens left")
	ErrSelfHint           = errors.New("players cannot hint themselves")
	ErrInvalidHint        = errors.New("hint names no valid color or number")
)
