package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Action types written to the action log.
const (
	ActionJoin      = "JOIN"
	ActionStart     = "START"
	ActionDiscard   = "DISCARD"
	ActionPlay      = "PLAY"
	ActionHint      = "HINT"
	ActionGameOver  = "GAME_OVER"
	ActionAbandoned = "ABANDONED"
)

// ActionRecord is one accepted move as it travels through the action queue to
// the historian. Payload is the outcome the table broadcast, without any
// per-player view.
type ActionRecord struct {
	GameID      uuid.UUID       `json:"game_id"`
	ActionIndex int             `json:"action_index"`
	Actor       string          `json:"actor"`
	ActionType  string          `json:"action_type"`
	Payload     json.RawMessage `json:"action_payload"`
	Timestamp   int64           `json:"timestamp"` // epoch millis
}

// Ends reports whether the record closes its game in the archive.
func (r ActionRecord) Ends() bool {
	return r.ActionType == ActionGameOver || r.ActionType == ActionAbandoned
}
