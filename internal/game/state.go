package game

import (
	"fmt"
)

// Phase is the coarse end-of-game state.
type Phase string

const (
	PhaseInProgress Phase = "IN_PROGRESS"
	PhaseFinalRound Phase = "FINAL_ROUND"
	PhaseOver       Phase = "OVER"
)

// EndReason says why a game is over.
type EndReason string

const (
	ReasonNone            EndReason = ""
	ReasonDeckExhausted   EndReason = "DECK_EXHAUSTED"
	ReasonErrorTokensZero EndReason = "ERROR_TOKENS_ZERO"
	ReasonPerfectScore    EndReason = "PERFECT_SCORE"
)

// EndState tracks InProgress -> FinalRound(n) -> Over(reason).
// TurnsLeft is only meaningful in the final round.
type EndState struct {
	Phase     Phase     `json:"phase"`
	TurnsLeft int       `json:"turns_left,omitempty"`
	Reason    EndReason `json:"reason,omitempty"`
}

func (s EndState) IsOver() bool { return s.Phase == PhaseOver }

func (s EndState) String() string {
	switch s.Phase {
	case PhaseFinalRound:
		return fmt.Sprintf("FinalRound(%d)", s.TurnsLeft)
	case PhaseOver:
		return fmt.Sprintf("Over(%s)", s.Reason)
	default:
		return "InProgress"
	}
}

// afterTurn is applied once per completed action that did not end the game.
// players is the table size and deckEmpty the deck state after the action.
func (s EndState) afterTurn(players int, deckEmpty bool) EndState {
	switch s.Phase {
	case PhaseFinalRound:
		if s.TurnsLeft <= 1 {
			return EndState{Phase: PhaseOver, Reason: ReasonDeckExhausted}
		}
		return EndState{Phase: PhaseFinalRound, TurnsLeft: s.TurnsLeft - 1}
	case PhaseInProgress:
		if deckEmpty {
			return EndState{Phase: PhaseFinalRound, TurnsLeft: players}
		}
	}
	return s
}

func over(reason EndReason) EndState {
	return EndState{Phase: PhaseOver, Reason: reason}
}
