// internal/game/rules.go
package game

import "fmt"

// Rules holds the table configuration. Hand size depends on table size:
// tables with at least LargeTableThreshold players use LargeTableHandSize.
type Rules struct {
	HintTokens          int  `json:"hintTokens"`          // maximum and starting number of hint tokens
	ErrorTokens         int  `json:"errorTokens"`         // starting number of error tokens
	HandSize            int  `json:"handSize"`            // hand size for small tables
	LargeTableHandSize  int  `json:"largeTableHandSize"`  // hand size once the table is large
	LargeTableThreshold int  `json:"largeTableThreshold"` // player count at which a table is large
	MinPlayers          int  `json:"minPlayers"`          // players required to start
	MaxPlayers          int  `json:"maxPlayers"`          // seats at the table
	EndOnPerfectScore   bool `json:"endOnPerfectScore"`   // all five stacks complete ends the game
}

// DefaultRules returns the standard table configuration.
func DefaultRules() Rules {
	return Rules{
		HintTokens:          8,
		ErrorTokens:         3,
		HandSize:            5,
		LargeTableHandSize:  4,
		LargeTableThreshold: 4,
		MinPlayers:          2,
		MaxPlayers:          5,
		EndOnPerfectScore:   true,
	}
}

// HandSizeFor returns the hand size for a table of the given number of players.
func (r Rules) HandSizeFor(players int) int {
	if players >= r.LargeTableThreshold {
		return r.LargeTableHandSize
	}
	return r.HandSize
}

// Validate rejects configurations the engine cannot run.
func (r Rules) Validate() error {
	switch {
	case r.HintTokens < 1:
		return fmt.Errorf("hintTokens must be positive, got %d", r.HintTokens)
	case r.ErrorTokens < 1:
		return fmt.Errorf("errorTokens must be positive, got %d", r.ErrorTokens)
	case r.HandSize < 1 || r.LargeTableHandSize < 1:
		return fmt.Errorf("hand sizes must be positive, got %d and %d", r.HandSize, r.LargeTableHandSize)
	case r.LargeTableHandSize > r.HandSize:
		return fmt.Errorf("largeTableHandSize %d exceeds handSize %d", r.LargeTableHandSize, r.HandSize)
	case r.LargeTableThreshold < 1:
		return fmt.Errorf("largeTableThreshold must be positive, got %d", r.LargeTableThreshold)
	case r.MinPlayers < 1:
		return fmt.Errorf("minPlayers must be positive, got %d", r.MinPlayers)
	case r.MaxPlayers < r.MinPlayers:
		return fmt.Errorf("maxPlayers %d is below minPlayers %d", r.MaxPlayers, r.MinPlayers)
	}
	return nil
}
