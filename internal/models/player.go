package models

import (
	"fmt"
	"strings"
)

// Player is a seat at the table. Seat is the join order and fixes turn order.
type Player struct {
	Name string       `json:"name"`
	Seat int          `json:"seat"`
	Hand []CardInHand `json:"hand"`
}

// CardIndex returns the position of the card with the given id, or -1.
func (p *Player) CardIndex(cardID int) int {
	for i, c := range p.Hand {
		if c.Card.ID == cardID {
			return i
		}
	}
	return -1
}

func (p *Player) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Player %s:", p.Name)
	for _, c := range p.Hand {
		fmt.Fprintf(&b, " %s", c.Card)
	}
	return b.String()
}
