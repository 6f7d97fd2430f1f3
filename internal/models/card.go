package models

import "fmt"

// Color is one of the five firework colors.
type Color uint8

const (
	Red Color = iota
	Yellow
	Green
	Blue
	White
)

// Colors lists every color in wire order.
var Colors = []Color{Red, Yellow, Green, Blue, White}

var colorNames = [...]string{"RED", "YELLOW", "GREEN", "BLUE", "WHITE"}

func (c Color) Valid() bool { return int(c) < len(colorNames) }

func (c Color) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Color(%d)", uint8(c))
	}
	return colorNames[c]
}

// ParseColor maps a wire name such as "RED" to its Color.
func ParseColor(s string) (Color, error) {
	for i, name := range colorNames {
		if name == s {
			return Color(i), nil
		}
	}
	return 0, fmt.Errorf("unknown color %q", s)
}

func (c Color) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid color %d", uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Number is the rank of a card, ONE through FIVE.
type Number uint8

const (
	One Number = iota + 1
	Two
	Three
	Four
	Five
)

// Numbers lists every rank in ascending order.
var Numbers = []Number{One, Two, Three, Four, Five}

var numberNames = [...]string{"", "ONE", "TWO", "THREE", "FOUR", "FIVE"}

func (n Number) Valid() bool { return n >= One && n <= Five }

func (n Number) String() string {
	if !n.Valid() {
		return fmt.Sprintf("Number(%d)", uint8(n))
	}
	return numberNames[n]
}

// Score is the points a stack topped by this number is worth.
func (n Number) Score() int {
	if !n.Valid() {
		return 0
	}
	return int(n)
}

// IsNextLargest reports whether n may be played on a stack whose top is top.
// A nil top means nothing of that color has been played yet.
func (n Number) IsNextLargest(top *Number) bool {
	if top == nil {
		return n == One
	}
	return top.Valid() && n == *top+1 && n.Valid()
}

// ParseNumber maps a wire name such as "ONE" to its Number.
func ParseNumber(s string) (Number, error) {
	for i := 1; i < len(numberNames); i++ {
		if numberNames[i] == s {
			return Number(i), nil
		}
	}
	return 0, fmt.Errorf("unknown number %q", s)
}

func (n Number) MarshalText() ([]byte, error) {
	if !n.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid number %d", uint8(n))
	}
	return []byte(n.String()), nil
}

func (n *Number) UnmarshalText(text []byte) error {
	parsed, err := ParseNumber(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// Card is an immutable card value. ID is unique across the deck.
type Card struct {
	ID     int    `json:"id"`
	Color  Color  `json:"color"`
	Number Number `json:"number"`
}

func (c Card) String() string {
	return fmt.Sprintf("%d:[%s|%s]", c.ID, c.Color, c.Number)
}
