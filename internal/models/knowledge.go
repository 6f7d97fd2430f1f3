package models

import (
	"encoding/json"
	"fmt"
)

// ColorSet is a bitset of colors. It encodes as a list of color names.
type ColorSet uint8

func (s ColorSet) Has(c Color) bool {
	return s&(1<<c) != 0
}

func (s *ColorSet) Add(c Color) {
	*s |= 1 << c
}

func (s *ColorSet) Clear() {
	*s = 0
}

func (s ColorSet) Empty() bool {
	return s == 0
}

// Slice returns the members in wire order.
func (s ColorSet) Slice() []Color {
	out := []Color{}
	for _, c := range Colors {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s ColorSet) MarshalJSON() ([]byte, error) { return json.Marshal(s.Slice()) }

func (s *ColorSet) UnmarshalJSON(data []byte) error {
	var colors []Color
	if err := json.Unmarshal(data, &colors); err != nil {
		return fmt.Errorf("color set: %w", err)
	}
	s.Clear()
	for _, c := range colors {
		s.Add(c)
	}
	return nil
}

// NumberSet is a bitset of numbers. It encodes as a list of number names.
type NumberSet uint8

func (s NumberSet) Has(n Number) bool {
	return s&(1<<n) != 0
}

func (s *NumberSet) Add(n Number) {
	*s |= 1 << n
}

func (s *NumberSet) Clear() {
	*s = 0
}

func (s NumberSet) Empty() bool {
	return s == 0
}

// Slice returns the members in ascending order.
func (s NumberSet) Slice() []Number {
	out := []Number{}
	for _, n := range Numbers {
		if s.Has(n) {
			out = append(out, n)
		}
	}
	return out
}

func (s NumberSet) MarshalJSON() ([]byte, error) { return json.Marshal(s.Slice()) }

func (s *NumberSet) UnmarshalJSON(data []byte) error {
	var numbers []Number
	if err := json.Unmarshal(data, &numbers); err != nil {
		return fmt.Errorf("number set: %w", err)
	}
	s.Clear()
	for _, n := range numbers {
		s.Add(n)
	}
	return nil
}

// CardKnowledge is what the holder of a card has learned about it from hints.
type CardKnowledge struct {
	KnowsColor      bool      `json:"knows_color"`
	KnowsNumber     bool      `json:"knows_number"`
	ExcludedColors  ColorSet  `json:"excluded_colors"`
	ExcludedNumbers NumberSet `json:"excluded_numbers"`
}

// ApplyColorHint updates the knowledge of a card whose real color is actual
// after a hint naming hinted. A match confirms the color and drops the
// now redundant color exclusions; a miss records hinted as excluded.
func (k *CardKnowledge) ApplyColorHint(actual, hinted Color) bool {
	if actual == hinted {
		k.KnowsColor = true
		k.ExcludedColors.Clear()
		return true
	}
	k.ExcludedColors.Add(hinted)
	return false
}

// ApplyNumberHint is the number counterpart of ApplyColorHint.
func (k *CardKnowledge) ApplyNumberHint(actual, hinted Number) bool {
	if actual == hinted {
		k.KnowsNumber = true
		k.ExcludedNumbers.Clear()
		return true
	}
	k.ExcludedNumbers.Add(hinted)
	return false
}

// CardInHand pairs a card with its holder's knowledge of it.
type CardInHand struct {
	Card      Card          `json:"card"`
	Knowledge CardKnowledge `json:"knowledge"`
}

// NewCardInHand wraps a freshly drawn card with empty knowledge.
func NewCardInHand(c Card) CardInHand {
	return CardInHand{Card: c}
}
