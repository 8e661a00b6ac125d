package kanji

import (
	"fmt"
	"strings"
)

type Difficulty string

const (
	DifficultyEasy   = Difficulty("Easy")
	DifficultyMedium = Difficulty("Medium")
	DifficultyHard   = Difficulty("Hard")
)

// ParseDifficulty accepts the dataset tokens case-insensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return DifficultyEasy, nil
	case "medium":
		return DifficultyMedium, nil
	case "hard":
		return DifficultyHard, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// Kanji is one entry of the catalog. Unicode is the canonical upper-case hex
// code point and is the identifier answers are judged against.
type Kanji struct {
	Unicode    string     `json:"unicode"`
	Yomi       string     `json:"yomi"`
	Glyph      string     `json:"kanji"`
	Difficulty Difficulty `json:"difficulty"`
}
