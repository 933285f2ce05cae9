// Package entity extracts typed entities from raw voice-command text.
package entity

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Number is a number found in the text together with the word that
// immediately precedes it. The preceding word is what lets callers tell
// "playlist two" apart from "device two".
type Number struct {
	Value    int
	Previous string
}

// wordValues maps spoken number words to their value. Tens combine with
// a following unit word ("twenty one" is 21).
var wordValues = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13,
	"fourteen": 14, "fifteen": 15, "sixteen": 16, "seventeen": 17,
	"eighteen": 18, "nineteen": 19,
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

// Numbers finds every number in the text, spoken or written as digits,
// in order of appearance. Digit values are limited to three digits so
// phone numbers and years stay out; out-of-range values like "150" are
// still reported and left to the caller to clamp. Spoken words cover
// zero through ninety-nine.
func Numbers(text string) []Number {
	tokens := tokenize(text)

	var numbers []Number
	previous := ""
	for i := 0; i < len(tokens); i++ {
		token := tokens[i]

		if value, err := strconv.Atoi(token); err == nil {
			if value >= 0 && value <= 999 {
				numbers = append(numbers, Number{Value: value, Previous: previous})
			}
			previous = token
			continue
		}

		if value, ok := wordValues[token]; ok {
			consumed := 1
			if value >= 20 && value%10 == 0 && i+1 < len(tokens) {
				if unit, ok := wordValues[tokens[i+1]]; ok && unit >= 1 && unit <= 9 {
					value += unit
					consumed = 2
				}
			}
			numbers = append(numbers, Number{Value: value, Previous: previous})
			previous = tokens[i+consumed-1]
			i += consumed - 1
			continue
		}

		previous = token
	}

	return numbers
}

// tokenize lowercases the NFKC-normalized text and splits it into words,
// treating punctuation as whitespace so "playlist 2, please" still
// yields a clean number token.
func tokenize(text string) []string {
	normalized := norm.NFKC.String(text)

	mapped := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return ' '
		}
		return unicode.ToLower(r)
	}, normalized)

	return strings.Fields(mapped)
}
