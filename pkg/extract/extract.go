// Package extract finds verification codes in free text.
//
// A code is a maximal run of ASCII letters and digits whose length equals the
// requested digit count and whose characters all belong to the requested
// class. Requiring the whole run to match keeps "1234" from being pulled out
// of "123456" or "A1234".
package extract

import (
	"errors"
	"regexp"
	"strings"
)

type CharacterClass string

const (
	Numeric      CharacterClass = "numeric"
	Alphanumeric CharacterClass = "alphanumeric"
)

// DefaultDigits is the code length used when none, or a non-positive one, is requested.
const DefaultDigits = 4

var ErrInvalidCharacterClass = errors.New("invalid character class")

var (
	alphanumericRun   = regexp.MustCompile(`[A-Za-z0-9]+`)
	lettersThenDigits = regexp.MustCompile(`(?i)^[a-z]+[0-9]+$`)
)

// ParseCharacterClass accepts "numeric" or "alphanumeric" in any case.
// An empty string selects Numeric.
func ParseCharacterClass(raw string) (CharacterClass, error) {
	switch CharacterClass(strings.ToLower(strings.TrimSpace(raw))) {
	case "", Numeric:
		return Numeric, nil
	case Alphanumeric:
		return Alphanumeric, nil
	default:
		return "", ErrInvalidCharacterClass
	}
}

type Options struct {
	Digits int
	Class  CharacterClass
}

// Normalize applies the defaults for zero or invalid fields.
func (o Options) Normalize() Options {
	if o.Digits <= 0 {
		o.Digits = DefaultDigits
	}
	if o.Class == "" {
		o.Class = Numeric
	}
	return o
}

func (c CharacterClass) accepts(run string) bool {
	switch c {
	case Numeric:
		for i := 0; i < len(run); i++ {
			if run[i] < '0' || run[i] > '9' {
				return false
			}
		}
		return true
	case Alphanumeric:
		return true
	default:
		return false
	}
}

// Candidates returns every code matching opts in scan order.
func Candidates(text string, opts Options) []string {
	opts = opts.Normalize()

	var matches []string
	for _, run := range alphanumericRun.FindAllString(text, -1) {
		if len(run) == opts.Digits && opts.Class.accepts(run) {
			matches = append(matches, run)
		}
	}
	return matches
}

// Extract returns the code to store for text, or false when nothing matches.
//
// For the alphanumeric class a candidate shaped like letters followed by
// digits ("ABC123") wins over earlier candidates, since such prefixed codes
// are a stronger signal than plain numbers or words of the same length.
// Otherwise the first candidate wins.
func Extract(text string, opts Options) (string, bool) {
	matches := Candidates(text, opts)
	if len(matches) == 0 {
		return "", false
	}

	if opts.Normalize().Class == Alphanumeric {
		for _, match := range matches {
			if lettersThenDigits.MatchString(match) {
				return match, true
			}
		}
	}
	return matches[0], true
}
