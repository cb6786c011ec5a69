package passhash

import (
	"crypto/rand"
	"math/big"
	"unicode"
)

const (
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"
)

// GenerateOptions selects the character classes for GeneratePassword.
type GenerateOptions struct {
	Length    int
	Uppercase bool
	Lowercase bool
	Digits    bool
	Symbols   bool
}

// DefaultGenerateOptions matches what the CLI suggests to users: 12
// characters of mixed letters and digits.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{Length: 12, Uppercase: true, Lowercase: true, Digits: true}
}

// GeneratePassword produces a random password from the selected character
// classes. With no class selected it falls back to letters and digits.
func GeneratePassword(opts GenerateOptions) (string, error) {
	var chars string
	if opts.Uppercase {
		chars += upperChars
	}
	if opts.Lowercase {
		chars += lowerChars
	}
	if opts.Digits {
		chars += digitChars
	}
	if opts.Symbols {
		chars += symbolChars
	}
	if chars == "" {
		chars = upperChars + lowerChars + digitChars
	}

	length := opts.Length
	if length <= 0 {
		length = 12
	}

	out := make([]byte, length)
	max := big.NewInt(int64(len(chars)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = chars[n.Int64()]
	}
	return string(out), nil
}

// Strength describes which strength criteria a password meets.
type Strength struct {
	LengthOK     bool
	HasUppercase bool
	HasLowercase bool
	HasDigits    bool
	HasSymbols   bool
}

// Score counts the satisfied criteria.
func (s Strength) Score() int {
	score := 0
	for _, ok := range []bool{s.LengthOK, s.HasUppercase, s.HasLowercase, s.HasDigits, s.HasSymbols} {
		if ok {
			score++
		}
	}
	return score
}

// Label maps the score onto a coarse user-facing rating.
func (s Strength) Label() string {
	switch score := s.Score(); {
	case score >= 4:
		return "strong"
	case score == 3:
		return "fair"
	default:
		return "weak"
	}
}

// CheckStrength reports per-criterion results; LengthOK requires at least
// eight characters.
func CheckStrength(password string) Strength {
	s := Strength{LengthOK: len(password) >= 8}
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			s.HasUppercase = true
		case unicode.IsLower(r):
			s.HasLowercase = true
		case unicode.IsDigit(r):
			s.HasDigits = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			s.HasSymbols = true
		}
	}
	return s
}
