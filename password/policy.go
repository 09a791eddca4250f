package password

import (
	"errors"
	"fmt"
	"unicode"
)

// MinLength is the shortest password CheckStrength accepts, counted in runes.
const MinLength = 12

// ErrPolicy is wrapped by every CheckStrength failure.
var ErrPolicy = errors.New("password policy violation")

// CheckStrength enforces the registration rules: at least MinLength characters with a
// lowercase letter, an uppercase letter, a digit and a character that is neither a
// letter, a digit nor '_'. The first failing rule is reported.
func CheckStrength(pw string) error {
	var n int
	var lower, upper, digit, special bool

	for _, r := range pw {
		n++
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case r != '_' && !unicode.IsLetter(r):
			special = true
		}
	}

	switch {
	case n < MinLength:
		return fmt.Errorf("%w: must be at least %d characters", ErrPolicy, MinLength)
	case !lower:
		return fmt.Errorf("%w: must contain a lowercase letter", ErrPolicy)
	case !upper:
		return fmt.Errorf("%w: must contain an uppercase letter", ErrPolicy)
	case !digit:
		return fmt.Errorf("%w: must contain a digit", ErrPolicy)
	case !special:
		return fmt.Errorf("%w: must contain a special character", ErrPolicy)
	}
	return nil
}
