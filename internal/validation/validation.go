// Package validation holds the input rules shared by the client orchestrator
// and the server handlers (defense in depth: both sides apply the same
// checks, so a bypassed client still cannot submit malformed data).
package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

const (
	UsernameMinLen = 3
	UsernameMaxLen = 20
	PasswordMinLen = 6
	PasswordMaxLen = 128
	EmailMaxLen    = 254
	LoginIDMaxLen  = 50
)

var (
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)
)

// Username checks the 3–20 character, alnum/underscore/hyphen, not
// digit-led rule.
func Username(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return errors.New("username is required")
	}
	if len(username) < UsernameMinLen {
		return errors.New("username must be at least 3 characters")
	}
	if len(username) > UsernameMaxLen {
		return errors.New("username must be at most 20 characters")
	}
	if !usernamePattern.MatchString(username) {
		return errors.New("username may only contain letters, digits, underscores and hyphens")
	}
	if unicode.IsDigit(rune(username[0])) {
		return errors.New("username must not start with a digit")
	}
	return nil
}

// Email validates address format and length.
func Email(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return errors.New("email is required")
	}
	if len(email) > EmailMaxLen {
		return errors.New("email must be at most 254 characters")
	}
	if !emailPattern.MatchString(email) {
		return errors.New("email address is invalid")
	}
	return nil
}

// Password enforces length bounds and minimal character-class diversity
// (at least one letter and one digit, no spaces).
func Password(password string) error {
	if password == "" {
		return errors.New("password is required")
	}
	if len(password) < PasswordMinLen {
		return errors.New("password must be at least 6 characters")
	}
	if len(password) > PasswordMaxLen {
		return errors.New("password must be at most 128 characters")
	}
	if strings.Contains(password, " ") {
		return errors.New("password must not contain spaces")
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return errors.New("password must contain at least one letter and one digit")
	}
	return nil
}

// LoginInput validates the looser rules for the login form, where the
// identifier may be either a username or an email address.
func LoginInput(usernameOrEmail, password string) error {
	id := strings.TrimSpace(usernameOrEmail)
	if id == "" {
		return errors.New("username or email is required")
	}
	if len(id) < UsernameMinLen {
		return errors.New("username or email must be at least 3 characters")
	}
	if len(id) > LoginIDMaxLen {
		return errors.New("username or email must be at most 50 characters")
	}
	if password == "" || strings.TrimSpace(password) == "" {
		return errors.New("password is required")
	}
	if len(password) < PasswordMinLen {
		return errors.New("password must be at least 6 characters")
	}
	if len(password) > PasswordMaxLen {
		return errors.New("password must be at most 128 characters")
	}
	return nil
}

// RegisterInput validates the full registration form.
func RegisterInput(username, email, password, confirmPassword string) error {
	if err := Username(username); err != nil {
		return err
	}
	if err := Email(email); err != nil {
		return err
	}
	if err := Password(password); err != nil {
		return err
	}
	if password != confirmPassword {
		return errors.New("passwords do not match")
	}
	return nil
}

// PasswordChange validates a change-password request.
func PasswordChange(oldPassword, newPassword, confirmPassword string) error {
	if oldPassword == "" {
		return errors.New("current password is required")
	}
	if err := Password(newPassword); err != nil {
		return err
	}
	if newPassword != confirmPassword {
		return errors.New("new passwords do not match")
	}
	if oldPassword == newPassword {
		return errors.New("new password must differ from the current one")
	}
	return nil
}

// IsEmail reports whether text looks like an email address. Used to decide
// whether a login identifier should be matched against the email column.
func IsEmail(text string) bool {
	return emailPattern.MatchString(strings.ToLower(strings.TrimSpace(text)))
}

// Sanitize trims whitespace and strips characters that have no business in
// free-text fields headed for the wire.
func Sanitize(text string) string {
	text = strings.TrimSpace(text)
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '"', '\'', '&', ';':
			return -1
		}
		return r
	}, text)
}
