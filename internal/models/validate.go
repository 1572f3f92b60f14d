package models

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	MinUsernameLen = 3
	MinPasswordLen = 6
)

func ValidateUsername(username string) error {
	if utf8.RuneCountInString(strings.TrimSpace(username)) < MinUsernameLen {
		return ErrUsernameTooShort
	}
	return nil
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLen {
		return ErrPasswordTooShort
	}
	return nil
}

// ValidateEmail принимает только голый адрес вида user@host.tld, без имени.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return ErrInvalidEmail
	}
	return nil
}
