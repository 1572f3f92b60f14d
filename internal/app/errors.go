package app

import (
	"errors"
	"strings"
)

var (
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrSessionEnded: ответ пришёл после выхода или смены пользователя и отброшен
	ErrSessionEnded = errors.New("session ended")
)

const (
	// ChatErrorMessage попадает в переписку, если чат не ответил
	ChatErrorMessage = "❌ Sorry, something went wrong. Please try again."

	loginFailedMessage  = "Login failed. Please check your credentials."
	signupFailedMessage = "Signup failed. Please try again."
)

// ValidationError: ошибки формы, найденные до обращения к сети.
type ValidationError struct {
	Problems []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		msgs = append(msgs, p.Error())
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() []error {
	return e.Problems
}

// AuthError: отказ бэкенда при входе или регистрации. Message уже готов
// для показа пользователю.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func validate(checks ...error) error {
	var problems []error
	for _, err := range checks {
		if err != nil {
			problems = append(problems, err)
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}
