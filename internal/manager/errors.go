package manager

import "errors"

var (
	ErrTitleRequired = errors.New("title is required")
	ErrTitleTooLong  = errors.New("title cannot exceed 1000 characters")
	ErrUsernameTaken = errors.New("Username already exists")
	ErrEmailTaken    = errors.New("Email already exists")
)
