package auth

import "errors"

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrBadPassword  = errors.New("invalid username or password")
)
