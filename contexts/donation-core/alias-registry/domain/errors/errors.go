package errors

import "errors"

var (
	ErrInvalidInput = errors.New("alias input is invalid")
	ErrAliasTaken   = errors.New("nickname is already bound to another principal")
	ErrUnauthorized = errors.New("caller identity could not be verified")
)
