package domain

import "errors"

var (
	// ErrInvalidOperation is returned when an action is invoked outside its valid phase,
	// e.g. submit or tick while the session is idle or finished.
	ErrInvalidOperation = errors.New("invalid operation for session phase")
	// ErrChoiceOutOfRange indicates a submitted choice index is not part of the current question.
	ErrChoiceOutOfRange = errors.New("choice out of range")
	// ErrSessionNotFound is returned when a game session does not exist.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrBankNotFound indicates the question bank could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrInvalidBank indicates the question bank failed validation.
	ErrInvalidBank = errors.New("invalid question bank")
)
