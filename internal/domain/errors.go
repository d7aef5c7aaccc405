package domain

import "errors"

// Game coordination errors. Player-input errors are reported back to the
// offending connection and leave game state untouched; structural errors
// fail the requested operation outright.
var (
	ErrOutOfTurn        = errors.New("not your turn")
	ErrIllegalMove      = errors.New("illegal move")
	ErrGameFinished     = errors.New("game is finished")
	ErrSeatConflict     = errors.New("game already has two players")
	ErrColorUnavailable = errors.New("color is already taken")
	ErrGameNotFound     = errors.New("game not found")
	ErrSessionInvalid   = errors.New("session is invalid or expired")
)
