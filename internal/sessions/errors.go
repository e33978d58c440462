package sessions

import "errors"

var (
	ErrNotFound   = errors.New("session not found")
	ErrBusy       = errors.New("an analysis is already running")
	ErrNotInInput = errors.New("start a new analysis first")
)
