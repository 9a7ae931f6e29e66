package channel

import "errors"

// Domain errors
var (
	ErrEmptyName        = errors.New("channel name cannot be empty")
	ErrInvalidStreamURL = errors.New("channel stream url must be an absolute url")
	ErrChannelNotFound  = errors.New("channel not found")
)
