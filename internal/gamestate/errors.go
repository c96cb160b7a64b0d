package gamestate

import "fmt"

var (
	ErrValidation    = fmt.Errorf("validation error")
	ErrAuthorization = fmt.Errorf("not authorized")
	ErrInvalidState  = fmt.Errorf("invalid state")
	ErrConnect       = fmt.Errorf("connect to game container")

	ErrNotConnected      = fmt.Errorf("%w: service is not connected", ErrInvalidState)
	ErrIllegalTransition = fmt.Errorf("%w: illegal phase transition", ErrInvalidState)
)
