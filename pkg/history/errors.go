package history

import "errors"

var (
	ErrNilStore      = errors.New("history store is nil")
	ErrUnknownAction = errors.New("unknown action")
	ErrUnknownDriver = errors.New("unknown history driver")
	ErrCorruptStore  = errors.New("history store is corrupt")
)
