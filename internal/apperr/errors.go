package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrUnknownKind    = errors.New("unknown document kind")
	ErrUnknownField   = errors.New("unknown field")
	ErrItemOutOfRange = errors.New("item index out of range")
	ErrLastItem       = errors.New("document must keep at least one item")
	ErrInvalidName    = errors.New("invalid file name")
)
