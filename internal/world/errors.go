package world

import "errors"

var (
	ErrAccountExists  = errors.New("account already exists")
	ErrInvalidName    = errors.New("invalid name")
	ErrUnknownVersion = errors.New("unknown payload version")
	ErrBadLegacyFile  = errors.New("unable to load legacy document")
)
