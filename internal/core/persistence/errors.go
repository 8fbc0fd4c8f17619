package persistence

import (
	"errors"

	"github.com/zeusync/worldstore/internal/core/persistence/codec"
	"github.com/zeusync/worldstore/internal/core/persistence/serial"
)

var (
	// ErrResourceExhausted is fatal: a category ran out of identifiers.
	ErrResourceExhausted = serial.ErrResourceExhausted
	// ErrCorrupt marks structural damage in .idx or .tdb; always fatal.
	ErrCorrupt = codec.ErrCorrupt

	ErrUnresolvableType = errors.New("unresolvable type")
	ErrFormatMismatch   = errors.New("payload length mismatch")
	ErrDeserialize      = errors.New("payload deserialize failed")
	ErrCategoryLocked   = errors.New("category is locked by another process")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrInvalidCategory  = errors.New("invalid category descriptor")
)
