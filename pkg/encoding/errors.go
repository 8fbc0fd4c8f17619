package encoding

import "errors"

var (
	ErrShortBuffer    = errors.New("read past end of payload")
	ErrStringTooLarge = errors.New("string length exceeds limit")
	ErrNegativeLength = errors.New("negative length")
)
