package protocol

import (
	"errors"
	"fmt"
)

// ErrMalformedPacket is wrapped by every decode failure.
var ErrMalformedPacket = errors.New("malformed packet")

var (
	ErrShortBuffer     = fmt.Errorf("%w: short buffer", ErrMalformedPacket)
	ErrBadMagic        = fmt.Errorf("%w: bad magic", ErrMalformedPacket)
	ErrBadVersion      = fmt.Errorf("%w: unsupported version", ErrMalformedPacket)
	ErrTruncatedField  = fmt.Errorf("%w: truncated field", ErrMalformedPacket)
	ErrUnknownType     = fmt.Errorf("%w: unknown field type", ErrMalformedPacket)
	ErrTypeMismatch    = fmt.Errorf("%w: value length does not match type", ErrMalformedPacket)
	ErrDuplicateField  = fmt.Errorf("%w: duplicate field name", ErrMalformedPacket)
	ErrPayloadTooLarge = fmt.Errorf("%w: payload too large", ErrMalformedPacket)
)

// Encoding errors
var (
	ErrEmptyName     = errors.New("field name is empty")
	ErrNameTooLong   = errors.New("field name too long")
	ErrValueTooLarge = errors.New("field value too large")
)

// Accessor errors
var (
	ErrFieldNotFound = errors.New("field not found")
	ErrFieldType     = errors.New("field has a different type")
)
