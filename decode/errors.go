package decode

import "errors"

var (
	// ErrUnknownFormat reports a format name without a registered decoder.
	ErrUnknownFormat = errors.New("decode: unknown format")
	// ErrNotSupported reports a valid file using an encoding the decoder
	// does not handle, such as compressed WAV.
	ErrNotSupported = errors.New("decode: not supported")
	// ErrInvalidData reports input that is not a well-formed file of the
	// requested format.
	ErrInvalidData = errors.New("decode: invalid data")
)
