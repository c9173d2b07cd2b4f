package cell

import "errors"

var (
	// ErrBitsOverflow is returned when a builder would exceed MaxBits.
	ErrBitsOverflow = errors.New("cell bits overflow")
	// ErrRefsOverflow is returned when a builder would exceed MaxRefs.
	ErrRefsOverflow = errors.New("cell refs overflow")
	// ErrDepthOverflow is returned when a tree would exceed MaxDepth.
	ErrDepthOverflow = errors.New("cell depth overflow")
	// ErrUnderflow is returned when a slice is read past its end.
	ErrUnderflow = errors.New("cell underflow")
	// ErrInvalidBOC wraps every structural failure of the container decoder.
	ErrInvalidBOC = errors.New("invalid bag of cells")
)
