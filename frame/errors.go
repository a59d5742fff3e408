package frame

import (
	"errors"
	"fmt"
)

// Error kinds shared by the conversion and playback phases. Match them with errors.Is.
var (
	ErrInvalidSettings = errors.New("invalid settings")
	ErrInvalidFrame    = errors.New("invalid frame")
	ErrConversion      = errors.New("conversion failed")
	ErrCacheIO         = errors.New("cache i/o failure")
)

// IndexError tags an error with the frame index it happened on.
type IndexError struct {
	Index int
	Err   error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("frame %d: %v", e.Index, e.Err)
}

func (e *IndexError) Unwrap() error {
	return e.Err
}

// AtIndex wraps err with the frame index unless it already carries one.
func AtIndex(index int, err error) error {
	if err == nil {
		return nil
	}
	var ie *IndexError
	if errors.As(err, &ie) {
		return err
	}
	return &IndexError{Index: index, Err: err}
}

// FailedIndex reports the frame index carried by err, if any.
func FailedIndex(err error) (int, bool) {
	var ie *IndexError
	if errors.As(err, &ie) {
		return ie.Index, true
	}
	return 0, false
}
