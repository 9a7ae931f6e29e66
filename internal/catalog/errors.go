package catalog

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrFetch              = errors.New("playlist fetch failed")
	ErrDecode             = errors.New("playlist is not valid text")
	ErrNoPlaylistSource   = errors.New("no playlist source configured")
	ErrInvalidPlaylistURL = errors.New("playlist url must be an absolute http or https url")
	ErrInvalidMove        = errors.New("invalid category move")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrLoadSuperseded     = errors.New("playlist load superseded by a newer load")
	ErrPreferenceNotFound = errors.New("preference not found")
)

// FetchError reports a transport failure while reaching the playlist source.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch playlist from %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrFetch) hold for any FetchError.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}

// DecodeError reports a playlist body that is not valid UTF-8 text.
type DecodeError struct {
	// Offset is the byte position of the first invalid sequence.
	Offset int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v: invalid utf-8 at byte %d", ErrDecode, e.Offset)
}

// Is makes errors.Is(err, ErrDecode) hold for any DecodeError.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}
