package stats

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument marks malformed caller parameters (unknown period keys,
// negative top-N, inverted custom ranges). Malformed data never produces it.
var ErrInvalidArgument = errors.New("invalid argument")

func invalidArgf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
