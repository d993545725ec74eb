package export

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCrop       = errors.New("roi does not overlap the frame")
	ErrInvalidSettings = errors.New("invalid export settings")
)

// ExportError reports the step and file an export stopped at.
type ExportError struct {
	Op   string
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("export %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("export %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

func invalid(format string, args ...any) error {
	return &ExportError{Op: "settings", Err: fmt.Errorf("%w: "+format, append([]any{ErrInvalidSettings}, args...)...)}
}
