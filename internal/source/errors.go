package source

import (
	"errors"
	"fmt"
)

var ErrNoFrames = errors.New("no usable frames")

type LoadErrorKind int

const (
	FolderMissing LoadErrorKind = iota
	NotADirectory
	NoImages
	Unreadable
	Decode
)

func (k LoadErrorKind) String() string {
	switch k {
	case FolderMissing:
		return "folder missing"
	case NotADirectory:
		return "not a directory"
	case NoImages:
		return "no images"
	case Unreadable:
		return "unreadable"
	case Decode:
		return "decode failed"
	default:
		return fmt.Sprintf("LoadErrorKind(%d)", int(k))
	}
}

// LoadError reports why a folder or a frame could not be loaded.
type LoadError struct {
	Kind LoadErrorKind
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("load %s: %s", e.Path, e.Kind)
	}
	return fmt.Sprintf("load %s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a *LoadError of the given kind.
func IsKind(err error, kind LoadErrorKind) bool {
	var le *LoadError
	return errors.As(err, &le) && le.Kind == kind
}
