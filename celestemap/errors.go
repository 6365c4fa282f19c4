package celestemap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Neumenon/celestemap/rle"
	"github.com/Neumenon/celestemap/wire"
)

// Decode and encode failures. Test with errors.Is.
var (
	ErrTruncatedInput   = wire.ErrTruncatedInput
	ErrInvalidEncoding  = wire.ErrInvalidEncoding
	ErrInvalidRunLength = rle.ErrInvalidRunLength

	ErrInvalidHeader         = errors.New("invalid map header")
	ErrUnknownTypeTag        = errors.New("unknown value type tag")
	ErrStringIndexOutOfRange = errors.New("string index out of range")
	ErrDuplicateString       = errors.New("duplicate string table entry")
	ErrMalformedTilemap      = errors.New("malformed tilemap")
	ErrMissingAttribute      = errors.New("missing attribute")
	ErrTypeMismatch          = errors.New("attribute type mismatch")
	ErrUnexpectedElement     = errors.New("unexpected element")
	ErrOutOfBounds           = errors.New("tile coordinates out of bounds")
	ErrInvalidTile           = errors.New("invalid tile code")
	ErrLimitExceeded         = errors.New("format limit exceeded")
)

// Stage names the part of a load or store that failed.
type Stage string

const (
	StageRead    Stage = "read"
	StageHeader  Stage = "header"
	StageStrings Stage = "strings"
	StageTree    Stage = "tree"
	StageMapping Stage = "mapping"
	StageWrite   Stage = "write"
)

// DecodeError is the only error type returned by Load and Decode.
type DecodeError struct {
	Stage  Stage
	Offset int64  // byte offset of the failing read, -1 if not positional
	Path   string // element path such as Map/levels[0]/level[2], if known
	Err    error
}

func (e *DecodeError) Error() string {
	var sb strings.Builder
	sb.WriteString("celestemap: decode ")
	sb.WriteString(string(e.Stage))
	if e.Path != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Path)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&sb, " at offset %d", e.Offset)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Err.Error())
	return sb.String()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError is the only error type returned by Store and Encode.
type EncodeError struct {
	Stage Stage
	Path  string
	Err   error
}

func (e *EncodeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("celestemap: encode %s %s: %v", e.Stage, e.Path, e.Err)
	}
	return fmt.Sprintf("celestemap: encode %s: %v", e.Stage, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// pathError accumulates the element path while an error unwinds.
type pathError struct {
	path string
	err  error
}

func (e *pathError) Error() string {
	return e.path + ": " + e.err.Error()
}

func (e *pathError) Unwrap() error {
	return e.err
}

// atPath prefixes err with one path segment.
func atPath(err error, segment string) error {
	if err == nil {
		return nil
	}
	var pe *pathError
	if errors.As(err, &pe) {
		pe.path = segment + "/" + pe.path
		return err
	}
	return &pathError{path: segment, err: err}
}

func segment(name string, index int) string {
	return fmt.Sprintf("%s[%d]", name, index)
}

// newDecodeError splits err into offset, path and cause.
func newDecodeError(stage Stage, err error) *DecodeError {
	de := &DecodeError{Stage: stage, Offset: -1, Err: err}
	var pe *pathError
	if errors.As(err, &pe) {
		de.Path = pe.path
		de.Err = pe.err
	}
	var we *wire.Error
	if errors.As(de.Err, &we) {
		de.Offset = we.Offset
	}
	return de
}

func newEncodeError(stage Stage, err error) *EncodeError {
	ee := &EncodeError{Stage: stage, Err: err}
	var pe *pathError
	if errors.As(err, &pe) {
		ee.Path = pe.path
		ee.Err = pe.err
	}
	return ee
}

// offsetError builds a positional error for semantic failures found by
// the tree codec.
func offsetError(op string, offset int64, err error) error {
	return &wire.Error{Op: op, Offset: offset, Err: err}
}
