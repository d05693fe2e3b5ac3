package converter

import (
	"errors"
	"fmt"

	"github.com/rgonek/docpivot/format"
)

var (
	// ErrUnsupportedFormat matches every *UnsupportedFormatError.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrConversionFailed matches every *ConversionFailedError.
	ErrConversionFailed = errors.New("conversion failed")
	// ErrContentTooLarge is returned by Config.CheckSize.
	ErrContentTooLarge = errors.New("content too large")
)

// FormatRole says which side of a request named an unsupported format.
type FormatRole string

const (
	RoleSource FormatRole = "source"
	RoleTarget FormatRole = "target"
)

// UnsupportedFormatError reports a source format outside the input set or a
// target format outside the output set.
type UnsupportedFormatError struct {
	Role   FormatRole
	Format format.Format
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported %s format %q", e.Role, string(e.Format))
}

// Is reports whether target is ErrUnsupportedFormat.
func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// ConversionFailedError wraps a failure raised by a collaborator, a payload
// decode or a cancelled context.
type ConversionFailedError struct {
	Err error
}

func (e *ConversionFailedError) Error() string {
	if e.Err == nil {
		return "conversion failed"
	}
	return "conversion failed: " + e.Err.Error()
}

func (e *ConversionFailedError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrConversionFailed.
func (e *ConversionFailedError) Is(target error) bool {
	return target == ErrConversionFailed
}
