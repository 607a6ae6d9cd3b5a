package gltf

import (
	"github.com/pkg/errors"
)

var (
	// ErrFormat marks malformed manifests, unsupported accessor layouts and
	// byte ranges that do not fit their buffer.
	ErrFormat = errors.New("format error")
	// ErrResolution marks references to ids absent from the manifest.
	ErrResolution = errors.New("resolution error")
)

type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string        { return e.err.Error() }
func (e *kindError) Unwrap() error        { return e.err }
func (e *kindError) Is(target error) bool { return target == e.kind }

func formatErrorf(format string, a ...interface{}) error {
	return &kindError{kind: ErrFormat, err: errors.Errorf(format, a...)}
}

func wrapFormat(err error, format string, a ...interface{}) error {
	return &kindError{kind: ErrFormat, err: errors.Wrapf(err, format, a...)}
}

func resolutionErrorf(format string, a ...interface{}) error {
	return &kindError{kind: ErrResolution, err: errors.Errorf(format, a...)}
}

// WrapFormat tags err as a format error.
func WrapFormat(err error, format string, a ...interface{}) error {
	return wrapFormat(err, format, a...)
}

func FormatErrorf(format string, a ...interface{}) error {
	return formatErrorf(format, a...)
}
