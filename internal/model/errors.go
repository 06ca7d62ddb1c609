package model

import (
	"errors"
	"fmt"
)

// Kind classifies a failure returned by the service.
type Kind int

const (
	// Unknown is an unexpected internal fault.
	Unknown Kind = iota
	// ImageDecode means the input image is malformed or unsupported.
	ImageDecode
	// ResourceLoad means a model file is missing or corrupt, or a model was never loaded.
	ResourceLoad
	// Recognize means a loaded model failed while processing valid input.
	Recognize
)

func (k Kind) String() string {
	switch k {
	case ImageDecode:
		return "image_decode"
	case ResourceLoad:
		return "resource_load"
	case Recognize:
		return "recognize"
	default:
		return "unknown"
	}
}

// Error is a tagged failure carrying a human readable message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// ImageDecodeError wraps err as an ImageDecode failure.
func ImageDecodeError(msg string, err error) error {
	return &Error{Kind: ImageDecode, Msg: msg, Err: err}
}

// ResourceLoadError wraps err as a ResourceLoad failure.
func ResourceLoadError(msg string, err error) error {
	return &Error{Kind: ResourceLoad, Msg: msg, Err: err}
}

// RecognizeError wraps err as a Recognize failure.
func RecognizeError(msg string, err error) error {
	return &Error{Kind: Recognize, Msg: msg, Err: err}
}

// UnknownError wraps err as an Unknown failure.
func UnknownError(msg string, err error) error {
	return &Error{Kind: Unknown, Msg: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
// Errors outside the taxonomy are Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Tag makes sure err belongs to the taxonomy, wrapping it with kind if it
// does not already carry one.
func Tag(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Guard runs fn and turns a panic into an Unknown error.
func Guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Kind: Unknown, Msg: fmt.Sprintf("panic: %v", r)}
		}
	}()
	return fn()
}
