package sstv

import (
	"errors"
	"fmt"
)

var (
	ErrNoSignalFound   = errors.New("no SSTV signal found")
	ErrHeaderParity    = errors.New("VIS header parity error")
	ErrUnsupportedMode = errors.New("unsupported SSTV mode")
	ErrStreamExhausted = errors.New("sample stream ended before the image")
	ErrInvalidConfig   = errors.New("invalid decoder configuration")
)

// DecodeError reports a failed decode. It matches both the sentinel for its
// Reason and the underlying cause under errors.Is.
type DecodeError struct {
	Reason Reason
	Offset int // sample offset where the failure was detected
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("sstv: %s at sample %d: %v", e.Reason, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	errs := []error{e.Err}
	if s := e.Reason.sentinel(); s != nil {
		errs = append(errs, s)
	}
	return errs
}

func (r Reason) sentinel() error {
	switch r {
	case ReasonNoSignalFound:
		return ErrNoSignalFound
	case ReasonHeaderParity:
		return ErrHeaderParity
	case ReasonUnsupportedMode:
		return ErrUnsupportedMode
	case ReasonStreamExhausted:
		return ErrStreamExhausted
	default:
		return nil
	}
}
