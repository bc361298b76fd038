package errors

import stderrors "errors"

// NewStd returns a plain error, like the standard errors.New.
func NewStd(text string) error { return stderrors.New(text) }

// Is, As, Unwrap and Join forward to the standard library.
func Is(err, target error) bool     { return stderrors.Is(err, target) }
func As(err error, target any) bool { return stderrors.As(err, target) }
func Unwrap(err error) error        { return stderrors.Unwrap(err) }
func Join(errs ...error) error      { return stderrors.Join(errs...) }
