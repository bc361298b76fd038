package privacy

// SanitizedError keeps the original error for errors.Is and errors.As but
// reports a message with URL credentials masked.
type SanitizedError struct {
	original     error
	sanitizedMsg string
}

func (e *SanitizedError) Error() string { return e.sanitizedMsg }

func (e *SanitizedError) Unwrap() error { return e.original }

// WrapError masks credentials in err's message. It returns nil for nil.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	return &SanitizedError{original: err, sanitizedMsg: ScrubCredentials(err.Error())}
}
