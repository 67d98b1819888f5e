package errors

// Error is a string error type usable as a constant sentinel.
type Error string

func (e Error) Error() string {
	return string(e)
}
