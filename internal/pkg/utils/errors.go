package utils

// ErrBadInput indicates a client data error
// handlers return bad request for it
// instead of treating it as an internal failure
type ErrBadInput struct {
	err error
}

// NewErrBadInput creates new error
func NewErrBadInput(err error) error {
	return &ErrBadInput{err: err}
}

func (e *ErrBadInput) Error() string {
	return "bad input: " + e.err.Error()
}

func (e *ErrBadInput) Unwrap() error {
	return e.err
}
