package server

// Lifecycle failure codes carried by Error.
const (
	CodeStartError = "SERVER_START_ERROR"
	CodeStopError  = "SERVER_STOP_ERROR"
)

// Error wraps a lifecycle failure with a stable machine code.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return e.Code + ": " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }
