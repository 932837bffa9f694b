package errorx

import (
	"errors"
	"fmt"
)

type Error struct {
	Code    Code
	Message string
}

func (e Error) Error() string {
	return e.Message
}

// New creates an errorx with the given code. The message is formatted with
// args and returned to the client as-is, so never put internal details here.
func New(code Code, msg string, args ...any) Error {
	return Error{Code: code, Message: fmt.Sprintf(msg, args...)}
}

// Is reports whether err (or any error it wraps) is an errorx with the code.
func Is(err error, code Code) bool {
	var errx Error
	if !errors.As(err, &errx) {
		return false
	}

	return errx.Code == code
}
