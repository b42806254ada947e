package errs

import (
	"errors"
	"net/http"
)

// Account conflicts are reported to clients as a plain message prefixed with "Error:"
// instead of the structured error body.
var (
	ErrUsernameTaken = errors.New("Error: Username is already taken!")
	ErrEmailInUse    = errors.New("Error: Email is already in use!")
)

func NewUsernameTakenError() *ApiErr {
	return &ApiErr{StatusCode: http.StatusBadRequest, err: ErrUsernameTaken, Field: "username"}
}

func NewEmailInUseError() *ApiErr {
	return &ApiErr{StatusCode: http.StatusBadRequest, err: ErrEmailInUse, Field: "email"}
}

// IsAccountConflict reports whether err is one of the "Error:"-prefixed account conflicts.
func IsAccountConflict(err error) bool {
	return errors.Is(err, ErrUsernameTaken) || errors.Is(err, ErrEmailInUse)
}
