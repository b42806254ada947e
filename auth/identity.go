package auth

// Identity is the caller resolved from a bearer token. The zero value is the anonymous caller.
type Identity struct {
	UserID   uint
	Email    string
	Username string
}

var Anonymous = Identity{}

func (i Identity) IsAnonymous() bool {
	return i.UserID == 0
}
