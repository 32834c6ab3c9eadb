package auth

import "errors"

var (
	ErrNoProof          = errors.New("no identity proof available")
	ErrNotAuthenticated = errors.New("not authenticated")
)
