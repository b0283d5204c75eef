package token

import "errors"

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrNotApprovable         = errors.New("token not approvable before graduation")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrReceiveRejected       = errors.New("receive rejected")
)
