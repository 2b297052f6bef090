package usecase

import "errors"

type ErrNotFound string

func (e ErrNotFound) Error() string { return string(e) + " not found" }

type ErrConflict string

func (e ErrConflict) Error() string { return string(e) }

type ErrBadRequest string

func (e ErrBadRequest) Error() string { return string(e) }

var (
	ErrStoreUnavailable          = errors.New("order store unavailable")
	ErrPaymentVerificationFailed = errors.New("payment verification failed")
	ErrIllegalTransition         = errors.New("illegal status transition")
)
