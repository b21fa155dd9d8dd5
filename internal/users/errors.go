package users

import (
	"errors"

	pkgerrors "github.com/angelmondragon/contactbook-backend/pkg/errors"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
	ErrOTPNotFound  = errors.New("no password reset code pending")
	ErrOTPMismatch  = errors.New("password reset code does not match")
	ErrOTPExpired   = errors.New("password reset code expired")
)

func userNotFound() error {
	return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrUserNotFound, "user not found")
}

func emailTaken(cause error) error {
	return pkgerrors.Wrap(pkgerrors.CodeConflict, errors.Join(ErrEmailTaken, cause), "email already registered")
}

func otpNotFound() error {
	return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrOTPNotFound, "no password reset code pending")
}

func otpMismatch() error {
	return pkgerrors.Wrap(pkgerrors.CodeForbidden, ErrOTPMismatch, "invalid password reset code")
}

func otpExpired() error {
	return pkgerrors.Wrap(pkgerrors.CodeExpired, ErrOTPExpired, "password reset code expired")
}
