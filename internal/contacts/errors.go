package contacts

import (
	"errors"
	"fmt"

	pkgerrors "github.com/angelmondragon/contactbook-backend/pkg/errors"
)

var (
	// ErrNotFoundOrForbidden covers both a missing contact and one owned by
	// another user; callers cannot tell the two apart.
	ErrNotFoundOrForbidden = errors.New("contact not found")
	ErrDuplicateEmail      = errors.New("contact email already exists")
)

func notFoundOrForbidden(id int64) error {
	return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrNotFoundOrForbidden, fmt.Sprintf("contact %d not found", id))
}

func duplicateEmail(cause error) error {
	return pkgerrors.Wrap(pkgerrors.CodeConflict, errors.Join(ErrDuplicateEmail, cause), "a contact with this email already exists")
}

func storageFailure(err error, op string) error {
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
