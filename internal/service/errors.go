package service

import (
	"errors"

	domainerrors "github.com/listenupapp/bulkmeta/internal/errors"
	"github.com/listenupapp/bulkmeta/internal/store"
)

// storeError converts store sentinels into domain errors. Anything else is
// returned unchanged and ends up as an internal error.
func storeError(err error, notFoundMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFound(notFoundMsg)
	case errors.Is(err, store.ErrAlreadyExists):
		var storeErr *store.Error
		if errors.As(err, &storeErr) {
			return domainerrors.AlreadyExists(storeErr.Message)
		}
		return domainerrors.AlreadyExists("resource already exists")
	case errors.Is(err, store.ErrInvalidInput):
		return domainerrors.Validation(err.Error())
	}
	return err
}
