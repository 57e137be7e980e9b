package service

import (
	"database/sql"
	"errors"

	appErrors "github.com/noah-isme/academic-tracker-api/pkg/errors"
)

// translateRepoError maps repository failures onto API errors. Typed errors
// raised inside repository callbacks pass through untouched.
func translateRepoError(err error, notFound, internal string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return typed
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
