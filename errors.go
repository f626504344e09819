package credstore

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/jackc/pgx/v5/pgconn"
)

// CategorySerialization marks failures encoding or decoding the data blob
const CategorySerialization goerrors.Category = "serialization"

const (
	TextCodeInvalidUsername    = "INVALID_USERNAME"
	TextCodeInvalidEmail       = "INVALID_EMAIL"
	TextCodeInvalidPassword    = "INVALID_PASSWORD"
	TextCodeInvalidIdentifier  = "INVALID_IDENTIFIER"
	TextCodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	TextCodeVerificationFailed = "VERIFICATION_FAILED"
	TextCodeAccountConflict    = "ACCOUNT_CONFLICT"
	TextCodePasswordMismatch   = "PASSWORD_MISMATCH"
	TextCodeCredentialMismatch = "CREDENTIAL_MISMATCH"
	TextCodeDataDecodeFailed   = "DATA_DECODE_FAILED"
	TextCodeDataEncodeFailed   = "DATA_ENCODE_FAILED"
)

const pgUniqueViolation = "23505"

func validationError(message, textCode string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryValidation).
		WithTextCode(textCode).
		WithCode(goerrors.CodeBadRequest)
}

func notFoundError(message, textCode string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryNotFound).
		WithTextCode(textCode).
		WithCode(goerrors.CodeNotFound)
}

func authenticationError(message, textCode string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryAuth).
		WithTextCode(textCode).
		WithCode(goerrors.CodeUnauthorized)
}

func serializationError(err error, message, textCode string) *goerrors.Error {
	return goerrors.Wrap(err, CategorySerialization, message).
		WithTextCode(textCode).
		WithCode(goerrors.CodeInternal)
}

// storeError classifies a raw store failure. Unique violations become
// conflicts, everything else is internal. The driver error stays reachable
// through errors.Unwrap.
func storeError(err error, message string) error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}

	if IsUniqueViolation(err) {
		return goerrors.Wrap(err, goerrors.CategoryConflict, "account already exists").
			WithTextCode(TextCodeAccountConflict).
			WithCode(goerrors.CodeConflict)
	}

	return goerrors.Wrap(err, goerrors.CategoryInternal, message).
		WithCode(goerrors.CodeInternal)
}

// IsUniqueViolation recognises unique constraint failures from sqlite and postgres
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsValidationError reports input rejected before any store access
func IsValidationError(err error) bool {
	return goerrors.IsValidation(err)
}

// IsNotFoundError reports a missing account, token or affected row
func IsNotFoundError(err error) bool {
	return goerrors.IsNotFound(err)
}

// IsConflictError reports a uniqueness violation surfaced by the store
func IsConflictError(err error) bool {
	return goerrors.IsCategory(err, goerrors.CategoryConflict)
}

// IsAuthenticationError reports a password or token mismatch
func IsAuthenticationError(err error) bool {
	return goerrors.IsAuth(err)
}

// IsSerializationError reports a data blob that could not be encoded or decoded
func IsSerializationError(err error) bool {
	return goerrors.IsCategory(err, CategorySerialization)
}

// TextCode returns the text code carried by err, if any
func TextCode(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode
	}
	return ""
}
