package domain

import "errors"

// ErrorKind classifies a failure for propagation and transport mapping.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindInvalidState      ErrorKind = "INVALID_STATE"
	KindValidation        ErrorKind = "VALIDATION"
	KindConflict          ErrorKind = "CONFLICT"
	KindDependencyFailure ErrorKind = "DEPENDENCY_FAILURE"
	KindForbidden         ErrorKind = "FORBIDDEN"
	KindInternal          ErrorKind = "INTERNAL"
)

// Error is a classified lifecycle error. Two errors are equal under errors.Is
// when their codes match, so wrapped or re-messaged errors still match the
// sentinel values below.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: msg}
}

func newError(kind ErrorKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	ErrAssetNotFound        = newError(KindNotFound, "ASSET_NOT_FOUND", "asset not found")
	ErrRequestNotFound      = newError(KindNotFound, "REQUEST_NOT_FOUND", "rental request not found")
	ErrTransactionNotFound  = newError(KindNotFound, "TRANSACTION_NOT_FOUND", "rental transaction not found")
	ErrExtensionNotFound    = newError(KindNotFound, "EXTENSION_NOT_FOUND", "extension record not found")
	ErrNotificationNotFound = newError(KindNotFound, "NOTIFICATION_NOT_FOUND", "notification not found")
	ErrFavoriteNotFound     = newError(KindNotFound, "FAVORITE_NOT_FOUND", "favorite not found")

	ErrAssetUnavailable        = newError(KindInvalidState, "ASSET_UNAVAILABLE", "asset is not available")
	ErrAssetInUse              = newError(KindInvalidState, "ASSET_IN_USE", "asset is referenced by rental history")
	ErrRequestNotPending       = newError(KindInvalidState, "REQUEST_NOT_PENDING", "rental request is not pending")
	ErrTransactionNotActive    = newError(KindInvalidState, "TRANSACTION_NOT_ACTIVE", "rental transaction is not active")
	ErrExtensionNotAllowed     = newError(KindInvalidState, "EXTENSION_NOT_ALLOWED", "extension is not allowed for this transaction")
	ErrExtensionAlreadyPending = newError(KindInvalidState, "EXTENSION_ALREADY_PENDING", "an extension request is already pending")
	ErrExtensionNotPending     = newError(KindInvalidState, "EXTENSION_NOT_PENDING", "extension record is not pending")

	ErrInvalidDuration    = newError(KindValidation, "INVALID_DURATION", "duration must be between 1 and 120 months")
	ErrInvalidMonths      = newError(KindValidation, "INVALID_MONTHS", "additional months must be between 1 and 12")
	ErrStartDateInPast    = newError(KindValidation, "START_DATE_IN_PAST", "start date must not be in the past")
	ErrInvalidAmount      = newError(KindValidation, "INVALID_AMOUNT", "amount must be positive")
	ErrInvalidAsset       = newError(KindValidation, "INVALID_ASSET", "invalid asset attributes")
	ErrInvalidAssetStatus = newError(KindValidation, "INVALID_ASSET_STATUS", "asset status cannot be set administratively")
	ErrInvalidDate        = newError(KindValidation, "INVALID_DATE", "invalid date, expected yyyy-mm-dd")
	ErrInvalidReference   = newError(KindValidation, "INVALID_REFERENCE", "payment does not reference a rental request")
	ErrInvalidRange       = newError(KindValidation, "INVALID_RANGE", "invalid reporting range")

	ErrConflict = newError(KindConflict, "CONFLICT", "concurrent modification detected")

	ErrDependencyFailure = newError(KindDependencyFailure, "DEPENDENCY_FAILURE", "side effect failed")

	ErrForbidden = newError(KindForbidden, "FORBIDDEN", "operation not permitted for caller")
)

// KindOf reports the classification of err, KindInternal for unclassified errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsConflict reports whether err is a retryable concurrent-modification error.
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}

// Warning records a side effect that degraded after the primary state change
// was already committed.
type Warning struct {
	Effect  string `json:"effect"`
	Message string `json:"message"`
}
