package auth

import (
	stderrors "errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidInput          = "INVALID_INPUT"
	TextCodeNotFound              = "NOT_FOUND"
	TextCodeAlreadyExists         = "ALREADY_EXISTS"
	TextCodeAlreadyMember         = "ALREADY_MEMBER"
	TextCodeNotAMember            = "NOT_A_MEMBER"
	TextCodeForbidden             = "FORBIDDEN"
	TextCodeProtectedRole         = "PROTECTED_ROLE"
	TextCodeInvalidCreds          = "INVALID_CREDENTIALS"
	TextCodeRefreshTokenExpired   = "REFRESH_TOKEN_EXPIRED"
	TextCodeRefreshTokenNotFound  = "REFRESH_TOKEN_NOT_FOUND"
	TextCodeInvalidRefreshToken   = "INVALID_REFRESH_TOKEN"
	TextCodeTokenExpired          = "TOKEN_EXPIRED"
	TextCodeTokenMalformed        = "TOKEN_MALFORMED"
	TextCodeTokenSignatureInvalid = "TOKEN_SIGNATURE_INVALID"
	TextCodeEmptyPassword         = "EMPTY_PASSWORD"
)

var (
	// ErrInvalidInput is returned for blank or malformed request fields
	ErrInvalidInput = goerrors.New("invalid input", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest).
			WithTextCode(TextCodeInvalidInput)

	// ErrNotFound is returned when a referenced user, project or task is absent
	ErrNotFound = goerrors.New("resource not found", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound).
			WithTextCode(TextCodeNotFound)

	// ErrAlreadyExists is returned when username or email collide
	ErrAlreadyExists = goerrors.New("username or email already exists", goerrors.CategoryConflict).
				WithCode(goerrors.CodeConflict).
				WithTextCode(TextCodeAlreadyExists)

	// ErrAlreadyMember is returned when adding a user that already has a membership row
	ErrAlreadyMember = goerrors.New("user is already a member of the project", goerrors.CategoryConflict).
				WithCode(goerrors.CodeConflict).
				WithTextCode(TextCodeAlreadyMember)

	// ErrNotAMember is returned when a membership row is required but absent
	ErrNotAMember = goerrors.New("user is not a member of the project", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound).
			WithTextCode(TextCodeNotAMember)

	// ErrForbidden is an authenticated but not permitted operation
	ErrForbidden = goerrors.New("operation not permitted", goerrors.CategoryAuthz).
			WithCode(goerrors.CodeForbidden).
			WithTextCode(TextCodeForbidden)

	// ErrProtectedRole guards OWNER memberships from reassignment and removal
	ErrProtectedRole = goerrors.New("the project owner role cannot be changed or removed", goerrors.CategoryAuthz).
				WithCode(goerrors.CodeForbidden).
				WithTextCode(TextCodeProtectedRole)

	// ErrMismatchedHashAndPassword is returned for any failed credential check
	ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
					WithCode(goerrors.CodeUnauthorized).
					WithTextCode(TextCodeInvalidCreds)

	// ErrNoEmptyString password hashing requires a value
	ErrNoEmptyString = goerrors.New("password can not be empty", goerrors.CategoryValidation).
				WithCode(goerrors.CodeBadRequest).
				WithTextCode(TextCodeEmptyPassword)

	// ErrRefreshTokenExpired the stored refresh token reached its expiry
	ErrRefreshTokenExpired = goerrors.New("refresh token expired", goerrors.CategoryAuth).
				WithCode(goerrors.CodeUnauthorized).
				WithTextCode(TextCodeRefreshTokenExpired)

	// ErrRefreshTokenNotFound no refresh token matches the presented value
	ErrRefreshTokenNotFound = goerrors.New("refresh token not found", goerrors.CategoryAuth).
				WithCode(goerrors.CodeUnauthorized).
				WithTextCode(TextCodeRefreshTokenNotFound)

	// ErrInvalidRefreshToken is what the orchestrator surfaces for any redeem failure
	ErrInvalidRefreshToken = goerrors.New("invalid refresh token", goerrors.CategoryAuth).
				WithCode(goerrors.CodeUnauthorized).
				WithTextCode(TextCodeInvalidRefreshToken)

	// ErrTokenExpired access token expiry claim is in the past
	ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode(TextCodeTokenExpired)

	// ErrTokenMalformed access token could not be decoded
	ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
				WithCode(goerrors.CodeUnauthorized).
				WithTextCode(TextCodeTokenMalformed)

	// ErrTokenSignatureInvalid access token signature does not verify
	ErrTokenSignatureInvalid = goerrors.New("token signature is invalid", goerrors.CategoryAuth).
					WithCode(goerrors.CodeUnauthorized).
					WithTextCode(TextCodeTokenSignatureInvalid)
)

// HasTextCode reports whether err carries the given go-errors text code
func HasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr != nil {
		return richErr.TextCode == code
	}
	return false
}

// IsNotFound covers missing users, projects, tasks and memberships
func IsNotFound(err error) bool {
	return HasTextCode(err, TextCodeNotFound) || HasTextCode(err, TextCodeNotAMember)
}

// IsForbidden reports a permission denial
func IsForbidden(err error) bool {
	return HasTextCode(err, TextCodeForbidden) || HasTextCode(err, TextCodeProtectedRole)
}

// IsTokenInvalid reports any access token verification failure
func IsTokenInvalid(err error) bool {
	return HasTextCode(err, TextCodeTokenExpired) ||
		HasTextCode(err, TextCodeTokenMalformed) ||
		HasTextCode(err, TextCodeTokenSignatureInvalid)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if HasTextCode(err, TextCodeTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if HasTextCode(err, TextCodeTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// withMetadata never mutates the package level sentinel
func withMetadata(base *goerrors.Error, meta map[string]any) *goerrors.Error {
	clone := base.Clone()
	if clone == nil {
		clone = base
	}
	return clone.WithMetadata(meta)
}

func wrapSource(base *goerrors.Error, source error, meta map[string]any) *goerrors.Error {
	clone := withMetadata(base, meta)
	if source != nil {
		clone.Source = source
	}
	return clone
}

// richOrInternal returns rich errors untouched and wraps anything else
func richOrInternal(err error, message string) error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if stderrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, message)
}

func textCodeOf(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr != nil {
		return richErr.TextCode
	}
	return ""
}
