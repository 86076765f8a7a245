package service

import (
	"errors"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

var (
	ErrInvalidCredentials   = errors.New("unable to log in with provided credentials")
	ErrTokenNotValid        = errors.New("token is invalid or expired")
	ErrInvalidUID           = errors.New("invalid user id or user doesn't exist")
	ErrInvalidToken         = errors.New("invalid token for given user")
	ErrStaleToken           = errors.New("stale token for given user")
	ErrPasswordMismatch     = errors.New("password does not match")
	ErrOldPasswordIncorrect = errors.New("old password is not correct")
	ErrForbidden            = errors.New("permission denied")
	ErrAccountNotFound      = errors.New("account not found")
	ErrResetTokenNotFound   = errors.New("reset token not found")
	ErrUnsupportedFile      = errors.New("unsupported file")
)

// FieldErrors carries validation messages keyed by payload field.
type FieldErrors map[string][]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(e[field], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e FieldErrors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func fieldError(field, message string) FieldErrors {
	return FieldErrors{field: {message}}
}

// asFieldErrors converts ozzo-validation results. Internal validation errors pass through.
func asFieldErrors(err error) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return err
	}

	out := FieldErrors{}
	for field, ferr := range verrs {
		if ferr != nil {
			out.Add(field, ferr.Error())
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
