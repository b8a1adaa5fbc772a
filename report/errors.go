package report

import (
	errorslib "github.com/goliatone/go-errors"
	"github.com/goliatone/go-rights/rights"
)

// ErrorKind is shared with the rights domain so report errors map into
// the same go-errors categories.
type ErrorKind = rights.ErrorKind

const (
	KindValidation = rights.KindValidation
	KindAuthz      = rights.KindAuthz
	KindNotFound   = rights.KindNotFound
	KindExternal   = rights.KindExternal
	KindTimeout    = rights.KindTimeout
	KindCanceled   = rights.KindCanceled
	KindInternal   = rights.KindInternal
	KindNotImpl    = rights.KindNotImpl
)

// NewError creates a kinded report error.
func NewError(kind ErrorKind, msg string, err error) error {
	return rights.NewError(kind, msg, err)
}

// AsGoError maps an error into a go-errors error.
func AsGoError(err error) *errorslib.Error {
	return rights.AsGoError(err)
}

// KindFromError maps an error to its kind.
func KindFromError(err error) ErrorKind {
	return rights.KindFromError(err)
}
