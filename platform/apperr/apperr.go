// Package apperr holds the typed errors services return. httpkit maps the
// Kind to a status code; bidding rejections add a Reason and the full
// decision as Details.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	// KindValidation covers malformed input and incomplete offers.
	KindValidation
	// KindConflict covers state clashes: duplicate price, pending quantity
	// decision, wrong lifecycle status.
	KindConflict
	// KindForbidden covers ownership failures and locked-out suppliers.
	KindForbidden
	KindInternal
	// KindGone is a quotation that no longer accepts offers.
	KindGone
	// KindUnprocessable is a price that does not undercut enough.
	KindUnprocessable
)

var statusByKind = map[Kind]int{
	KindNotFound:      http.StatusNotFound,
	KindValidation:    http.StatusBadRequest,
	KindConflict:      http.StatusConflict,
	KindForbidden:     http.StatusForbidden,
	KindInternal:      http.StatusInternalServerError,
	KindGone:          http.StatusGone,
	KindUnprocessable: http.StatusUnprocessableEntity,
}

type Error struct {
	Kind    Kind
	Message string
	// Reason is a machine readable code such as "DuplicatePrice".
	Reason  string
	Op      string
	Err     error
	Details any
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Reason)
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus defaults to 400 for KindUnknown.
func (e *Error) HTTPStatus() int {
	if status, ok := statusByKind[e.Kind]; ok {
		return status
	}
	return http.StatusBadRequest
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

func (e *Error) WithReason(reason string) *Error {
	e.Reason = reason
	return e
}

func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

func NotFound(message string) *Error      { return New(KindNotFound, message) }
func Validation(message string) *Error    { return New(KindValidation, message) }
func Conflict(message string) *Error      { return New(KindConflict, message) }
func Forbidden(message string) *Error     { return New(KindForbidden, message) }
func Internal(message string) *Error      { return New(KindInternal, message) }
func Gone(message string) *Error          { return New(KindGone, message) }
func Unprocessable(message string) *Error { return New(KindUnprocessable, message) }

// GetKind returns the Kind of the first *Error in the chain, or KindUnknown.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
