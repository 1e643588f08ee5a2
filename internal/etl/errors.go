package etl

import (
	stderrors "errors"

	"github.com/cockroachdb/errors"

	"github.com/BartekS5/npiload/internal/config"
)

// Error kinds. Stage errors carry one of these so callers can match with
// errors.Is (standard library or cockroachdb) while the message keeps the
// underlying cause. Payload errors also match ErrNotFound.
var (
	ErrNotFound        = errors.New("not found")
	ErrPayloadNotFound = errors.New("payload not found")
	ErrFetch           = errors.New("fetch failed")
	ErrUpload          = errors.New("upload failed")
	ErrLoad            = errors.New("load failed")
)

// kindError tags err with a kind without changing its message.
type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }

func (e *kindError) Unwrap() error { return e.err }

func (e *kindError) Is(target error) bool {
	if target == e.kind {
		return true
	}
	return e.kind == ErrPayloadNotFound && target == ErrNotFound
}

// Kind returns a stable label for err, used in logs, metrics and notifications.
func Kind(err error) string {
	var cfgErr *config.ConfigError
	switch {
	case err == nil:
		return ""
	case stderrors.As(err, &cfgErr):
		return "config"
	case stderrors.Is(err, ErrPayloadNotFound):
		return "payload_not_found"
	case stderrors.Is(err, ErrNotFound):
		return "not_found"
	case stderrors.Is(err, ErrFetch):
		return "fetch"
	case stderrors.Is(err, ErrUpload):
		return "upload"
	case stderrors.Is(err, ErrLoad):
		return "load"
	default:
		return "unknown"
	}
}

// markf builds a stage error of the given kind, wrapping cause when set.
func markf(kind error, cause error, format string, args ...interface{}) error {
	var err error
	if cause == nil {
		err = errors.Newf(format, args...)
	} else {
		err = errors.Wrapf(cause, format, args...)
	}
	return &kindError{kind: kind, err: err}
}
