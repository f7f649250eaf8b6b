package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// ErrorKind classifies save and load failures so callers can react to them.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindPermissionDenied ErrorKind = "permission_denied"
	KindDiskFull         ErrorKind = "disk_full"
	KindCorrupted        ErrorKind = "corrupted"
	KindVersionMismatch  ErrorKind = "version_mismatch"
	KindChecksumMismatch ErrorKind = "checksum_mismatch"
	KindIO               ErrorKind = "io"
)

// Error is returned by every failed save or load.
type Error struct {
	Kind    ErrorKind
	Slot    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Slot != "" {
		msg = fmt.Sprintf("%s (slot %q)", msg, e.Slot)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Classify turns a storage error into an *Error. Errors that already carry a
// kind keep it; the slot is filled in if missing.
func Classify(slot string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		if se.Slot == "" {
			cp := *se
			cp.Slot = slot
			return &cp
		}
		return se
	}

	kind := KindIO
	switch {
	case errors.Is(err, fs.ErrNotExist):
		kind = KindNotFound
	case errors.Is(err, fs.ErrPermission):
		kind = KindPermissionDenied
	case errors.Is(err, syscall.ENOSPC):
		kind = KindDiskFull
	}
	return &Error{Kind: kind, Slot: slot, Err: err}
}

// KindOf returns the kind of a classified error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
