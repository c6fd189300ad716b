package store

import "errors"

// Sentinel errors returned by Store methods. Callers above this package
// (channel, message, discovery, session engines) translate these into
// apperr.Kind values; the store itself stays storage-shaped.
var (
	ErrNotFound     = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	ErrConflict     = errors.New("store: conflict")
)
