package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Persistence adapters return these
// (optionally wrapped) so the finalization service can translate them into
// domain errors.
//
// - ErrNotFound: record does not exist in the durable store
// - ErrConflict: a conditional write lost against another writer
// - ErrUnavailable: the durable store could not be reached or written
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
