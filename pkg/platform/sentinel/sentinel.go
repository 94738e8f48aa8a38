package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped) and
// services translate them into domain errors:
//   - ErrNotFound: the row or record does not exist
//   - ErrConflict: a uniqueness or exclusion constraint rejected the write
//
// Input validation belongs to pkg/domain-errors, not here.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
