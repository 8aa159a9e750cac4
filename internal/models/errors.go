package models

import "errors"

// Sentinel errors for the run engine. Handlers translate these to HTTP
// statuses with errors.Is; everything else is a storage failure.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrRunNotActive    = errors.New("run is not active")
	ErrNoCandidates    = errors.New("no questions available")
	ErrDuplicateAnswer = errors.New("question already answered in this run")
	ErrConflict        = errors.New("run was modified concurrently")
	ErrInvalidResponse = errors.New("response does not match question format")
)
