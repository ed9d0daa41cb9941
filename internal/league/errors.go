package league

import "errors"

var (
	// ErrDuplicateSubmission is returned when a result already exists for the
	// same user, group and day key. The stored result is left unchanged.
	ErrDuplicateSubmission = errors.New("result already submitted for this day")
	ErrPermissionDenied    = errors.New("group admin capability required")
	ErrUnknownGroupOrUser  = errors.New("unknown group or user")
	ErrInvalidGuessCount   = errors.New("guess count must be between 1 and 6")
	ErrInvalidAdjustment   = errors.New("adjustment delta must be non-zero")
	ErrAlreadyMember       = errors.New("user is already a member of this group")
	ErrUsernameTaken       = errors.New("username already exists")
)
