package repositories

import "github.com/pkg/errors"

var (
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrFilterNotFound    = errors.New("notification filter not found")
)
