package errors

import (
	"errors"
	"fmt"
)

// Taxonomy shared by the catalog, the roster gateway, the CI aggregator and
// the grading services. Everything an external call can do wrong maps onto
// one of these; nothing here is fatal to the process.
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("identity conflict")
	ErrNotConfigured       = errors.New("required configuration missing")
	ErrExternalUnavailable = errors.New("external service unavailable")

	ErrNoCIConfigured    = errors.New("ci is not configured for the repository")
	ErrNoCommits         = errors.New("repository has no commits")
	ErrChecksUnavailable = errors.New("check runs could not be fetched")

	ErrCodeInvalid = errors.New("access code invalid")
	ErrCodeClaimed = errors.New("access code bound to another chat")
	ErrNoGithub    = errors.New("no github username on file")
)

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

func Unavailablef(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrExternalUnavailable)...)
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
