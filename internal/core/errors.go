package core

import (
	"errors"
	"fmt"
	"strings"
)

// CodedError is implemented by domain errors that carry a machine-readable code.
type CodedError interface {
	error
	ErrorCode() string
}

// ErrRepoNotFound reports a lookup for an unregistered repository name.
var ErrRepoNotFound = errors.New("repository not found")

// ErrCollectionNotFound reports a lookup for an unknown collection name.
var ErrCollectionNotFound = errors.New("collection not found")

// AlreadyExistsError reports an attempt to register a name that is taken.
type AlreadyExistsError struct {
	Name string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("repository %q is already registered", e.Name)
}

func (e *AlreadyExistsError) ErrorCode() string { return "already_exists" }

// InvalidPathError reports a repository path that does not resolve to an
// existing directory.
type InvalidPathError struct {
	Path   string
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
}

func (e *InvalidPathError) ErrorCode() string { return "invalid_path" }

// MissingReposError reports collection members that are not registered
// repositories. The collection is not created.
type MissingReposError struct {
	Missing []string
}

func (e *MissingReposError) Error() string {
	return fmt.Sprintf("unknown repositories: %s", strings.Join(e.Missing, ", "))
}

func (e *MissingReposError) ErrorCode() string { return "missing_repos" }

// ErrorCode maps any error to a machine-readable code for logging. Domain
// errors carry their own code; everything else is an internal error.
func ErrorCode(err error) string {
	var coded CodedError
	if errors.As(err, &coded) {
		return coded.ErrorCode()
	}
	switch {
	case errors.Is(err, ErrRepoNotFound):
		return "repo_not_found"
	case errors.Is(err, ErrCollectionNotFound):
		return "collection_not_found"
	default:
		return "internal_error"
	}
}
