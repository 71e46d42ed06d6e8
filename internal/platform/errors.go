package platform

import (
	"errors"
	"fmt"
)

// Category classifies a handler failure for messaging and exit codes.
type Category int

const (
	CategoryNone Category = iota
	CategoryInvalidURL
	CategoryUnsupported
	CategoryUnavailable
	CategoryRateLimited
	CategoryAuthRequired
	CategoryNotFound
	CategoryMalformed
	CategoryNetwork
	CategoryFilesystem
	CategoryGeneric
)

func (c Category) String() string {
	switch c {
	case CategoryInvalidURL:
		return "invalid-url"
	case CategoryUnsupported:
		return "unsupported"
	case CategoryUnavailable:
		return "unavailable"
	case CategoryRateLimited:
		return "rate-limited"
	case CategoryAuthRequired:
		return "auth-required"
	case CategoryNotFound:
		return "not-found"
	case CategoryMalformed:
		return "malformed-response"
	case CategoryNetwork:
		return "network"
	case CategoryFilesystem:
		return "filesystem"
	case CategoryGeneric:
		return "generic"
	}
	return "none"
}

// CategorizedError carries a failure category alongside the underlying error.
type CategorizedError struct {
	Category Category
	Err      error
}

func (e CategorizedError) Error() string {
	if e.Err == nil {
		return e.Category.String()
	}
	return e.Err.Error()
}

func (e CategorizedError) Unwrap() error {
	return e.Err
}

func wrapCategory(category Category, err error) error {
	if err == nil {
		return nil
	}
	return CategorizedError{Category: category, Err: err}
}

func categorizedf(category Category, format string, args ...any) error {
	return CategorizedError{Category: category, Err: fmt.Errorf(format, args...)}
}

// ErrorCategory extracts the category from an error chain, defaulting to generic.
func ErrorCategory(err error) Category {
	if err == nil {
		return CategoryNone
	}
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return CategoryGeneric
}

// ExitCode maps a failure category to a process exit code for the CLI.
func (c Category) ExitCode() int {
	switch c {
	case CategoryNone:
		return 0
	case CategoryInvalidURL, CategoryUnsupported:
		return 2
	case CategoryUnavailable, CategoryNotFound:
		return 3
	case CategoryRateLimited, CategoryAuthRequired:
		return 4
	case CategoryNetwork, CategoryMalformed:
		return 5
	case CategoryFilesystem:
		return 6
	}
	return 1
}
