package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Callers can match them with errors.Is.
var (
	// ErrNoSeeds is returned when no seed source is configured.
	ErrNoSeeds = errors.New("no initial URLs provided: use --url, --input-file, or --search-site")

	// ErrInvalidTimeout is returned when the fetch timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when the fetch concurrency is negative.
	// Zero is allowed and means unlimited.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be non-negative")

	// ErrInvalidWgetConcurrency is returned when the wget concurrency is not positive.
	ErrInvalidWgetConcurrency = errors.New("invalid wget concurrency: must be positive")

	// ErrInvalidSearchLimit is returned when --search-site is used with a
	// non-positive limit.
	ErrInvalidSearchLimit = errors.New("invalid search limit: must be positive")

	// ErrInvalidMaxResults is returned when the result limit is negative.
	ErrInvalidMaxResults = errors.New("invalid max results: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the body size limit is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrConflictingProxy is returned when both --proxy and --tor are given.
	ErrConflictingProxy = errors.New("conflicting proxy settings: --proxy and --tor cannot be used together")
)
