package shared

import (
	"fmt"
	"strings"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Catalog errors
	ErrCatalogFetch    = fmt.Errorf("catalog fetch failed")
	ErrCatalogMutation = fmt.Errorf("catalog mutation failed")
	ErrAPIRequest      = fmt.Errorf("API request failed")

	// Local file errors
	ErrFileFormat = fmt.Errorf("invalid playlist file")
	ErrFilesystem = fmt.Errorf("filesystem error")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// UnitError attaches the failing unit (operation, collection kind and playlist name) to an error.
//
// Unwrap returns the cause so [errors.Is] still matches the sentinel it wraps.
type UnitError struct {
	Op   string
	Kind string
	Name string
	Err  error
}

func (e *UnitError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Kind != "" {
		b.WriteString(" " + e.Kind)
	}
	if e.Name != "" {
		fmt.Fprintf(&b, " %q", e.Name)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *UnitError) Unwrap() error { return e.Err }

// NewUnitError wraps err with unit context. Returns nil when err is nil.
func NewUnitError(op, kind, name string, err error) error {
	if err == nil {
		return nil
	}
	return &UnitError{Op: op, Kind: kind, Name: name, Err: err}
}
