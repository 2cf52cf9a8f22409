package internal

import (
	"errors"
	"fmt"
)

var (
	// ErrCatalogUnavailable means the catalog could not be reached or answered
	// with something unusable. Fatal for a run.
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrSupplierUnresolved means the document supplier could not be mapped to
	// a known supplier. Fatal for a run.
	ErrSupplierUnresolved = errors.New("supplier unresolved")

	// ErrMatcherUnavailable means the matching capability could not be asked.
	ErrMatcherUnavailable = errors.New("matcher unavailable")
)

type CatalogError struct {
	Op         string
	Supplier   string
	StatusCode int
	Err        error
}

func (e *CatalogError) Error() string {
	msg := "catalog " + e.Op
	if e.Supplier != "" {
		msg += fmt.Sprintf(" supplier=%q", e.Supplier)
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status=%d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CatalogError) Unwrap() error { return e.Err }

func (e *CatalogError) Is(target error) bool { return target == ErrCatalogUnavailable }

type MatcherError struct {
	Provider string
	Err      error
}

func (e *MatcherError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("matcher %s unavailable", e.Provider)
	}
	return fmt.Sprintf("matcher %s unavailable: %v", e.Provider, e.Err)
}

func (e *MatcherError) Unwrap() error { return e.Err }

func (e *MatcherError) Is(target error) bool { return target == ErrMatcherUnavailable }

type SupplierError struct {
	Query  string
	Answer string
	Reason string
}

func (e *SupplierError) Error() string {
	if e.Answer != "" {
		return fmt.Sprintf("supplier unresolved for %q: %s (answer %q)", e.Query, e.Reason, e.Answer)
	}
	return fmt.Sprintf("supplier unresolved for %q: %s", e.Query, e.Reason)
}

func (e *SupplierError) Is(target error) bool { return target == ErrSupplierUnresolved }
