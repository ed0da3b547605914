package stores

import (
	"fmt"

	"github.com/jonathan/flyer-scout/internal/types"
)

// DiscoveryError means the page a store's discovery depends on could not be fetched.
// It is the only discovery failure that is not downgraded to a warning.
type DiscoveryError struct {
	StoreID types.StoreID
	URL     string
	Message string
	Cause   error
}

func (e *DiscoveryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("discovery error for %s (%s): %s: %v", e.StoreID, e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("discovery error for %s (%s): %s", e.StoreID, e.URL, e.Message)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Cause
}

// CatalogError represents an invalid store catalog.
type CatalogError struct {
	Source  string
	StoreID types.StoreID
	Message string
	Cause   error
}

func (e *CatalogError) Error() string {
	where := e.Source
	if e.StoreID != "" {
		where = fmt.Sprintf("%s: store %s", e.Source, e.StoreID)
	}
	if e.Cause != nil {
		return fmt.Sprintf("catalog error (%s): %s: %v", where, e.Message, e.Cause)
	}
	return fmt.Sprintf("catalog error (%s): %s", where, e.Message)
}

func (e *CatalogError) Unwrap() error {
	return e.Cause
}

// UnknownStoreError is returned when a store id is not in the catalog.
type UnknownStoreError struct {
	StoreID types.StoreID
}

func (e *UnknownStoreError) Error() string {
	return fmt.Sprintf("unknown store %q", e.StoreID)
}
