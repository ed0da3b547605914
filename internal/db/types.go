package db

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/flyer-scout/internal/types"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = errors.New("run not found")

// DefaultListLimit is used when a caller asks for a non-positive number of runs.
const DefaultListLimit = 20

// MaxListLimit caps how many runs one listing returns.
const MaxListLimit = 100

// ExtractionRun is one recorded extraction request and its result.
type ExtractionRun struct {
	ID         uuid.UUID         `json:"id"`
	StoreID    types.StoreID     `json:"store_id"`
	Mode       types.Mode        `json:"mode"`
	SourceURLs []string          `json:"source_urls"`
	Items      []types.FlyerItem `json:"items"`
	Count      int               `json:"count"`
	Warnings   []string          `json:"warnings"`
	Meta       types.ExtractMeta `json:"meta"`
	CreatedAt  time.Time         `json:"created_at"`
}

// RunSummary is a lightweight view of a run for listing
type RunSummary struct {
	ID        uuid.UUID     `json:"id"`
	StoreID   types.StoreID `json:"store_id"`
	Mode      types.Mode    `json:"mode"`
	Count     int           `json:"count"`
	Warnings  int           `json:"warnings"`
	CreatedAt time.Time     `json:"created_at"`
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
