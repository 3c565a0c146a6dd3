package types

import (
	"errors"
	"time"
)

// RunMeta identifies a validation run.
type RunMeta struct {
	// RunID is the canonical run identifier. Must be non-empty.
	RunID string
	// StartedAt is the wall-clock start of the run.
	StartedAt time.Time
}

// Validate checks run identity.
func (r *RunMeta) Validate() error {
	if r == nil {
		return errors.New("run metadata is required")
	}
	if r.RunID == "" {
		return errors.New("run_id must be non-empty")
	}
	return nil
}

// Day returns the partition day of the run start, YYYY-MM-DD in UTC.
func (r *RunMeta) Day() string {
	return r.StartedAt.UTC().Format("2006-01-02")
}
