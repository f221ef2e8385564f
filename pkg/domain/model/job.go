package model

import (
	"github.com/firebook-app/firebook/pkg/domain/types"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// JobID identifies one queued unit of pipeline work
type JobID string

// NewJobID generates a time-ordered UUID v7 JobID
func NewJobID() JobID {
	id, err := uuid.NewV7()
	if err != nil {
		return JobID(uuid.New().String())
	}
	return JobID(id.String())
}

// Job asks the orchestrator to run an operation for one bookmark. Jobs carry
// only identifiers; the worker re-reads the bookmark before running.
type Job struct {
	ID         JobID              `json:"id"`
	OwnerID    OwnerID            `json:"ownerId"`
	BookmarkID BookmarkID         `json:"bookmarkId"`
	Operation  types.JobOperation `json:"operation"`
}

// NewJob builds a job with a fresh ID
func NewJob(ownerID OwnerID, bookmarkID BookmarkID, op types.JobOperation) Job {
	return Job{
		ID:         NewJobID(),
		OwnerID:    ownerID,
		BookmarkID: bookmarkID,
		Operation:  op,
	}
}

// Validate checks that the job names a bookmark and a known operation
func (j Job) Validate() error {
	if j.OwnerID == "" || j.BookmarkID == "" {
		return goerr.Wrap(ErrInvalidArgument, "job requires ownerId and bookmarkId",
			goerr.V("owner_id", j.OwnerID), goerr.V("bookmark_id", j.BookmarkID))
	}
	if !j.Operation.IsValid() {
		return goerr.Wrap(ErrInvalidArgument, "unknown job operation", goerr.V("operation", j.Operation))
	}
	return nil
}
