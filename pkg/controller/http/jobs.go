package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

type jobResponse struct {
	JobID model.JobID `json:"jobId"`
	Done  bool        `json:"done"`
}

// jobHandler runs a pushed job synchronously. Redelivery is safe because each
// stage re-checks its guard.
func jobHandler(uc UseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var job model.Job
		if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&job); err != nil {
			writeError(ctx, w, goerr.Wrap(model.ErrInvalidArgument, "job body must be JSON", goerr.V("reason", err.Error())))
			return
		}
		if job.ID == "" {
			job.ID = model.NewJobID()
		}

		if err := uc.RunJob(ctx, job); err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, http.StatusOK, jobResponse{JobID: job.ID, Done: true})
	}
}
