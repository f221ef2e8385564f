package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/usecase"
	"github.com/firebook-app/firebook/pkg/utils/errutil"
	"github.com/firebook-app/firebook/pkg/utils/logging"
	"github.com/firebook-app/firebook/pkg/utils/timing"
)

type AuthUseCase = usecase.AuthUseCaseInterface

type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type resultResponse struct {
	Result any `json:"result"`
}

// writeJSON writes a JSON response with proper error handling. The
// Server-Timing header is attached when the request was timed.
func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, data interface{}) {
	if t := timing.From(ctx); t != nil {
		w.Header().Set("Server-Timing", t.Header())
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		errutil.Handle(ctx, err, "failed to encode JSON response")
	}
}

// writeError maps err to a callable error body. Internal errors are reported
// and their details withheld from the client.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	code := model.ErrorCodeOf(err)
	msg := err.Error()

	if code == model.ErrorCodeInternal {
		errutil.Handle(ctx, err, "callable request failed")
		msg = "internal error"
	} else {
		logging.From(ctx).Warn("callable client error",
			"status", code.Status(),
			"error", err.Error(),
		)
	}

	writeJSON(ctx, w, code.HTTPStatus(), errorResponse{
		Error: errorBody{Status: code.Status(), Message: msg},
	})
}
