package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/domain/model/auth"
	"github.com/firebook-app/firebook/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
)

const maxRequestBody = 1 << 20

// decodeData reads the callable envelope {"data": {...}} into v. A missing
// body or data field leaves v untouched.
func decodeData(r *http.Request, v any) error {
	var req struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return goerr.Wrap(model.ErrInvalidArgument, "request body must be JSON", goerr.V("reason", err.Error()))
	}

	if len(req.Data) == 0 || bytes.Equal(req.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(req.Data, v); err != nil {
		return goerr.Wrap(model.ErrInvalidArgument, "invalid request data", goerr.V("reason", err.Error()))
	}
	return nil
}

type generateEmbeddingRequest struct {
	BookmarkID string `json:"bookmarkId"`
	Force      bool   `json:"force"`
}

func generateEmbeddingHandler(uc UseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller, err := auth.CallerFromContext(ctx)
		if err != nil {
			writeError(ctx, w, err)
			return
		}

		var req generateEmbeddingRequest
		if err := decodeData(r, &req); err != nil {
			writeError(ctx, w, err)
			return
		}

		result, err := uc.GenerateEmbedding(ctx, caller.UID, model.BookmarkID(req.BookmarkID), req.Force)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, http.StatusOK, resultResponse{Result: result})
	}
}

type findSimilarRequest struct {
	BookmarkID string   `json:"bookmarkId"`
	Limit      *int     `json:"limit"`
	Threshold  *float64 `json:"threshold"`
}

type findSimilarResponse struct {
	Similar []model.SimilarityResult `json:"similar"`
}

func findSimilarHandler(uc UseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller, err := auth.CallerFromContext(ctx)
		if err != nil {
			writeError(ctx, w, err)
			return
		}

		var req findSimilarRequest
		if err := decodeData(r, &req); err != nil {
			writeError(ctx, w, err)
			return
		}

		similar, err := uc.FindSimilar(ctx, caller.UID, usecase.FindSimilarInput{
			BookmarkID: model.BookmarkID(req.BookmarkID),
			Limit:      req.Limit,
			Threshold:  req.Threshold,
		})
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, http.StatusOK, resultResponse{Result: findSimilarResponse{Similar: similar}})
	}
}

type suggestCollectionsRequest struct {
	MinClusterSize      *int     `json:"minClusterSize"`
	SimilarityThreshold *float64 `json:"similarityThreshold"`
}

func suggestSmartCollectionsHandler(uc UseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller, err := auth.CallerFromContext(ctx)
		if err != nil {
			writeError(ctx, w, err)
			return
		}

		var req suggestCollectionsRequest
		if err := decodeData(r, &req); err != nil {
			writeError(ctx, w, err)
			return
		}

		suggestion, err := uc.SuggestSmartCollections(ctx, caller.UID, usecase.SuggestCollectionsInput{
			MinClusterSize:      req.MinClusterSize,
			SimilarityThreshold: req.SimilarityThreshold,
		})
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, http.StatusOK, resultResponse{Result: suggestion})
	}
}
