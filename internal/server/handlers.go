package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/jonathan/flyer-scout/internal/db"
	"github.com/jonathan/flyer-scout/internal/pipeline"
	"github.com/jonathan/flyer-scout/internal/types"
)

// DiscoverRequest is the request body for /discover
type DiscoverRequest struct {
	StoreID types.StoreID `json:"store_id"`
}

// StoresResponse is the response for /stores
type StoresResponse struct {
	Stores []types.StoreSummary `json:"stores"`
}

// RunsResponse is the response for /stores/{store_id}/runs
type RunsResponse struct {
	StoreID types.StoreID `json:"store_id"`
	Runs    any           `json:"runs"`
}

// decodeBody reads a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &ErrBadRequest{Message: "request body is empty"}
		}
		return &ErrBadRequest{Message: "invalid request body: " + err.Error()}
	}
	return nil
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStores lists the configured stores
func (s *Server) handleStores(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, StoresResponse{Stores: s.service.Stores()})
}

// handleDiscover returns the current flyer candidates of a store
func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	var req DiscoverRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.failure(w, r, err)
		return
	}
	if req.StoreID == "" {
		s.failure(w, r, &ErrBadRequest{Message: "store_id is required"})
		return
	}

	res, err := s.service.Discover(r.Context(), req.StoreID)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

// handleResolve turns viewer pages into direct asset candidates
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req types.ResolveRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.failure(w, r, err)
		return
	}

	res, err := s.service.Resolve(r.Context(), req)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

// handleExtract runs a full extraction and returns the items
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req types.ExtractRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.failure(w, r, err)
		return
	}

	resp, err := s.service.Extract(r.Context(), req, nil)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleExtractStream runs an extraction and streams progress via SSE
func (s *Server) handleExtractStream(w http.ResponseWriter, r *http.Request) {
	var req types.ExtractRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.failure(w, r, err)
		return
	}

	if err := s.service.ValidateExtract(req); err != nil {
		s.failure(w, r, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	resp, err := s.service.Extract(r.Context(), req, func(event pipeline.ProgressEvent) {
		if err := sse.WriteEvent("progress", event); err != nil {
			s.logger.Debug().Err(err).Msg("error writing SSE event")
		}
	})
	if err != nil {
		status := HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error().Err(err).Msg("streamed extraction failed")
		}
		sse.WriteError(status, err.Error())
		return
	}
	sse.WriteResult(resp)
}

// handleGetRun returns one recorded extraction run
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "run history is not configured")
		return
	}

	idStr := r.PathValue("id")
	runID, err := uuid.Parse(idStr)
	if err != nil {
		s.failure(w, r, &ErrBadRequest{Message: "invalid run ID format"})
		return
	}

	run, err := s.runs.GetRun(r.Context(), runID)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	if run == nil {
		s.failure(w, r, &ErrRunNotFound{RunID: idStr})
		return
	}
	s.jsonResponse(w, http.StatusOK, run)
}

// handleDeleteRun removes one recorded extraction run
func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "run history is not configured")
		return
	}

	idStr := r.PathValue("id")
	runID, err := uuid.Parse(idStr)
	if err != nil {
		s.failure(w, r, &ErrBadRequest{Message: "invalid run ID format"})
		return
	}

	if err := s.runs.DeleteRun(r.Context(), runID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			err = &ErrRunNotFound{RunID: idStr}
		}
		s.failure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListStoreRuns lists the most recent runs of a store
func (s *Server) handleListStoreRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "run history is not configured")
		return
	}

	storeID := types.StoreID(r.PathValue("store_id"))
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.failure(w, r, &ErrBadRequest{Message: fmt.Sprintf("invalid limit %q", v)})
			return
		}
		limit = n
	}

	runs, err := s.runs.ListRuns(r.Context(), storeID, limit)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, RunsResponse{StoreID: storeID, Runs: runs})
}
