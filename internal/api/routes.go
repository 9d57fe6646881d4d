package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vidsplit/vidsplit/internal/config"
	"github.com/vidsplit/vidsplit/internal/engine"
	"github.com/vidsplit/vidsplit/internal/jobs"
	"github.com/vidsplit/vidsplit/internal/session"
	"github.com/vidsplit/vidsplit/internal/split"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Route("/v1", func(r chi.Router) {
			r.Get("/capabilities", capabilitiesHandler(cfg))
			r.Post("/preview", previewHandler(cfg))
			r.Post("/jobs", submitJobHandler(cfg))
			r.Get("/jobs", listJobsHandler(cfg))
			r.Get("/jobs/{id}", getJobHandler(cfg))
			r.Post("/jobs/{id}/cancel", cancelJobHandler(cfg))
			r.Get("/jobs/{id}/edl", jobEDLHandler(cfg))
			r.Get("/jobs/{id}/segments/{index}/file", segmentFileHandler(cfg))
		})
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:     "ok",
			Version:    config.Version,
			UptimeS:    uptime,
			InstanceID: cfg.InstanceID,
		})
	}
}

func capabilitiesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caps, err := cfg.Doctor.Get(r.Context())
		if err != nil {
			WriteError(w, http.StatusServiceUnavailable, err.Error(), "ENGINE_UNAVAILABLE")
			return
		}

		WriteJSON(w, http.StatusOK, CapabilitiesToResponse(caps))
	}
}

func previewHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PreviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if req.InputPath == "" {
			WriteError(w, http.StatusBadRequest, "input_path is required", "BAD_REQUEST")
			return
		}
		if len(req.Timestamps) == 0 {
			WriteError(w, http.StatusBadRequest, "timestamps must not be empty", "BAD_REQUEST")
			return
		}

		summary, err := cfg.Orchestrator.Run(r.Context(), session.Request{
			InputPath:    req.InputPath,
			OutputPrefix: req.OutputPrefix,
			Timestamps:   req.Timestamps,
			Scale:        req.Scale,
			DryRun:       true,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := PreviewResponse{
			Input:    summary.Input,
			Scale:    summary.Scale,
			Segments: make([]SegmentResponse, len(summary.Segments)),
		}
		if summary.Media != nil {
			resp.Media = MediaToResponse(summary.Media)
		}
		for i, seg := range summary.Segments {
			resp.Segments[i] = SegmentToResponse(seg)
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func submitJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req jobs.SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		caps, err := cfg.Doctor.Get(r.Context())
		if err != nil || !caps.CanSplit() {
			msg := "media engine unavailable"
			if err == nil && caps.FFmpeg.Error != "" {
				msg = caps.FFmpeg.Error
			}
			WriteError(w, http.StatusServiceUnavailable, msg, "ENGINE_UNAVAILABLE")
			return
		}

		job, err := cfg.JobService.Submit(r.Context(), req)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		WriteJSON(w, http.StatusAccepted, SubmitJobResponse{JobID: job.ID})
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				WriteError(w, http.StatusBadRequest, "limit must be a positive integer", "BAD_REQUEST")
				return
			}
			limit = n
		}

		list, err := cfg.JobService.List(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list jobs", "INTERNAL_ERROR")
			return
		}

		resp := JobsResponse{Jobs: make([]JobResponse, len(list))}
		for i, j := range list {
			resp.Jobs[i] = JobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "job id required", "BAD_REQUEST")
			return
		}

		job, err := cfg.JobService.Get(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}

		results, err := cfg.JobService.SegmentResults(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		resp := JobDetailResponse{
			JobResponse: JobToResponse(job),
			Segments:    make([]SegmentResultResponse, len(results)),
		}
		for i, sr := range results {
			resp.Segments[i] = SegmentResultToResponse(sr)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func cancelJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "job id required", "BAD_REQUEST")
			return
		}

		job, err := cfg.JobService.Get(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}
		if job.IsTerminal() {
			WriteError(w, http.StatusConflict, "job already finished", "CONFLICT")
			return
		}

		canceled, err := cfg.JobService.CancelPending(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if canceled {
			WriteJSON(w, http.StatusOK, CancelResponse{ID: id, Status: jobs.StatusCanceled})
			return
		}

		// Not pending anymore; interrupt the run if it is the active one.
		if cfg.Runner != nil && cfg.Runner.Cancel(id) {
			WriteJSON(w, http.StatusAccepted, CancelResponse{ID: id, Status: "canceling"})
			return
		}

		WriteError(w, http.StatusConflict, "job is not cancelable", "CONFLICT")
	}
}

// writeDomainError maps validation and pre-flight failures from the split,
// session and engine packages onto stable HTTP codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, split.ErrInvalidTimestamp):
		WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_TIMESTAMP")
	case errors.Is(err, split.ErrTimestampOutOfRange):
		WriteError(w, http.StatusBadRequest, err.Error(), "TIMESTAMP_OUT_OF_RANGE")
	case errors.Is(err, split.ErrInvalidScaleSpec):
		WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_SCALE_SPEC")
	case errors.Is(err, session.ErrInputNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), "INPUT_NOT_FOUND")
	case errors.Is(err, engine.ErrEngineUnavailable):
		WriteError(w, http.StatusServiceUnavailable, err.Error(), "ENGINE_UNAVAILABLE")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}
