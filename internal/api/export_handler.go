package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/vidsplit/vidsplit/internal/export"
	"github.com/vidsplit/vidsplit/internal/jobs"
	"github.com/vidsplit/vidsplit/internal/split"
)

// jobEDLHandler renders a job's segment plan as a CMX 3600 EDL download.
// Finished jobs use the probed duration and frame rate recorded during the
// run; for a job that never ran the final open-ended event is left out.
func jobEDLHandler(cfg ServerConfig) http.HandlerFunc {
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

		segments, err := split.Plan(job.Timestamps, job.DurationSeconds, job.OutputPrefix, filepath.Ext(job.InputPath))
		if err != nil {
			WriteError(w, http.StatusUnprocessableEntity, err.Error(), "UNRESOLVABLE_SEGMENTS")
			return
		}

		base := filepath.Base(job.InputPath)
		title := export.SanitizeName(strings.TrimSuffix(base, filepath.Ext(base)), 120)
		if title == "" {
			title = "vidsplit_export"
		}

		edl := export.GenerateEDL(segments, job.InputPath, title, job.FrameRate, job.DurationSeconds)

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", title+".edl"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(edl))
	}
}

// segmentFileHandler serves one produced segment file with Range support.
func segmentFileHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "job id required", "BAD_REQUEST")
			return
		}

		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil || index < 1 {
			WriteError(w, http.StatusBadRequest, "segment index must be a positive integer", "BAD_REQUEST")
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

		var target *jobs.SegmentResult
		for _, sr := range results {
			if sr.Index == index {
				target = sr
				break
			}
		}
		if target == nil {
			WriteError(w, http.StatusNotFound, "segment not found", "NOT_FOUND")
			return
		}
		if !target.IsSuccess() {
			WriteError(w, http.StatusNotFound, "segment was not produced", "NOT_FOUND")
			return
		}

		if err := cfg.Files.ServeFile(w, r, target.OutputPath); err != nil {
			cfg.Logger.Error("segment serve error", "error", err, "job_id", id, "index", index)
		}
	}
}
