package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/verte-zerg/codetype/internal/aggregator"
	"github.com/verte-zerg/codetype/internal/model"
)

const maxBodyBytes = 1 << 16

// Error codes carried in the response envelope.
const (
	codeBadRequest   = "bad_request"
	codeInvalid      = "invalid_submission"
	codeInvalidRange = "invalid_range"
	codeNotFound     = "not_found"
	codeUnavailable  = "unavailable"
	codeInternal     = "internal_error"
)

// Response helpers

type apiResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode error response", zap.Error(err))
	}
}

// respondAggregatorError maps aggregator errors onto HTTP statuses.
func (s *Server) respondAggregatorError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, aggregator.ErrInvalidSubmission):
		s.respondError(w, http.StatusBadRequest, codeInvalid, err.Error())
	case errors.Is(err, aggregator.ErrInvalidRange):
		s.respondError(w, http.StatusBadRequest, codeInvalidRange, err.Error())
	case errors.Is(err, aggregator.ErrNotFound):
		s.respondError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, aggregator.ErrUnavailable):
		s.respondError(w, http.StatusServiceUnavailable, codeUnavailable, "aggregator unavailable")
	default:
		s.logger.Error("aggregator request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID(r)),
			zap.Error(err),
		)
		s.respondError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   s.opts.Now().UTC().Format(time.RFC3339),
	})
}

// Result handlers

func (s *Server) handleSubmitResult(w http.ResponseWriter, r *http.Request) {
	var sub aggregator.Submission
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sub); err != nil {
		s.respondError(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}
	if err := sub.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, codeInvalid, err.Error())
		return
	}

	if err := s.agg.SubmitTestResult(r.Context(), sub); err != nil {
		s.respondAggregatorError(w, r, err)
		return
	}

	s.logger.Info("result submitted",
		zap.Int("wpm", sub.WPM),
		zap.Float64("accuracy", sub.Accuracy),
		zap.String("mode", string(sub.TestMode)),
		zap.String("language", sub.Language),
	)
	s.respondJSON(w, http.StatusCreated, map[string]string{"status": "stored"})
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	records, err := s.agg.ListTestResults(r.Context())
	if err != nil {
		s.respondAggregatorError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, codeInvalidRange, "index must be an integer")
		return
	}
	rec, err := s.agg.GetTestResult(r.Context(), index)
	if err != nil {
		s.respondAggregatorError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleResultRange(w http.ResponseWriter, r *http.Request) {
	start, err := strconv.Atoi(r.URL.Query().Get("start"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, codeInvalidRange, "start must be an integer")
		return
	}
	end, err := strconv.Atoi(r.URL.Query().Get("end"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, codeInvalidRange, "end must be an integer")
		return
	}
	records, err := s.agg.ListTestResultRange(r.Context(), start, end)
	if err != nil {
		s.respondAggregatorError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, records)
}

func (s *Server) handleTodaysResults(w http.ResponseWriter, r *http.Request) {
	records, err := s.agg.TodaysResults(r.Context())
	if err != nil {
		s.respondAggregatorError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, records)
}

// Stats handlers

func (s *Server) handleBestWPM(w http.ResponseWriter, r *http.Request) {
	best, err := s.agg.BestWPM(r.Context())
	if err != nil {
		s.respondAggregatorError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, best)
}

func (s *Server) handleAverageWPM(w http.ResponseWriter, r *http.Request) {
	avg, err := s.agg.AverageWPM(r.Context())
	if err != nil {
		s.respondAggregatorError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, avg)
}

func (s *Server) handleAverageAccuracy(w http.ResponseWriter, r *http.Request) {
	avg, err := s.agg.AverageAccuracy(r.Context())
	if err != nil {
		s.respondAggregatorError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, avg)
}

func (s *Server) handleTotal(w http.ResponseWriter, r *http.Request) {
	total, err := s.agg.TotalTests(r.Context())
	if err != nil {
		s.respondAggregatorError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, total)
}

func (s *Server) handleStreak(w http.ResponseWriter, r *http.Request) {
	streak, err := s.agg.DailyStreak(r.Context())
	if err != nil {
		s.respondAggregatorError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, streak)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	days, err := s.agg.StreakCalendar(r.Context())
	if err != nil {
		s.respondAggregatorError(w, r, err)
		return
	}
	if days == nil {
		days = []model.StreakDay{}
	}
	s.respondJSON(w, http.StatusOK, days)
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}
