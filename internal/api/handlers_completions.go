package api

import (
	"errors"
	"net/http"
	"time"

	"coinledger/internal/store"
)

type completionRequest struct {
	UserID   int64 `json:"user_id"`
	CourseID int64 `json:"course_id"`
}

type completionResponse struct {
	UserID      int64     `json:"user_id"`
	CourseID    int64     `json:"course_id"`
	CompletedAt time.Time `json:"completed_at"`
}

func (s *Server) handleCompleteCourse(w http.ResponseWriter, r *http.Request) {
	var req completionRequest
	if err := decodeStrict(r, &req); err != nil || req.UserID <= 0 || req.CourseID <= 0 {
		s.logEvent(r.Context(), "completion_failed", map[string]any{
			"reason": "invalid_request",
		})
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	completion, inserted, err := s.store.RecordCompletion(r.Context(), req.UserID, req.CourseID)
	if err != nil {
		reason := "internal_error"
		switch {
		case errors.Is(err, store.ErrUserNotFound):
			reason = "user_not_found"
			writeError(w, http.StatusNotFound, "user_not_found")
		case errors.Is(err, store.ErrCourseNotFound):
			reason = "course_not_found"
			writeError(w, http.StatusNotFound, "course_not_found")
		default:
			s.logger.Printf("record completion error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error")
		}
		s.logEvent(r.Context(), "completion_failed", map[string]any{
			"reason":    reason,
			"user_id":   req.UserID,
			"course_id": req.CourseID,
		})
		return
	}

	status := http.StatusCreated
	if !inserted {
		// Replayed completion: same row, no new reward.
		status = http.StatusOK
	}

	s.logEvent(r.Context(), "course_completed", map[string]any{
		"user_id":   completion.UserID,
		"course_id": completion.CourseID,
		"first":     inserted,
	})
	writeJSON(w, status, completionResponse{
		UserID:      completion.UserID,
		CourseID:    completion.CourseID,
		CompletedAt: completion.CompletedAt,
	})
}
