package api

import (
	"errors"
	"net/http"
	"time"

	"coinledger/internal/store"
)

type purchaseRequest struct {
	UserID   int64 `json:"user_id"`
	CourseID int64 `json:"course_id"`
}

type enrollmentResponse struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CourseID  int64     `json:"course_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decodeStrict(r, &req); err != nil || req.UserID <= 0 || req.CourseID <= 0 {
		s.logEvent(r.Context(), "purchase_failed", map[string]any{
			"reason": "invalid_request",
		})
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	enrollment, err := s.store.PurchaseCourse(r.Context(), req.UserID, req.CourseID)
	if err != nil {
		reason := "internal_error"
		switch {
		case errors.Is(err, store.ErrCourseNotFound):
			reason = "course_not_found"
			writeError(w, http.StatusNotFound, "course_not_found")
		case errors.Is(err, store.ErrUserNotFound):
			reason = "user_not_found"
			writeError(w, http.StatusNotFound, "user_not_found")
		case errors.Is(err, store.ErrAlreadyEnrolled):
			reason = "already_enrolled"
			writeError(w, http.StatusConflict, "already_enrolled")
		case errors.Is(err, store.ErrInsufficientFunds):
			reason = "insufficient_funds"
			writeError(w, http.StatusConflict, "insufficient_funds")
		default:
			s.logger.Printf("purchase error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error")
		}
		s.logEvent(r.Context(), "purchase_failed", map[string]any{
			"reason":    reason,
			"user_id":   req.UserID,
			"course_id": req.CourseID,
		})
		return
	}

	s.logEvent(r.Context(), "purchase_completed", map[string]any{
		"enrollment_id": enrollment.ID,
		"user_id":       enrollment.UserID,
		"course_id":     enrollment.CourseID,
	})
	writeJSON(w, http.StatusCreated, enrollmentResponse{
		ID:        enrollment.ID,
		UserID:    enrollment.UserID,
		CourseID:  enrollment.CourseID,
		CreatedAt: enrollment.CreatedAt,
	})
}
