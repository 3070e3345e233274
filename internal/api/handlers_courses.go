package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"coinledger/internal/store"
)

type createCourseRequest struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	PriceCoins int64  `json:"price_coins"`
}

type courseResponse struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	PriceCoins int64     `json:"price_coins"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var req createCourseRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.ID <= 0 || strings.TrimSpace(req.Title) == "" || req.PriceCoins < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	course, err := s.store.CreateCourse(r.Context(), req.ID, strings.TrimSpace(req.Title), req.PriceCoins)
	if err != nil {
		if errors.Is(err, store.ErrCourseExists) {
			writeError(w, http.StatusConflict, "course_exists")
			return
		}
		s.logger.Printf("create course error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	s.logEvent(r.Context(), "course_created", map[string]any{
		"course_id":   course.ID,
		"price_coins": course.PriceCoins,
	})
	writeJSON(w, http.StatusCreated, courseResponse{
		ID:         course.ID,
		Title:      course.Title,
		PriceCoins: course.PriceCoins,
		CreatedAt:  course.CreatedAt,
	})
}
