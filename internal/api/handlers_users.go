package api

import (
	"errors"
	"net/http"
	"time"

	"coinledger/internal/store"
)

type createUserRequest struct {
	ID int64 `json:"id"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type balanceResponse struct {
	UserID int64 `json:"user_id"`
	Coins  int64 `json:"coins"`
}

type transactionResponse struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Type        string    `json:"type"`
	Amount      int64     `json:"amount"`
	RelatedID   string    `json:"related_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeStrict(r, &req); err != nil || req.ID <= 0 {
		s.logEvent(r.Context(), "user_create_failed", map[string]any{
			"reason": "invalid_request",
		})
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	user, err := s.store.CreateUser(r.Context(), req.ID)
	if err != nil {
		reason := "internal_error"
		switch {
		case errors.Is(err, store.ErrUserExists):
			reason = "user_exists"
			writeError(w, http.StatusConflict, "user_exists")
		default:
			s.logger.Printf("create user error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error")
		}
		s.logEvent(r.Context(), "user_create_failed", map[string]any{
			"reason":  reason,
			"user_id": req.ID,
		})
		return
	}

	s.logEvent(r.Context(), "user_created", map[string]any{
		"user_id": user.ID,
	})
	writeJSON(w, http.StatusCreated, userResponse{ID: user.ID, CreatedAt: user.CreatedAt})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := urlID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return
	}

	coins, err := s.store.GetBalance(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		s.logger.Printf("get balance error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{UserID: userID, Coins: coins})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := urlID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return
	}

	transactions, err := s.store.ListTransactions(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		s.logger.Printf("list transactions error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	out := make([]transactionResponse, 0, len(transactions))
	for _, t := range transactions {
		out = append(out, transactionResponse{
			ID:          t.ID,
			UserID:      t.UserID,
			Type:        t.Type,
			Amount:      t.Amount,
			RelatedID:   t.RelatedID,
			Description: t.Description,
			CreatedAt:   t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
