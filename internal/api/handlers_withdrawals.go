package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"coinledger/internal/store"
)

type createWithdrawalRequest struct {
	UserID         int64           `json:"user_id"`
	AmountCoins    int64           `json:"amount_coins"`
	PaymentMethod  string          `json:"payment_method"`
	PaymentDetails json.RawMessage `json:"payment_details"`
	IdempotencyKey string          `json:"idempotency_key"`
}

type resolveWithdrawalRequest struct {
	Action string `json:"action"`
}

type withdrawalResponse struct {
	ID             uuid.UUID       `json:"id"`
	UserID         int64           `json:"user_id"`
	AmountCoins    int64           `json:"amount_coins"`
	AmountCash     string          `json:"amount_cash"`
	PaymentMethod  string          `json:"payment_method"`
	PaymentDetails json.RawMessage `json:"payment_details"`
	Status         string          `json:"status"`
	IdempotencyKey string          `json:"idempotency_key"`
	CreatedAt      time.Time       `json:"created_at"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty"`
}

func (s *Server) handleCreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req createWithdrawalRequest
	if err := decodeStrict(r, &req); err != nil {
		s.logEvent(r.Context(), "withdrawal_create_failed", map[string]any{
			"reason": "invalid_request",
		})
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	if err := validateCreateWithdrawal(req); err != nil {
		s.logEvent(r.Context(), "withdrawal_create_failed", map[string]any{
			"reason":  "missing_parameters",
			"user_id": req.UserID,
		})
		writeError(w, http.StatusBadRequest, "missing_parameters")
		return
	}

	input := store.CreateWithdrawalInput{
		UserID:         req.UserID,
		AmountCoins:    req.AmountCoins,
		PaymentMethod:  strings.TrimSpace(req.PaymentMethod),
		PaymentDetails: req.PaymentDetails,
		IdempotencyKey: strings.TrimSpace(req.IdempotencyKey),
	}

	withdrawal, err := s.store.CreateWithdrawal(r.Context(), input)
	if err != nil {
		reason := "internal_error"
		switch {
		case errors.Is(err, store.ErrBelowMinimum):
			reason = "below_minimum"
			writeError(w, http.StatusBadRequest, "below_minimum")
		case errors.Is(err, store.ErrInsufficientFunds):
			reason = "insufficient_funds"
			writeError(w, http.StatusConflict, "insufficient_funds")
		case errors.Is(err, store.ErrIdempotencyConflict):
			reason = "idempotency_conflict"
			writeError(w, http.StatusUnprocessableEntity, "idempotency_conflict")
		case errors.Is(err, store.ErrUserNotFound):
			reason = "user_not_found"
			writeError(w, http.StatusNotFound, "user_not_found")
		default:
			s.logger.Printf("create withdrawal error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error")
		}
		s.logEvent(r.Context(), "withdrawal_create_failed", map[string]any{
			"reason":       reason,
			"user_id":      input.UserID,
			"amount_coins": input.AmountCoins,
		})
		return
	}

	s.logEvent(r.Context(), "withdrawal_created", map[string]any{
		"withdrawal_id": withdrawal.ID.String(),
		"user_id":       withdrawal.UserID,
		"amount_coins":  withdrawal.AmountCoins,
		"amount_cash":   withdrawal.AmountCash.String(),
		"status":        withdrawal.Status,
	})
	writeJSON(w, http.StatusCreated, toWithdrawalResponse(withdrawal))
}

func (s *Server) handleGetWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return
	}

	withdrawal, err := s.store.GetWithdrawal(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		s.logger.Printf("get withdrawal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	writeJSON(w, http.StatusOK, toWithdrawalResponse(withdrawal))
}

func (s *Server) handleListWithdrawals(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = store.StatusPending
	}
	if status != store.StatusPending && status != store.StatusApproved && status != store.StatusRejected {
		writeError(w, http.StatusBadRequest, "invalid_status")
		return
	}

	withdrawals, err := s.store.ListWithdrawalsByStatus(r.Context(), status)
	if err != nil {
		s.logger.Printf("list withdrawals error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	out := make([]withdrawalResponse, 0, len(withdrawals))
	for _, wd := range withdrawals {
		out = append(out, toWithdrawalResponse(wd))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleResolveWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return
	}

	var req resolveWithdrawalRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Action != store.ActionApprove && req.Action != store.ActionReject {
		writeError(w, http.StatusBadRequest, "invalid_action")
		return
	}

	withdrawal, err := s.store.ResolveWithdrawal(r.Context(), id, req.Action)
	if err != nil {
		reason := "internal_error"
		switch {
		case errors.Is(err, store.ErrNotFound):
			reason = "not_found"
			writeError(w, http.StatusNotFound, "not_found")
		case errors.Is(err, store.ErrAlreadyProcessed):
			reason = "already_processed"
			writeError(w, http.StatusConflict, "already_processed")
		default:
			s.logger.Printf("resolve withdrawal error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error")
		}
		s.logEvent(r.Context(), "withdrawal_resolve_failed", map[string]any{
			"withdrawal_id": id.String(),
			"action":        req.Action,
			"reason":        reason,
		})
		return
	}

	s.logEvent(r.Context(), "withdrawal_resolved", map[string]any{
		"withdrawal_id": withdrawal.ID.String(),
		"user_id":       withdrawal.UserID,
		"action":        req.Action,
		"status":        withdrawal.Status,
	})
	writeJSON(w, http.StatusOK, toWithdrawalResponse(withdrawal))
}

func validateCreateWithdrawal(req createWithdrawalRequest) error {
	if req.UserID <= 0 {
		return errors.New("invalid user_id")
	}
	if req.AmountCoins <= 0 {
		return errors.New("invalid amount_coins")
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return errors.New("invalid payment_method")
	}
	if len(req.PaymentDetails) == 0 || !json.Valid(req.PaymentDetails) {
		return errors.New("invalid payment_details")
	}
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		return errors.New("invalid idempotency_key")
	}
	return nil
}

func toWithdrawalResponse(w store.Withdrawal) withdrawalResponse {
	return withdrawalResponse{
		ID:             w.ID,
		UserID:         w.UserID,
		AmountCoins:    w.AmountCoins,
		AmountCash:     w.AmountCash.StringFixed(2),
		PaymentMethod:  w.PaymentMethod,
		PaymentDetails: w.PaymentDetails,
		Status:         w.Status,
		IdempotencyKey: w.IdempotencyKey,
		CreatedAt:      w.CreatedAt,
		ProcessedAt:    w.ProcessedAt,
	}
}
