package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"coinledger/internal/currency"
)

const withdrawalColumns = `
	id, user_id, amount_coins, amount_cash::text, payment_method,
	payment_details, status, idempotency_key, created_at, processed_at
`

// CreateWithdrawal converts coins into a pending cash withdrawal. The
// debit, the withdrawal row, and the transaction log entry commit
// together or not at all. The cash amount is computed at the current
// conversion rate and frozen into the row.
func (s *Store) CreateWithdrawal(ctx context.Context, input CreateWithdrawalInput) (Withdrawal, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Withdrawal{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	balance, err := lockBalance(ctx, tx, input.UserID)
	if err != nil {
		return Withdrawal{}, err
	}

	existing, err := getWithdrawalByIdempotency(ctx, tx, input.UserID, input.IdempotencyKey)
	if err == nil {
		if !samePayload(existing, input) {
			return Withdrawal{}, ErrIdempotencyConflict
		}
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Withdrawal{}, err
	}

	if input.AmountCoins < currency.MinCashoutCoins {
		return Withdrawal{}, ErrBelowMinimum
	}
	if balance < input.AmountCoins {
		return Withdrawal{}, ErrInsufficientFunds
	}

	created, err := insertWithdrawal(ctx, tx, input, currency.CashAmount(input.AmountCoins))
	if err != nil {
		if isUniqueViolation(err) {
			existing, gerr := getWithdrawalByIdempotency(ctx, tx, input.UserID, input.IdempotencyKey)
			if gerr == nil {
				if !samePayload(existing, input) {
					return Withdrawal{}, ErrIdempotencyConflict
				}
				return existing, nil
			}
		}
		return Withdrawal{}, err
	}

	if _, err := debit(ctx, tx, input.UserID, input.AmountCoins, TxCashoutRequest, created.ID.String(), "cashout requested"); err != nil {
		return Withdrawal{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Withdrawal{}, err
	}

	return created, nil
}

func (s *Store) GetWithdrawal(ctx context.Context, id uuid.UUID) (Withdrawal, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+withdrawalColumns+`
		FROM withdrawals
		WHERE id = $1
	`, id)
	w, err := scanWithdrawal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Withdrawal{}, ErrNotFound
		}
		return Withdrawal{}, err
	}
	return w, nil
}

func (s *Store) ListWithdrawalsByStatus(ctx context.Context, status string) ([]Withdrawal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+withdrawalColumns+`
		FROM withdrawals
		WHERE status = $1
		ORDER BY created_at, id
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ResolveWithdrawal settles a pending withdrawal exactly once. Approval
// only flips the status: the coins were already debited at request time
// and the cash obligation moves to the payment provider. Rejection
// refunds the coins and flips the status in the same transaction, so a
// retry after a crash sees either a pending row (nothing happened) or a
// rejected one (refund already committed, ErrAlreadyProcessed).
func (s *Store) ResolveWithdrawal(ctx context.Context, id uuid.UUID, action string) (Withdrawal, error) {
	if action != ActionApprove && action != ActionReject {
		return Withdrawal{}, ErrInvalidAction
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Withdrawal{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	row := tx.QueryRow(ctx, `
		SELECT `+withdrawalColumns+`
		FROM withdrawals
		WHERE id = $1
		FOR UPDATE
	`, id)
	w, err := scanWithdrawal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Withdrawal{}, ErrNotFound
		}
		return Withdrawal{}, err
	}

	if w.Status != StatusPending {
		return Withdrawal{}, ErrAlreadyProcessed
	}

	status := StatusApproved
	if action == ActionReject {
		status = StatusRejected
		if _, err := credit(ctx, tx, w.UserID, w.AmountCoins, TxRefund, w.ID.String(), "cashout rejected"); err != nil {
			return Withdrawal{}, err
		}
	}

	err = tx.QueryRow(ctx, `
		UPDATE withdrawals
		SET status = $1, processed_at = now()
		WHERE id = $2
		RETURNING processed_at
	`, status, id).Scan(&w.ProcessedAt)
	if err != nil {
		return Withdrawal{}, err
	}
	w.Status = status

	if err := tx.Commit(ctx); err != nil {
		return Withdrawal{}, err
	}

	return w, nil
}

func insertWithdrawal(ctx context.Context, tx pgx.Tx, input CreateWithdrawalInput, amountCash decimal.Decimal) (Withdrawal, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO withdrawals (id, user_id, amount_coins, amount_cash, payment_method, payment_details, status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+withdrawalColumns,
		uuid.New(),
		input.UserID,
		input.AmountCoins,
		amountCash.String(),
		input.PaymentMethod,
		input.PaymentDetails,
		StatusPending,
		input.IdempotencyKey,
	)
	return scanWithdrawal(row)
}

func getWithdrawalByIdempotency(ctx context.Context, tx pgx.Tx, userID int64, key string) (Withdrawal, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+withdrawalColumns+`
		FROM withdrawals
		WHERE user_id = $1 AND idempotency_key = $2
	`, userID, key)
	return scanWithdrawal(row)
}

func scanWithdrawal(row pgx.Row) (Withdrawal, error) {
	var (
		w    Withdrawal
		cash string
	)
	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.AmountCoins,
		&cash,
		&w.PaymentMethod,
		&w.PaymentDetails,
		&w.Status,
		&w.IdempotencyKey,
		&w.CreatedAt,
		&w.ProcessedAt,
	)
	if err != nil {
		return Withdrawal{}, err
	}
	w.AmountCash, err = decimal.NewFromString(cash)
	if err != nil {
		return Withdrawal{}, err
	}
	return w, nil
}

// samePayload compares the replay-relevant fields. payment_details is
// excluded: jsonb normalization would make byte comparison unreliable.
func samePayload(w Withdrawal, input CreateWithdrawalInput) bool {
	return w.AmountCoins == input.AmountCoins &&
		w.PaymentMethod == input.PaymentMethod
}
