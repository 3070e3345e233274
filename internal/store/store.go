// Package store owns all persistence. Every balance mutation runs inside
// a single database transaction with the balance row locked, so the
// check-then-act sequence is atomic and the transaction log stays
// reconciled with the balance (sum of amounts == coins, per user).
package store

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool

	// rewardCoins is credited once per first-time course completion.
	// Zero disables reward issuance.
	rewardCoins int64
}

func New(pool *pgxpool.Pool, rewardCoins int64) *Store {
	return &Store{pool: pool, rewardCoins: rewardCoins}
}

func (s *Store) CreateUser(ctx context.Context, id int64) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (id)
		VALUES ($1)
		RETURNING id, created_at
	`, id).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrUserExists
		}
		return User{}, err
	}
	return u, nil
}

func (s *Store) CreateCourse(ctx context.Context, id int64, title string, priceCoins int64) (Course, error) {
	var c Course
	err := s.pool.QueryRow(ctx, `
		INSERT INTO courses (id, title, price_coins)
		VALUES ($1, $2, $3)
		RETURNING id, title, price_coins, created_at
	`, id, title, priceCoins).Scan(&c.ID, &c.Title, &c.PriceCoins, &c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Course{}, ErrCourseExists
		}
		return Course{}, err
	}
	return c, nil
}

// GetBalance reads the current coin balance in a single statement, so it
// always observes a committed snapshot. Users without a balance row read
// as zero.
func (s *Store) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var coins int64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(b.coins, 0)
		FROM users u
		LEFT JOIN user_balances b ON b.user_id = u.id
		WHERE u.id = $1
	`, userID).Scan(&coins)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return coins, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID int64) ([]Transaction, error) {
	if _, err := s.GetBalance(ctx, userID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, type, amount, related_id, description, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.RelatedID, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Debit decrements a user's balance and appends the matching transaction
// as one unit. Fails with ErrInsufficientFunds without side effects when
// the balance cannot cover the amount.
func (s *Store) Debit(ctx context.Context, userID, amount int64, txType, relatedID, description string) (int64, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	newBalance, err := debit(ctx, tx, userID, amount, txType, relatedID, description)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Credit increments a user's balance and appends the matching transaction
// as one unit. Fails with ErrUserNotFound for unknown users.
func (s *Store) Credit(ctx context.Context, userID, amount int64, txType, relatedID, description string) (int64, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	newBalance, err := credit(ctx, tx, userID, amount, txType, relatedID, description)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// lockBalance verifies the user exists, creates the zero balance row on
// first reference, and returns the current coins with the row locked for
// the rest of the transaction.
func lockBalance(ctx context.Context, tx pgx.Tx, userID int64) (int64, error) {
	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)", userID).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrUserNotFound
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO user_balances (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID); err != nil {
		return 0, err
	}

	var coins int64
	err := tx.QueryRow(ctx, "SELECT coins FROM user_balances WHERE user_id = $1 FOR UPDATE", userID).Scan(&coins)
	if err != nil {
		return 0, err
	}
	return coins, nil
}

func debit(ctx context.Context, tx pgx.Tx, userID, amount int64, txType, relatedID, description string) (int64, error) {
	coins, err := lockBalance(ctx, tx, userID)
	if err != nil {
		return 0, err
	}
	if coins < amount {
		return 0, ErrInsufficientFunds
	}

	if _, err := tx.Exec(ctx, "UPDATE user_balances SET coins = coins - $1 WHERE user_id = $2", amount, userID); err != nil {
		return 0, err
	}
	if err := appendTransaction(ctx, tx, userID, txType, -amount, relatedID, description); err != nil {
		return 0, err
	}
	return coins - amount, nil
}

func credit(ctx context.Context, tx pgx.Tx, userID, amount int64, txType, relatedID, description string) (int64, error) {
	coins, err := lockBalance(ctx, tx, userID)
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx, "UPDATE user_balances SET coins = coins + $1 WHERE user_id = $2", amount, userID); err != nil {
		return 0, err
	}
	if err := appendTransaction(ctx, tx, userID, txType, amount, relatedID, description); err != nil {
		return 0, err
	}
	return coins + amount, nil
}

func appendTransaction(ctx context.Context, tx pgx.Tx, userID int64, txType string, amount int64, relatedID, description string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO transactions (user_id, type, amount, related_id, description)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, txType, amount, relatedID, description)
	return err
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func isUniqueViolation(err error) bool {
	pgErr, ok := err.(*pgconn.PgError)
	if !ok {
		return false
	}
	return pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	pgErr, ok := err.(*pgconn.PgError)
	if !ok {
		return false
	}
	return pgErr.Code == "23503"
}
