package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// PurchaseCourse pays for course access with coins. The enrollment row
// and the debit commit together or not at all; retrying a purchase that
// already succeeded fails with ErrAlreadyEnrolled instead of charging
// twice.
func (s *Store) PurchaseCourse(ctx context.Context, userID, courseID int64) (Enrollment, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Enrollment{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var priceCoins int64
	err = tx.QueryRow(ctx, "SELECT price_coins FROM courses WHERE id = $1", courseID).Scan(&priceCoins)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Enrollment{}, ErrCourseNotFound
		}
		return Enrollment{}, err
	}

	var e Enrollment
	err = tx.QueryRow(ctx, `
		INSERT INTO enrollments (user_id, course_id)
		VALUES ($1, $2)
		RETURNING id, user_id, course_id, created_at
	`, userID, courseID).Scan(&e.ID, &e.UserID, &e.CourseID, &e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Enrollment{}, ErrAlreadyEnrolled
		}
		if isForeignKeyViolation(err) {
			return Enrollment{}, ErrUserNotFound
		}
		return Enrollment{}, err
	}

	if _, err := debit(ctx, tx, userID, priceCoins, TxPurchase, formatID(e.ID), "course purchase"); err != nil {
		return Enrollment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Enrollment{}, err
	}

	return e, nil
}
