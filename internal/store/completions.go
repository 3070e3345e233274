package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// RecordCompletion marks a course as finished for a user. The upsert is
// atomic on the (user_id, course_id) key: however many completion events
// arrive, exactly one row exists and the reward (when configured) is
// credited exactly once, on the insert that won.
func (s *Store) RecordCompletion(ctx context.Context, userID, courseID int64) (Completion, bool, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Completion{}, false, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var courseExists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1)", courseID).Scan(&courseExists); err != nil {
		return Completion{}, false, err
	}
	if !courseExists {
		return Completion{}, false, ErrCourseNotFound
	}

	var userExists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)", userID).Scan(&userExists); err != nil {
		return Completion{}, false, err
	}
	if !userExists {
		return Completion{}, false, ErrUserNotFound
	}

	c := Completion{UserID: userID, CourseID: courseID}
	inserted := true
	err = tx.QueryRow(ctx, `
		INSERT INTO course_completions (user_id, course_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, course_id) DO NOTHING
		RETURNING completed_at
	`, userID, courseID).Scan(&c.CompletedAt)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return Completion{}, false, err
		}
		// Conflict: the pair is already recorded. Load the original row.
		inserted = false
		err = tx.QueryRow(ctx, `
			SELECT completed_at FROM course_completions
			WHERE user_id = $1 AND course_id = $2
		`, userID, courseID).Scan(&c.CompletedAt)
		if err != nil {
			return Completion{}, false, err
		}
	}

	if inserted && s.rewardCoins > 0 {
		if _, err := credit(ctx, tx, userID, s.rewardCoins, TxCompletionReward, formatID(courseID), "course completion reward"); err != nil {
			return Completion{}, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Completion{}, false, err
	}

	return c, inserted, nil
}
