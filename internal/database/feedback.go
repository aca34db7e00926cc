package database

import (
	"context"
	"database/sql"
	"fmt"

	"skincare/internal/models"
)

func (db *DB) CreateFeedback(ctx context.Context, f *models.Feedback) error {
	res, err := db.ExecContext(ctx, `
		INSERT INTO feedback (booking_id, customer_id, service_id, therapist_id, rating, comment, is_public, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.BookingID, f.CustomerID, f.ServiceID, f.TherapistID, f.Rating, f.Comment, f.IsPublic, f.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	f.ID, err = res.LastInsertId()
	return err
}

func (db *DB) ListFeedbackByService(ctx context.Context, serviceID int64, publicOnly bool) ([]models.Feedback, error) {
	return db.queryFeedback(ctx, "service_id", serviceID, publicOnly)
}

func (db *DB) ListFeedbackByTherapist(ctx context.Context, therapistID int64, publicOnly bool) ([]models.Feedback, error) {
	return db.queryFeedback(ctx, "therapist_id", therapistID, publicOnly)
}

// ListRatings returns every rating in the system.
func (db *DB) ListRatings(ctx context.Context) ([]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT rating FROM feedback`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ratings := make([]int, 0)
	for rows.Next() {
		var r int
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}

// column is one of the fixed names above, never user input.
func (db *DB) queryFeedback(ctx context.Context, column string, id int64, publicOnly bool) ([]models.Feedback, error) {
	query := `SELECT id, booking_id, customer_id, service_id, therapist_id, rating, comment, is_public, created_at
		FROM feedback WHERE ` + column + ` = ?`
	if publicOnly {
		query += ` AND is_public = 1`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]models.Feedback, 0)
	for rows.Next() {
		var (
			f           models.Feedback
			therapistID sql.NullInt64
		)
		if err := rows.Scan(&f.ID, &f.BookingID, &f.CustomerID, &f.ServiceID, &therapistID,
			&f.Rating, &f.Comment, &f.IsPublic, &f.CreatedAt); err != nil {
			return nil, err
		}
		if therapistID.Valid {
			tid := therapistID.Int64
			f.TherapistID = &tid
		}
		f.CreatedAt = f.CreatedAt.UTC()
		list = append(list, f)
	}
	return list, rows.Err()
}
