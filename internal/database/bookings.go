package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"skincare/internal/domain"
	"skincare/internal/models"
)

const bookingColumns = `id, customer_id, service_id, therapist_id, appointment_time, status,
	checkin_time, checkout_time, service_results, amount, is_paid, payment_time, payment_method,
	cancellation_reason, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b                            models.Booking
		therapistID                  sql.NullInt64
		checkin, checkout, paymentAt sql.NullTime
		status, method               string
	)
	err := row.Scan(
		&b.ID, &b.CustomerID, &b.ServiceID, &therapistID, &b.AppointmentTime, &status,
		&checkin, &checkout, &b.ServiceResults, &b.Amount, &b.IsPaid, &paymentAt, &method,
		&b.CancellationReason, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}

	if therapistID.Valid {
		id := therapistID.Int64
		b.TherapistID = &id
	}
	b.Status = models.BookingStatus(status)
	b.PaymentMethod = models.PaymentMethod(method)
	b.AppointmentTime = b.AppointmentTime.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	b.CheckinTime = timePtr(checkin)
	b.CheckoutTime = timePtr(checkout)
	b.PaymentTime = timePtr(paymentAt)
	return &b, nil
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...interface{}) ([]models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// CreateBooking inserts b and sets its id.
func (db *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	if b.Version == 0 {
		b.Version = 1
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO bookings (customer_id, service_id, therapist_id, appointment_time, status,
			checkin_time, checkout_time, service_results, amount, is_paid, payment_time, payment_method,
			cancellation_reason, created_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.CustomerID, b.ServiceID, b.TherapistID, b.AppointmentTime.UTC(), string(b.Status),
		utcPtr(b.CheckinTime), utcPtr(b.CheckoutTime), b.ServiceResults, b.Amount, b.IsPaid,
		utcPtr(b.PaymentTime), string(b.PaymentMethod), b.CancellationReason,
		b.CreatedAt.UTC(), b.UpdatedAt.UTC(), b.Version,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = id
	return nil
}

// GetBooking returns a *domain.NotFoundError when id is unknown.
func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFound("booking", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	return b, nil
}

// UpdateBookingWithVersion writes b only if the stored version still equals expectedVersion.
func (db *DB) UpdateBookingWithVersion(ctx context.Context, b *models.Booking, expectedVersion int64) error {
	res, err := db.ExecContext(ctx, `
		UPDATE bookings SET
			therapist_id = ?, status = ?, checkin_time = ?, checkout_time = ?, service_results = ?,
			amount = ?, is_paid = ?, payment_time = ?, payment_method = ?, cancellation_reason = ?,
			updated_at = ?, version = ?
		WHERE id = ? AND version = ?`,
		b.TherapistID, string(b.Status), utcPtr(b.CheckinTime), utcPtr(b.CheckoutTime), b.ServiceResults,
		b.Amount, b.IsPaid, utcPtr(b.PaymentTime), string(b.PaymentMethod), b.CancellationReason,
		b.UpdatedAt.UTC(), b.Version,
		b.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update booking %d: %w", b.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var exists int
	err = db.QueryRowContext(ctx, `SELECT 1 FROM bookings WHERE id = ?`, b.ID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewNotFound("booking", b.ID)
	}
	if err != nil {
		return err
	}
	return domain.ErrConcurrentModification
}

// GetBookingsByCustomer returns the customer's bookings, newest appointment first.
func (db *DB) GetBookingsByCustomer(ctx context.Context, customerID int64) ([]models.Booking, error) {
	return db.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE customer_id = ? ORDER BY appointment_time DESC, id DESC`,
		customerID)
}

// GetBookingsByDateRange returns bookings with appointment_time in [start, end].
func (db *DB) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]models.Booking, error) {
	return db.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE appointment_time BETWEEN ? AND ? ORDER BY appointment_time, id`,
		start.UTC(), end.UTC())
}

// ListBookings returns every booking, newest first.
func (db *DB) ListBookings(ctx context.Context) ([]models.Booking, error) {
	return db.queryBookings(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC, id DESC`)
}
