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

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func (db *DB) CreateCustomer(ctx context.Context, c *models.Customer) error {
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	res, err := db.ExecContext(ctx, `
		INSERT INTO customers (first_name, last_name, email, phone_number, skin_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.FirstName, c.LastName, nullString(c.Email), nullString(c.PhoneNumber), nullString(c.SkinType),
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

func (db *DB) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	var (
		c                  models.Customer
		email, phone, skin sql.NullString
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, phone_number, skin_type, created_at, updated_at
		FROM customers WHERE id = ?`, id,
	).Scan(&c.ID, &c.FirstName, &c.LastName, &email, &phone, &skin, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFound("customer", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get customer %d: %w", id, err)
	}
	c.Email, c.PhoneNumber, c.SkinType = email.String, phone.String, skin.String
	return &c, nil
}

func (db *DB) CreateService(ctx context.Context, s *models.Service) error {
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	res, err := db.ExecContext(ctx, `
		INSERT INTO services (name, description, price, duration_minutes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.Name, s.Description, s.Price.String(), s.DurationMinutes, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert service: %w", err)
	}
	s.ID, err = res.LastInsertId()
	return err
}

const serviceColumns = `id, name, description, price, duration_minutes, created_at, updated_at`

func scanService(row rowScanner) (*models.Service, error) {
	var (
		s    models.Service
		desc sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Name, &desc, &s.Price, &s.DurationMinutes, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Description = desc.String
	return &s, nil
}

func (db *DB) GetService(ctx context.Context, id int64) (*models.Service, error) {
	s, err := scanService(db.QueryRowContext(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFound("service", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get service %d: %w", id, err)
	}
	return s, nil
}

func (db *DB) ListServices(ctx context.Context) ([]models.Service, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+serviceColumns+` FROM services ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	services := make([]models.Service, 0)
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, *s)
	}
	return services, rows.Err()
}

func (db *DB) CreateTherapist(ctx context.Context, t *models.Therapist) error {
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	res, err := db.ExecContext(ctx, `
		INSERT INTO therapists (first_name, last_name, specialization, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.FirstName, t.LastName, nullString(t.Specialization), nullString(t.Email), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert therapist: %w", err)
	}
	t.ID, err = res.LastInsertId()
	return err
}

func (db *DB) GetTherapist(ctx context.Context, id int64) (*models.Therapist, error) {
	var (
		t                     models.Therapist
		specialization, email sql.NullString
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, specialization, email, created_at, updated_at
		FROM therapists WHERE id = ?`, id,
	).Scan(&t.ID, &t.FirstName, &t.LastName, &specialization, &email, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFound("therapist", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get therapist %d: %w", id, err)
	}
	t.Specialization, t.Email = specialization.String, email.String
	return &t, nil
}

func (db *DB) count(ctx context.Context, table string) (int64, error) {
	var n int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n)
	return n, err
}

func (db *DB) CountCustomers(ctx context.Context) (int64, error) {
	return db.count(ctx, "customers")
}

func (db *DB) CountServices(ctx context.Context) (int64, error) {
	return db.count(ctx, "services")
}
