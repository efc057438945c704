package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/model"
)

func (s *Store) CreateStaff(ctx context.Context, m *model.Staff) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO staff (id, business_id, name, email, phone, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, m.ID, m.BusinessID, m.Name, m.Email, m.Phone, m.Active).Scan(&m.CreatedAt)
	return wrap("create staff", err)
}

func (s *Store) GetStaff(ctx context.Context, id string) (model.Staff, error) {
	var m model.Staff
	err := s.db.QueryRow(ctx, `
		SELECT id, business_id, name, email, phone, active, created_at
		FROM staff
		WHERE id = $1
	`, id).Scan(&m.ID, &m.BusinessID, &m.Name, &m.Email, &m.Phone, &m.Active, &m.CreatedAt)
	return m, wrap("get staff", err)
}

func (s *Store) ListActiveStaff(ctx context.Context, businessID string) ([]model.Staff, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, business_id, name, email, phone, active, created_at
		FROM staff
		WHERE business_id = $1 AND active
		ORDER BY created_at, id
	`, businessID)
	if err != nil {
		return nil, wrap("list staff", err)
	}
	staff, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Staff, error) {
		var m model.Staff
		err := row.Scan(&m.ID, &m.BusinessID, &m.Name, &m.Email, &m.Phone, &m.Active, &m.CreatedAt)
		return m, err
	})
	return staff, wrap("list staff", err)
}

const serviceColumns = `id, business_id, name, price_cents, duration_min, buffer_before_min, buffer_after_min,
	deposit_percent_override, created_at`

func (s *Store) CreateService(ctx context.Context, svc *model.Service) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO services (id, business_id, name, price_cents, duration_min, buffer_before_min, buffer_after_min, deposit_percent_override)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, svc.ID, svc.BusinessID, svc.Name, svc.PriceCents, svc.DurationMin, svc.BufferBeforeMin, svc.BufferAfterMin,
		svc.DepositPercentOverride).Scan(&svc.CreatedAt)
	return wrap("create service", err)
}

func (s *Store) GetService(ctx context.Context, id string) (model.Service, error) {
	svc, err := scanService(s.db.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id))
	return svc, wrap("get service", err)
}

func (s *Store) ListServices(ctx context.Context, businessID string) ([]model.Service, error) {
	rows, err := s.db.Query(ctx, `SELECT `+serviceColumns+` FROM services WHERE business_id = $1 ORDER BY created_at, id`, businessID)
	if err != nil {
		return nil, wrap("list services", err)
	}
	services, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Service, error) {
		return scanService(row)
	})
	return services, wrap("list services", err)
}

func scanService(row pgx.Row) (model.Service, error) {
	var svc model.Service
	err := row.Scan(
		&svc.ID,
		&svc.BusinessID,
		&svc.Name,
		&svc.PriceCents,
		&svc.DurationMin,
		&svc.BufferBeforeMin,
		&svc.BufferAfterMin,
		&svc.DepositPercentOverride,
		&svc.CreatedAt,
	)
	return svc, err
}
