package storage

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/model"
)

const businessColumns = `id, owner_id, name, slug, timezone, currency, ics_token_hash, deposit_percent_default,
	reminders_enabled, reminders_email_enabled, reminders_sms_enabled, branding, created_at`

func (s *Store) CreateBusiness(ctx context.Context, b *model.Business) error {
	branding, err := json.Marshal(b.Branding)
	if err != nil {
		return wrap("create business", err)
	}
	err = s.db.QueryRow(ctx, `
		INSERT INTO businesses (id, owner_id, name, slug, timezone, currency, ics_token_hash, deposit_percent_default,
			reminders_enabled, reminders_email_enabled, reminders_sms_enabled, branding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`, b.ID, b.OwnerID, b.Name, b.Slug, b.Timezone, b.Currency, b.ICSTokenHash, b.DepositPercentDefault,
		b.RemindersEnabled, b.RemindersEmailEnabled, b.RemindersSMSEnabled, branding).Scan(&b.CreatedAt)
	return wrap("create business", err)
}

func (s *Store) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM businesses WHERE slug = $1)`, slug).Scan(&exists)
	return exists, wrap("slug exists", err)
}

func (s *Store) GetBusiness(ctx context.Context, id string) (model.Business, error) {
	row := s.db.QueryRow(ctx, `SELECT `+businessColumns+` FROM businesses WHERE id = $1`, id)
	b, err := scanBusiness(row)
	return b, wrap("get business", err)
}

func (s *Store) GetBusinessBySlug(ctx context.Context, slug string) (model.Business, error) {
	row := s.db.QueryRow(ctx, `SELECT `+businessColumns+` FROM businesses WHERE slug = $1`, slug)
	b, err := scanBusiness(row)
	return b, wrap("get business by slug", err)
}

func scanBusiness(row pgx.Row) (model.Business, error) {
	var b model.Business
	var branding []byte
	if err := row.Scan(
		&b.ID,
		&b.OwnerID,
		&b.Name,
		&b.Slug,
		&b.Timezone,
		&b.Currency,
		&b.ICSTokenHash,
		&b.DepositPercentDefault,
		&b.RemindersEnabled,
		&b.RemindersEmailEnabled,
		&b.RemindersSMSEnabled,
		&branding,
		&b.CreatedAt,
	); err != nil {
		return model.Business{}, err
	}
	b.Branding = model.DefaultBranding()
	if len(branding) > 0 {
		if err := json.Unmarshal(branding, &b.Branding); err != nil {
			return model.Business{}, err
		}
	}
	return b, nil
}
