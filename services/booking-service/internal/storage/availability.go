package storage

import (
	"context"
	"encoding/json"

	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/model"
)

// UpsertAvailability replaces the weekly grid for (business, staff) in one
// statement. The first write keeps av.ID; later writes keep the stored id.
func (s *Store) UpsertAvailability(ctx context.Context, av *model.Availability) error {
	weekly, err := json.Marshal(av.Weekly)
	if err != nil {
		return wrap("upsert availability", err)
	}
	err = s.db.QueryRow(ctx, `
		INSERT INTO availability (id, business_id, staff_id, weekly, slot_increment_min, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (business_id, staff_id) DO UPDATE
		SET weekly = EXCLUDED.weekly,
			slot_increment_min = EXCLUDED.slot_increment_min,
			updated_at = now()
		RETURNING id, updated_at
	`, av.ID, av.BusinessID, av.StaffID, weekly, av.SlotIncrementMin).Scan(&av.ID, &av.UpdatedAt)
	return wrap("upsert availability", err)
}

func (s *Store) GetAvailability(ctx context.Context, businessID, staffID string) (model.Availability, error) {
	var av model.Availability
	var weekly []byte
	err := s.db.QueryRow(ctx, `
		SELECT id, business_id, staff_id, weekly, slot_increment_min, updated_at
		FROM availability
		WHERE business_id = $1 AND staff_id = $2
	`, businessID, staffID).Scan(&av.ID, &av.BusinessID, &av.StaffID, &weekly, &av.SlotIncrementMin, &av.UpdatedAt)
	if err != nil {
		return model.Availability{}, wrap("get availability", err)
	}
	av.Weekly = map[int][]model.AvailabilityBlock{}
	if len(weekly) > 0 {
		if err := json.Unmarshal(weekly, &av.Weekly); err != nil {
			return model.Availability{}, wrap("decode availability", err)
		}
	}
	return av, nil
}
