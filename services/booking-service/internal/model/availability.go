package model

import "time"

const DefaultSlotIncrementMin = 15

// AvailabilityBlock is a [StartMin, EndMin) range in minutes from midnight.
type AvailabilityBlock struct {
	StartMin int `json:"start_min" validate:"min=0,max=1440"`
	EndMin   int `json:"end_min" validate:"min=0,max=1440"`
}

// Availability is the weekly grid for one staff member. Weekday keys run 0=Mon..6=Sun.
type Availability struct {
	ID               string                      `json:"id"`
	BusinessID       string                      `json:"business_id"`
	StaffID          string                      `json:"staff_id"`
	Weekly           map[int][]AvailabilityBlock `json:"weekly"`
	SlotIncrementMin int                         `json:"slot_increment_min"`
	UpdatedAt        time.Time                   `json:"updated_at"`
}

// Increment returns the configured slot step, falling back to the default.
func (a Availability) Increment() int {
	if a.SlotIncrementMin <= 0 {
		return DefaultSlotIncrementMin
	}
	return a.SlotIncrementMin
}

// MondayIndex maps time.Weekday (Sunday=0) onto the grid's Monday=0 numbering.
func MondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}
