package availability

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/model"
)

// ParseWeekly normalizes a decoded weekly grid into integer weekday keys.
// JSON object keys always arrive as strings ("0".."6"); anything else is rejected
// so a record never holds a key that slot generation would silently ignore.
func ParseWeekly(raw map[string][]model.AvailabilityBlock) (map[int][]model.AvailabilityBlock, error) {
	weekly := make(map[int][]model.AvailabilityBlock, len(raw))
	for key, blocks := range raw {
		day, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || day < 0 || day > 6 {
			return nil, fmt.Errorf("weekday %q must be an integer between 0 (Monday) and 6 (Sunday)", key)
		}
		for i, b := range blocks {
			if b.StartMin < 0 || b.StartMin > 1440 || b.EndMin < 0 || b.EndMin > 1440 {
				return nil, fmt.Errorf("weekday %d block %d: minutes must be between 0 and 1440", day, i)
			}
		}
		weekly[day] = append(weekly[day], blocks...)
	}
	return weekly, nil
}

