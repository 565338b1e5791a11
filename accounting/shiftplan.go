package accounting

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/workhours-engine/calendar"
)

type shiftplanKey struct {
	salesPersonID uuid.UUID
	week          calendar.Week
	day           calendar.DayOfWeek
}

// AggregateBookings sums the slot lengths of non-deleted bookings per
// sales person and day. Bookings whose slot is unknown are skipped.
func AggregateBookings(bookings []Booking, slots map[uuid.UUID]Slot) []ShiftplanHoursEntry {
	totals := make(map[shiftplanKey]decimal.Decimal)
	for _, b := range bookings {
		if b.Deleted != nil {
			continue
		}
		slot, ok := slots[b.SlotID]
		if !ok {
			continue
		}
		k := shiftplanKey{salesPersonID: b.SalesPersonID, week: b.Week(), day: slot.DayOfWeek}
		totals[k] = totals[k].Add(slot.Hours())
	}

	entries := make([]ShiftplanHoursEntry, 0, len(totals))
	for k, hours := range totals {
		entries = append(entries, ShiftplanHoursEntry{
			SalesPersonID: k.salesPersonID,
			Year:          k.week.Year,
			Week:          k.week.Week,
			DayOfWeek:     k.day,
			Hours:         hours,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if c := a.CalendarWeek().Compare(b.CalendarWeek()); c != 0 {
			return c < 0
		}
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		return a.SalesPersonID.String() < b.SalesPersonID.String()
	})
	return entries
}
