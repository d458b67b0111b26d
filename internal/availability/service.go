// Package availability translates a calendar date into Square's availability
// search and maps the answer into display slots. The gateway trusts Square's
// slot computation; the optional fallback grid is a demo convenience that does
// not check for collisions and stays off unless configured.
package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/lakeshore-health/telehealth-gateway/internal/square"
)

// ErrInvalidDate marks a date that did not parse as YYYY-MM-DD.
var ErrInvalidDate = errors.New("availability: invalid date")

// AvailabilityAPI is the slice of the Square client this package needs.
type AvailabilityAPI interface {
	SearchAvailability(ctx context.Context, filter square.AvailabilityFilter) ([]square.Availability, error)
}

// Slot is one open start time, with a display string in the configured zone.
type Slot struct {
	StartAt string `json:"startAt"`
	Time    string `json:"time"`
}

// Result is the answer for one availability query.
type Result struct {
	Slots []Slot
	// Note is set when the slots did not come from Square.
	Note string
}

// Service performs availability lookups for one location.
type Service struct {
	api           AvailabilityAPI
	displayLoc    *time.Location
	fallbackSlots bool
}

func NewService(api AvailabilityAPI, displayTimezone string, fallbackSlots bool) (*Service, error) {
	loc, err := time.LoadLocation(displayTimezone)
	if err != nil {
		return nil, fmt.Errorf("availability: load timezone %q: %w", displayTimezone, err)
	}
	return &Service{api: api, displayLoc: loc, fallbackSlots: fallbackSlots}, nil
}

// DisplayLocation exposes the configured display zone for confirmation text.
func (s *Service) DisplayLocation() *time.Location { return s.displayLoc }

// ForDate returns the open slots for one calendar date (YYYY-MM-DD),
// interpreted in the display timezone, sorted ascending.
func (s *Service) ForDate(ctx context.Context, serviceVariationID, teamMemberID, date string) (*Result, error) {
	day, err := time.ParseInLocation("2006-01-02", date, s.displayLoc)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidDate, date, err)
	}
	start := day
	end := day.Add(24*time.Hour - time.Second)

	remote, err := s.api.SearchAvailability(ctx, square.AvailabilityFilter{
		StartAt:            start,
		EndAt:              end,
		ServiceVariationID: serviceVariationID,
		TeamMemberID:       teamMemberID,
	})
	if err != nil {
		return nil, err
	}

	slots := make([]Slot, 0, len(remote))
	for _, a := range remote {
		at, err := time.Parse(time.RFC3339, a.StartAt)
		if err != nil {
			continue
		}
		slots = append(slots, s.toSlot(at))
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].StartAt < slots[j].StartAt })

	if len(slots) > 0 {
		return &Result{Slots: slots}, nil
	}
	if !s.fallbackSlots {
		return &Result{Slots: slots, Note: "No open times for this date. Please try another day."}, nil
	}
	return &Result{
		Slots: s.fallbackGrid(day),
		Note:  "fallback availability - not checked against existing bookings",
	}, nil
}

// fallbackGrid fabricates hourly 9am-5pm weekday slots in the display zone.
// Demo only: no collision check against real bookings.
func (s *Service) fallbackGrid(day time.Time) []Slot {
	if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return []Slot{}
	}
	slots := make([]Slot, 0, 8)
	for hour := 9; hour < 17; hour++ {
		at := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, s.displayLoc)
		slots = append(slots, s.toSlot(at))
	}
	return slots
}

func (s *Service) toSlot(at time.Time) Slot {
	return Slot{
		StartAt: at.UTC().Format(time.RFC3339),
		Time:    FormatDisplayTime(at, s.displayLoc),
	}
}

// FormatDisplayTime renders a start time the way confirmations show it.
func FormatDisplayTime(at time.Time, loc *time.Location) string {
	return at.In(loc).Format("Monday, January 2 at 3:04 PM MST")
}
