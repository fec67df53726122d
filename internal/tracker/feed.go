package tracker

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"festival-tracker-backend/internal/validation"
)

// Feed is a LocationSource driven by its owner, for typed or replayed fixes.
// Only the newest unread fix is kept.
type Feed struct {
	fixes chan Reading
	errs  chan error
}

// NewFeed creates an empty feed
func NewFeed() *Feed {
	return &Feed{fixes: make(chan Reading, 1), errs: make(chan error, 1)}
}

var _ LocationSource = (*Feed)(nil)

// Watch returns the feed's channels. They stay open for the feed's lifetime,
// so a later watch picks up where an earlier one stopped.
func (f *Feed) Watch(context.Context) (<-chan Reading, <-chan error, error) {
	return f.fixes, f.errs, nil
}

// Push offers r, replacing an unread older fix
func (f *Feed) Push(r Reading) {
	for {
		select {
		case f.fixes <- r:
			return
		default:
		}
		select {
		case <-f.fixes:
		default:
		}
	}
}

// Fail reports a GPS error. It is dropped if one is already pending.
func (f *Feed) Fail(err error) {
	select {
	case f.errs <- err:
	default:
	}
}

// ParseReading reads "lat lon [accuracy]", separated by spaces or commas
func ParseReading(s string) (Reading, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	if len(fields) < 2 || len(fields) > 3 {
		return Reading{}, fmt.Errorf("want \"lat lon [accuracy]\", got %q", s)
	}
	var nums [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Reading{}, fmt.Errorf("invalid number %q", f)
		}
		nums[i] = v
	}
	r := Reading{Latitude: nums[0], Longitude: nums[1], Accuracy: nums[2]}
	if !validation.ValidCoordinates(r.Latitude, r.Longitude) {
		return Reading{}, fmt.Errorf("coordinates out of range: %v, %v", r.Latitude, r.Longitude)
	}
	if r.Accuracy < 0 {
		return Reading{}, fmt.Errorf("accuracy must not be negative")
	}
	return r, nil
}
