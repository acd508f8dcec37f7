package core

import (
	"errors"
	"strings"
	"time"
)

// Date is a calendar day without a time-of-day component. All arithmetic is
// done on wall-clock dates so that day shifts never cross a timezone boundary
// (converting through UTC moves dates back one day east of Greenwich).
type Date struct {
	time.Time
}

const dateLayout = "2006/01/02"

var ErrInvalidDate = errors.New("invalid date")

// NewDate creates a Date from year, month and day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)}
}

// ParseDate accepts the store's native YYYY/MM/DD form as well as the ISO
// YYYY-MM-DD form used by browser date inputs.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	s = strings.ReplaceAll(s, "-", "/")
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Validate rejects the zero date.
func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// PrevDay returns the previous calendar day, computed on the wall clock.
func (d Date) PrevDay() Date {
	return Date{Time: d.AddDate(0, 0, -1)}
}

// String formats the date in the store's YYYY/MM/DD form.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}
