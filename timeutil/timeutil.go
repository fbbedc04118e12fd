// Package timeutil normalizes inbound timestamps to UTC and converts
// outbound ones to a caller-requested timezone.
package timeutil

import (
	"fmt"
	"strconv"
	"time"
)

// msThreshold separates unix seconds from milliseconds: values beyond the
// year 2100 in seconds are treated as milliseconds.
const msThreshold = 4102444800

// FromUnix interprets an epoch number as seconds or milliseconds and
// returns the UTC time.
func FromUnix(epoch float64) time.Time {
	if epoch > msThreshold {
		epoch /= 1000
	}
	sec := int64(epoch)
	nsec := int64((epoch - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}

// Parse converts any accepted timestamp form to a UTC time: RFC3339/ISO
// strings (a naive string is taken as UTC), numeric strings and numbers as
// unix seconds or milliseconds, and time.Time values normalized to UTC.
func Parse(v any) (time.Time, error) {
	switch value := v.(type) {
	case time.Time:
		return value.UTC(), nil
	case int:
		return FromUnix(float64(value)), nil
	case int64:
		return FromUnix(float64(value)), nil
	case float64:
		return FromUnix(value), nil
	case string:
		return parseString(value)
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type: %T", v)
	}
}

var stringLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseString(s string) (time.Time, error) {
	for i, layout := range stringLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if i == 0 {
				return t.UTC(), nil
			}
			// Naive formats carry no zone; take them as UTC.
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
		}
	}
	if epoch, err := strconv.ParseFloat(s, 64); err == nil {
		return FromUnix(epoch), nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp format: %q", s)
}

// OutputLocation resolves a requested output timezone: an IANA name such as
// "Asia/Singapore" or a UTC offset in minutes such as "-480". Empty means
// UTC.
func OutputLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	if minutes, err := strconv.Atoi(tz); err == nil {
		return time.FixedZone(tz, minutes*60), nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}

// TimeRange is a half-open [Start, End) window in UTC.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange parses both bounds and requires end after start.
func NewTimeRange(start, end any) (TimeRange, error) {
	s, err := Parse(start)
	if err != nil {
		return TimeRange{}, fmt.Errorf("start: %w", err)
	}
	e, err := Parse(end)
	if err != nil {
		return TimeRange{}, fmt.Errorf("end: %w", err)
	}
	if !e.After(s) {
		return TimeRange{}, fmt.Errorf("end %s is not after start %s", e, s)
	}
	return TimeRange{Start: s, End: e}, nil
}

// Contains reports whether t falls within the range. Naive times are taken
// as UTC.
func (r TimeRange) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(r.Start) && t.Before(r.End)
}
