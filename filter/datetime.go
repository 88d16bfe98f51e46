package filter

import (
	"time"

	"github.com/llehouerou/go-graphql-gremlin/internal/reflectutil"
	"github.com/llehouerou/go-graphql-gremlin/types"
)

// DateTime input keys.
const (
	DateTimeFormatted   = "formatted"
	DateTimeYear        = "year"
	DateTimeMonth       = "month"
	DateTimeDay         = "day"
	DateTimeHour        = "hour"
	DateTimeMinute      = "minute"
	DateTimeSecond      = "second"
	DateTimeMillisecond = "millisecond"
)

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// NormalizeDateTime reduces every accepted DateTime shape to one canonical
// value: a UTC time.Time truncated to the millisecond. Accepted shapes are
//
//	time.Time
//	"2020-01-01T00:00:00Z"                                   (RFC 3339)
//	{formatted: "2020-01-01T00:00:00Z"}
//	{year: 2020, month: 1, day: 1, hour: 0, minute: 0, second: 0, millisecond: 0}
//
// Hour, minute, second and millisecond default to zero. Components are
// interpreted in UTC.
func NormalizeDateTime(value any) (time.Time, error) {
	value = reflectutil.UnwrapValuer(value)
	switch v := value.(type) {
	case time.Time:
		return canonical(v), nil
	case *time.Time:
		if v != nil {
			return canonical(*v), nil
		}
	case string:
		return parseDateTime(v)
	}

	m, ok, err := toMap(value)
	if err != nil || !ok || m == nil {
		return time.Time{}, types.BadRequest("invalid DateTime value %v (%T)", value, value)
	}

	if formatted, ok := m[DateTimeFormatted]; ok && formatted != nil {
		s, ok := formatted.(string)
		if !ok {
			return time.Time{}, types.BadRequest("DateTime %s must be a string, got %T", DateTimeFormatted, formatted)
		}
		return parseDateTime(s)
	}

	var c [7]int64
	keys := [7]string{DateTimeYear, DateTimeMonth, DateTimeDay, DateTimeHour, DateTimeMinute, DateTimeSecond, DateTimeMillisecond}
	for i, key := range keys {
		raw, present := m[key]
		if !present || raw == nil {
			if i < 3 {
				return time.Time{}, types.BadRequest("DateTime is missing %q", key)
			}
			continue
		}
		n, err := coerce(KindInt, raw)
		if err != nil {
			return time.Time{}, types.BadRequest("DateTime %s must be an integer, got %v", key, raw)
		}
		c[i] = n.(int64)
	}

	limits := [7][2]int64{{1, 9999}, {1, 12}, {1, 31}, {0, 23}, {0, 59}, {0, 59}, {0, 999}}
	for i, l := range limits {
		if c[i] < l[0] || c[i] > l[1] {
			return time.Time{}, types.BadRequest("DateTime %s %d is out of range", keys[i], c[i])
		}
	}
	t := time.Date(int(c[0]), time.Month(c[1]), int(c[2]), int(c[3]), int(c[4]), int(c[5]),
		int(c[6])*int(time.Millisecond), time.UTC)
	if t.Day() != int(c[2]) {
		return time.Time{}, types.BadRequest("DateTime %04d-%02d-%02d is not a valid date", c[0], c[1], c[2])
	}
	return t, nil
}

func parseDateTime(s string) (time.Time, error) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return canonical(t), nil
		}
	}
	return time.Time{}, types.BadRequest("invalid DateTime %q: expected RFC 3339", s)
}

func canonical(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
