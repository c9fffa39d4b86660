package suppression

import (
	"fmt"
	"time"
)

// TimeArgLayout is the input time format, to one-minute resolution with no
// timezone offset.
const TimeArgLayout = "2006-01-02T15:04"

// ValidTimeArg reports whether s parses as a naive YYYY-MM-DDTHH:MM value.
func ValidTimeArg(s string) bool {
	_, err := time.Parse(TimeArgLayout, s)
	return err == nil
}

// ComposeWithZone takes a naive time value and composes it with the named
// timezone, giving a timestamp with a numeric UTC offset. Owing to DST the
// offset may vary with the time of year.
func ComposeWithZone(s, tzName string) (string, error) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return "", fmt.Errorf("unknown timezone %q: %w", tzName, err)
	}
	t, err := time.ParseInLocation(TimeArgLayout, s, loc)
	if err != nil {
		return "", fmt.Errorf("unrecognised time %q: %w", s, err)
	}
	return t.Format("2006-01-02T15:04:05-0700"), nil
}
