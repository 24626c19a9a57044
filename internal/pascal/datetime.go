package pascal

import "time"

// DateTime is the legacy six-byte packed date/time: year-1900, month, day,
// hour, minute, second. Decode never validates the fields; IsValid is a
// separate operation so that junk bytes from a corrupt legacy record still
// round-trip through the codec unchanged.
type DateTime struct {
	YearOffset uint8 // year - 1900
	Month      uint8
	Day        uint8
	Hour       uint8
	Minute     uint8
	Second     uint8
}

// IsValid reports whether the packed fields describe a calendar date/time
// that could plausibly occur. It is never applied during decode.
func (d DateTime) IsValid() bool {
	if d.Month < 1 || d.Month > 12 {
		return false
	}
	if d.Day < 1 || d.Day > 31 {
		return false
	}
	if d.Hour > 23 || d.Minute > 59 || d.Second > 59 {
		return false
	}
	return true
}

// Year returns the four-digit year.
func (d DateTime) Year() int { return int(d.YearOffset) + 1900 }

// Time converts to a time.Time in UTC. Callers should check IsValid first
// if the record may be corrupt.
func (d DateTime) Time() time.Time {
	return time.Date(d.Year(), time.Month(d.Month), int(d.Day),
		int(d.Hour), int(d.Minute), int(d.Second), 0, time.UTC)
}

// NewDateTime packs a time.Time into the legacy six-byte form.
func NewDateTime(t time.Time) DateTime {
	y := t.Year() - 1900
	if y < 0 {
		y = 0
	}
	if y > 255 {
		y = 255
	}
	return DateTime{
		YearOffset: uint8(y),
		Month:      uint8(t.Month()),
		Day:        uint8(t.Day()),
		Hour:       uint8(t.Hour()),
		Minute:     uint8(t.Minute()),
		Second:     uint8(t.Second()),
	}
}
