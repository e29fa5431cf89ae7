package pkg

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// startTimeFormat is the time-of-day with a zone offset, like "14:30:00+02:00" or "06:00:00Z"
	startTimeFormat = "15:04:05Z07:00"
	// localTimeFormat is a time-of-day without a zone, interpreted in the scheduler's location
	localTimeFormat = "15:04:05"
)

// StartTime is a time-of-day without a date. When decoded without an offset it is
// marked as local and takes its zone from the location passed to OnDate
type StartTime struct {
	time.Time
	local bool
}

// StartTimeFromString parses "HH:MM:SS" with an optional zone offset
func StartTimeFromString(startTime string) (*StartTime, error) {
	result, err := time.Parse(startTimeFormat, startTime)
	if err == nil {
		// Parse may attach time.Local when the offset matches it, which would bring DST along
		if result.Location() != time.UTC {
			_, offset := result.Zone()
			result = time.Date(0, 1, 1, result.Hour(), result.Minute(), result.Second(), 0, time.FixedZone("", offset))
		}
		return &StartTime{Time: result}, nil
	}

	result, localErr := time.Parse(localTimeFormat, startTime)
	if localErr != nil {
		return nil, fmt.Errorf("error parsing start time: %w", err)
	}

	return &StartTime{Time: result, local: true}, nil
}

// IsLocal is true when the StartTime has no explicit offset
func (st *StartTime) IsLocal() bool {
	return st.local
}

// OnDate returns the instant this time-of-day occurs on the calendar date of date. The date is
// read in the StartTime's own zone, or in loc when the StartTime is local
func (st *StartTime) OnDate(date time.Time, loc *time.Location) time.Time {
	zone := st.Location()
	if st.local {
		if loc == nil {
			loc = time.Local
		}
		zone = loc
	}

	date = date.In(zone)
	return time.Date(
		date.Year(), date.Month(), date.Day(),
		st.Hour(), st.Minute(), st.Second(), 0,
		zone,
	)
}

func (st *StartTime) String() string {
	if st.local {
		return st.Format(localTimeFormat)
	}
	return st.Format(startTimeFormat)
}

func (st *StartTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(st.String())
}

func (st *StartTime) UnmarshalJSON(data []byte) error {
	var timeString string
	err := json.Unmarshal(data, &timeString)
	if err != nil {
		return fmt.Errorf("unexpected type for StartTime, must be string: %w", err)
	}

	return st.UnmarshalText([]byte(timeString))
}

func (st *StartTime) UnmarshalText(data []byte) error {
	startTime, err := StartTimeFromString(string(data))
	if err != nil {
		return err
	}
	*st = *startTime

	return nil
}

func (st *StartTime) MarshalYAML() (any, error) {
	return st.String(), nil
}

func (st *StartTime) UnmarshalYAML(value *yaml.Node) error {
	return st.UnmarshalText([]byte(value.Value))
}
