package pkg

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	cronPrefix = "cron:"
	day        = 24 * time.Hour
	maxMillis  = float64(math.MaxInt64 / int64(time.Millisecond))
)

// ErrInvalidDuration is returned for any input that does not match the duration grammar
var ErrInvalidDuration = errors.New("invalid duration")

var durationTermRegex = regexp.MustCompile(`^(\d+(?:\.\d+)?)(ms|s|m|h|d)`)

var durationUnits = map[string]time.Duration{
	"ms": time.Millisecond,
	"s":  time.Second,
	"m":  time.Minute,
	"h":  time.Hour,
	"d":  day,
}

// Duration is a wrapper around time.Duration that reads and writes the human format
// ("15s", "72h", "1h30m", "2d"). Plain numbers are read as milliseconds. It also supports
// a cron expression instead of a fixed interval using the "cron:" prefix
type Duration struct {
	time.Duration
	Cron string
}

// ParseDuration reads a sum of <number><unit> terms from left to right. Units are ms, s, m, h and d
func ParseDuration(input string) (time.Duration, error) {
	if input == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidDuration)
	}

	var total float64
	rest := input
	for rest != "" {
		match := durationTermRegex.FindStringSubmatch(rest)
		if match == nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, input)
		}

		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %w", ErrInvalidDuration, input, err)
		}
		total += value * float64(durationUnits[match[2]])
		if total >= math.MaxInt64 {
			return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidDuration, input)
		}
		rest = rest[len(match[0]):]
	}

	return time.Duration(total).Round(time.Millisecond), nil
}

// fromMillis converts a number of milliseconds, rejecting values that do not fit in a time.Duration
func fromMillis(ms float64) (time.Duration, error) {
	if math.Abs(ms) >= maxMillis {
		return 0, fmt.Errorf("%w: %g milliseconds is out of range", ErrInvalidDuration, ms)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// FormatDuration writes d using the largest units first, at millisecond resolution
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Millisecond)
	if d <= 0 {
		return "0ms"
	}

	var sb strings.Builder
	for _, unit := range []struct {
		suffix string
		size   time.Duration
	}{
		{"d", day},
		{"h", time.Hour},
		{"m", time.Minute},
		{"s", time.Second},
		{"ms", time.Millisecond},
	} {
		if n := d / unit.size; n > 0 {
			sb.WriteString(strconv.FormatInt(int64(n), 10))
			sb.WriteString(unit.suffix)
			d -= n * unit.size
		}
	}
	return sb.String()
}

// NewDuration creates a fixed-interval Duration
func NewDuration(d time.Duration) *Duration {
	return &Duration{Duration: d}
}

// SchedulerFunc is a wrapper around gocron's fluent style to easily choose the cron or duration-based scheduling
func (d *Duration) SchedulerFunc(s *gocron.Scheduler) *gocron.Scheduler {
	if d.Cron != "" {
		return s.Cron(d.Cron)
	}
	return s.Every(d.Duration)
}

func (d Duration) String() string {
	if d.Cron != "" {
		return cronPrefix + d.Cron
	}
	return FormatDuration(d.Duration)
}

// IsWholeDays is true when the Duration is a positive integer number of days
func (d Duration) IsWholeDays() bool {
	return d.Cron == "" && d.Duration >= day && d.Duration%day == 0
}

// Days returns the number of whole days in the Duration
func (d Duration) Days() int {
	return int(d.Duration / day)
}

// MarshalJSON will convert Duration into the string representation
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON reads a Duration as a string or a number of milliseconds
func (d *Duration) UnmarshalJSON(data []byte) error {
	var value any
	err := json.Unmarshal(data, &value)
	if err != nil {
		return err
	}

	switch v := value.(type) {
	case string:
		d.Duration, d.Cron, err = parseString(v)
		if err != nil {
			return fmt.Errorf("invalid json input for Duration: %w", err)
		}
	case float64:
		d.Duration, err = fromMillis(v)
		if err != nil {
			return fmt.Errorf("invalid json input for Duration: %w", err)
		}
	default:
		return fmt.Errorf("unexpected type %T, must be string or number", v)
	}

	return nil
}

// UnmarshalText is used by mapstructure and viper config decoding. Integer input is milliseconds
func (d *Duration) UnmarshalText(data []byte) error {
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err == nil {
		d.Duration, err = fromMillis(float64(v))
		if err != nil {
			return fmt.Errorf("invalid text input for Duration: %w", err)
		}
		return nil
	}

	d.Duration, d.Cron, err = parseString(string(data))
	if err != nil {
		return fmt.Errorf("invalid text input for Duration: %w", err)
	}
	return nil
}

// UnmarshalYAML reads a Duration as a string or a number of milliseconds
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Tag {
	case "!!str":
		var err error
		d.Duration, d.Cron, err = parseString(value.Value)
		if err != nil {
			return fmt.Errorf("invalid yaml input for Duration: %w", err)
		}
	case "!!int":
		v, err := strconv.ParseInt(value.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid yaml input for Duration: %w: %w", ErrInvalidDuration, err)
		}
		d.Duration, err = fromMillis(float64(v))
		if err != nil {
			return fmt.Errorf("invalid yaml input for Duration: %w", err)
		}
	default:
		return fmt.Errorf("unexpected type %s, must be string or number", value.Tag)
	}

	return nil
}

// MarshalYAML will convert Duration into the string representation
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func parseString(input string) (time.Duration, string, error) {
	input = strings.Trim(input, `"`)
	if input == "" {
		return 0, "", nil
	}

	if !strings.HasPrefix(input, cronPrefix) {
		d, err := ParseDuration(input)
		if err != nil {
			return 0, "", err
		}
		return d, "", nil
	}

	cronStr := strings.TrimPrefix(input, cronPrefix)
	_, err := cron.ParseStandard(cronStr)
	if err != nil {
		return 0, "", fmt.Errorf("invalid cron expression: %w", err)
	}

	return 0, cronStr, nil
}
