package workflow

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/highway/types"
)

const secondsPerDay = 86400

// Duration is a semantic elapsed-time value with seconds resolution.
// Exactly one of {relative duration, absolute timestamp} is set.
//
// The wire format is ISO-8601 style: "PT<n>S" for seconds-based values,
// "P<n>D" for day-granularity values, and an RFC 3339 date-time string for
// absolute timestamps. The legacy "duration:<n>" / "datetime:<iso>" notation
// is still accepted on decode for compatibility with old documents, but is
// never produced on encode.
type Duration struct {
	seconds  int64
	at       time.Time
	absolute bool
}

// Seconds returns a relative Duration of n seconds.
func Seconds(n int64) Duration { return Duration{seconds: n} }

// Minutes returns a relative Duration of n minutes.
func Minutes(n int64) Duration { return Duration{seconds: n * 60} }

// Hours returns a relative Duration of n hours.
func Hours(n int64) Duration { return Duration{seconds: n * 3600} }

// Days returns a relative Duration of n days.
func Days(n int64) Duration { return Duration{seconds: n * secondsPerDay} }

// Weeks returns a relative Duration of n weeks.
func Weeks(n int64) Duration { return Duration{seconds: n * 7 * secondsPerDay} }

// At returns an absolute Duration anchored at t, truncated to seconds and
// stripped of the monotonic clock reading.
func At(t time.Time) Duration {
	return Duration{at: t.Round(0).Truncate(time.Second), absolute: true}
}

// FromStd converts a time.Duration, truncating to seconds resolution.
func FromStd(d time.Duration) Duration {
	return Duration{seconds: int64(d / time.Second)}
}

// IsAbsolute reports whether the value is an absolute timestamp.
func (d Duration) IsAbsolute() bool { return d.absolute }

// IsZero reports whether the value is the zero relative duration.
func (d Duration) IsZero() bool { return !d.absolute && d.seconds == 0 }

// Seconds returns the relative duration in seconds. Zero for absolute values.
func (d Duration) Seconds() int64 { return d.seconds }

// Std returns the relative duration as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d.seconds) * time.Second }

// Time returns the absolute timestamp. Zero for relative values.
func (d Duration) Time() time.Time { return d.at }

// String renders the canonical wire representation.
func (d Duration) String() string {
	if d.absolute {
		return d.at.Format(time.RFC3339)
	}
	if d.seconds != 0 && d.seconds%secondsPerDay == 0 {
		return fmt.Sprintf("P%dD", d.seconds/secondsPerDay)
	}
	return fmt.Sprintf("PT%dS", d.seconds)
}

// ParseDuration parses the canonical wire representation produced by
// Duration.String, plus the superseded "duration:<seconds>" and
// "datetime:<iso>" notations.
func ParseDuration(s string) (Duration, error) {
	switch {
	case strings.HasPrefix(s, "PT") && strings.HasSuffix(s, "S"):
		n, err := strconv.ParseInt(s[2:len(s)-1], 10, 64)
		if err != nil {
			return Duration{}, types.NewError(types.ErrDecode, "invalid duration %q", s).WithCause(err)
		}
		return Seconds(n), nil
	case strings.HasPrefix(s, "P") && strings.HasSuffix(s, "D"):
		n, err := strconv.ParseInt(s[1:len(s)-1], 10, 64)
		if err != nil {
			return Duration{}, types.NewError(types.ErrDecode, "invalid duration %q", s).WithCause(err)
		}
		return Days(n), nil
	case strings.HasPrefix(s, "duration:"):
		n, err := strconv.ParseFloat(strings.TrimPrefix(s, "duration:"), 64)
		if err != nil {
			return Duration{}, types.NewError(types.ErrDecode, "invalid duration %q", s).WithCause(err)
		}
		return Seconds(int64(n)), nil
	case strings.HasPrefix(s, "datetime:"):
		t, err := time.Parse(time.RFC3339, strings.TrimPrefix(s, "datetime:"))
		if err != nil {
			return Duration{}, types.NewError(types.ErrDecode, "invalid timestamp %q", s).WithCause(err)
		}
		return At(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return At(t), nil
	}
	return Duration{}, types.NewError(types.ErrDecode, "unrecognized duration %q", s)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return types.NewError(types.ErrDecode, "duration must be a string").WithCause(err)
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return types.NewError(types.ErrDecode, "duration must be a string").WithCause(err)
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
