package entities

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

var null = []byte("null")

// Text is a string field that also accepts numbers and booleans. Documents
// come from third-party APIs, and a display field changing type must not
// make the whole record unreadable.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Text(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*t = Text(n.String())
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*t = Text(strconv.FormatBool(b))
		return nil
	}

	*t = ""
	return nil
}

func (t Text) String() string {
	return string(t)
}

// UserID identifies a messaging participant. The backend sends string ids,
// older exports carry numbers, both decode to the same value.
type UserID string

func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, null) {
		*id = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = UserID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}

	*id = UserID(n.String())
	return nil
}

// maxMillis bounds timestamps to the range a browser Date can hold.
const maxMillis = 8.64e15

// Millis is an epoch-milliseconds timestamp. Valid is false when the field
// was missing, null or could not be parsed.
type Millis struct {
	Value int64
	Valid bool
}

func (m *Millis) UnmarshalJSON(data []byte) error {
	*m = Millis{}

	data = bytes.TrimSpace(data)
	if bytes.Equal(data, null) {
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		m.parseNumber(n.String())
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}

	if m.parseNumber(s) {
		return nil
	}

	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		m.Value = ts.UnixMilli()
		m.Valid = true
	}

	return nil
}

func (m *Millis) parseNumber(s string) bool {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		if v < -maxMillis || v > maxMillis {
			return false
		}
		m.Value, m.Valid = v, true
		return true
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > maxMillis {
		return false
	}

	m.Value, m.Valid = int64(v), true
	return true
}

func (m Millis) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return null, nil
	}
	return []byte(strconv.FormatInt(m.Value, 10)), nil
}

// Time converts the timestamp to a time in the given location.
func (m Millis) Time(loc *time.Location) time.Time {
	return time.UnixMilli(m.Value).In(loc)
}
