// Package model defines shared data structures.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RawRecord is one scheduled lesson as it appears in a dataset file.
type RawRecord struct {
	Class   string
	Weekday string
	Period  string
	Subject string
	Teacher string
	Room    string
}

// Dataset keys used by the generated timetable data files. English keys are
// accepted as aliases.
const (
	KeyClass   = "クラス"
	KeyWeekday = "曜日"
	KeyPeriod  = "時限"
	KeySubject = "科目"
	KeyTeacher = "担当教師"
	KeyRoom    = "教室"
)

var fieldAliases = map[string][]string{
	KeyClass:   {KeyClass, "class"},
	KeyWeekday: {KeyWeekday, "weekday"},
	KeyPeriod:  {KeyPeriod, "period"},
	KeySubject: {KeySubject, "subject"},
	KeyTeacher: {KeyTeacher, "teacher"},
	KeyRoom:    {KeyRoom, "room"},
}

// UnmarshalJSON accepts Japanese or English keys. Period may be a JSON string
// or number; numbers are written the way a script would print them, so 1e1
// becomes "10".
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	fields := map[string]json.RawMessage{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return err
	}
	var err error
	if r.Class, err = stringField(fields, KeyClass); err != nil {
		return err
	}
	if r.Weekday, err = stringField(fields, KeyWeekday); err != nil {
		return err
	}
	if r.Period, err = stringField(fields, KeyPeriod); err != nil {
		return err
	}
	if r.Subject, err = stringField(fields, KeySubject); err != nil {
		return err
	}
	if r.Teacher, err = stringField(fields, KeyTeacher); err != nil {
		return err
	}
	if r.Room, err = stringField(fields, KeyRoom); err != nil {
		return err
	}
	return nil
}

// MarshalJSON writes the Japanese keys used by the original data files.
func (r RawRecord) MarshalJSON() ([]byte, error) {
	type out struct {
		Class   string `json:"クラス"`
		Weekday string `json:"曜日"`
		Period  string `json:"時限"`
		Subject string `json:"科目"`
		Teacher string `json:"担当教師"`
		Room    string `json:"教室"`
	}
	return json.Marshal(out(r))
}

func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	for _, name := range fieldAliases[key] {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			return "", nil
		}
		if raw[0] == '"' {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return "", fmt.Errorf("field %s: %w", name, err)
			}
			return s, nil
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", fmt.Errorf("field %s: expected string or number", name)
		}
		return numberText(n), nil
	}
	return "", nil
}

func numberText(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	f, err := n.Float64()
	if err != nil {
		return strings.TrimSpace(n.String())
	}
	if math.Abs(f) >= 1e21 {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Record is a RawRecord annotated with its parsed period and weekday position.
type Record struct {
	RawRecord
	PeriodNumber int
	PeriodValid  bool
	WeekdayIndex int
}

// Config defines viewer settings resolved from flags and the config file.
type Config struct {
	DataPath     string
	Week         string
	Class        string
	DefaultClass string
	Locale       string
}

// ServeConfig defines HTTP server settings.
type ServeConfig struct {
	Addr         string
	DataPath     string
	Week         string
	Watch        bool
	DefaultClass string
	Locale       string
}

// Snapshot is an archived dataset for one school week.
type Snapshot struct {
	Week    string
	Source  string
	Records []RawRecord
}
