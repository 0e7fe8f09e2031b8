// Package timetable turns lesson records into per-class weekly grids.
package timetable

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/width"

	"github.com/verte-zerg/jikanwari/internal/model"
)

// Weekdays lists the displayed weekday labels in canonical order.
var Weekdays = [...]string{"月", "火", "水", "木", "金"}

// DefaultLocale is the collation locale for class names.
const DefaultLocale = "ja"

// State is the normalized working set. It is built once by Normalize and
// read-only afterwards.
type State struct {
	// Records is sorted by class, weekday index and period.
	Records []model.Record
	// Classes holds the distinct class names in collation order.
	Classes []string
	// Periods holds every valid period number of the working set, ascending.
	Periods []int
	// Conflicts lists slots that carry more than one lesson.
	Conflicts []Conflict

	byClass map[string][]model.Record
}

// Conflict is a (class, weekday, period) slot with several lessons. Only the
// first one in input order is displayed.
type Conflict struct {
	Class    string
	Weekday  string
	Period   int
	Subjects []string
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s %s%d: %s", c.Class, c.Weekday, c.Period, strings.Join(c.Subjects, " / "))
}

// ClassRecords returns the records of one class in working set order.
func (s State) ClassRecords(class string) []model.Record {
	return s.byClass[class]
}

// HasClass reports whether class appears in the working set.
func (s State) HasClass(class string) bool {
	_, ok := s.byClass[class]
	return ok
}

// Normalizer builds States using a locale-aware class comparison.
type Normalizer struct {
	collator *collate.Collator
}

// NewNormalizer returns a Normalizer for the given BCP 47 locale.
func NewNormalizer(locale string) (*Normalizer, error) {
	if strings.TrimSpace(locale) == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	return &Normalizer{collator: collate.New(tag)}, nil
}

// Normalize builds a State with the default Japanese collation.
func Normalize(raw []model.RawRecord) State {
	n, _ := NewNormalizer(DefaultLocale)
	return n.Normalize(raw)
}

// Normalize annotates, filters and sorts raw. The input slice is not modified.
func (n *Normalizer) Normalize(raw []model.RawRecord) State {
	records := make([]model.Record, 0, len(raw))
	for _, r := range raw {
		idx := WeekdayIndex(r.Weekday)
		if idx < 0 {
			continue
		}
		period, ok := ParsePeriod(r.Period)
		records = append(records, model.Record{
			RawRecord:    r,
			PeriodNumber: period,
			PeriodValid:  ok,
			WeekdayIndex: idx,
		})
	}

	slices.SortStableFunc(records, func(a, b model.Record) int {
		if c := n.compareClass(a.Class, b.Class); c != 0 {
			return c
		}
		if c := cmp.Compare(a.WeekdayIndex, b.WeekdayIndex); c != 0 {
			return c
		}
		return comparePeriod(a, b)
	})

	state := State{
		Records: records,
		byClass: make(map[string][]model.Record),
	}
	seenPeriods := make(map[int]struct{})
	start := 0
	for i := range records {
		if i > 0 && records[i].Class != records[i-1].Class {
			state.addClass(records[start:i])
			start = i
		}
		if records[i].PeriodValid {
			if _, ok := seenPeriods[records[i].PeriodNumber]; !ok {
				seenPeriods[records[i].PeriodNumber] = struct{}{}
				state.Periods = append(state.Periods, records[i].PeriodNumber)
			}
		}
	}
	if len(records) > 0 {
		state.addClass(records[start:])
	}
	slices.Sort(state.Periods)
	state.Conflicts = findConflicts(records)
	return state
}

func (s *State) addClass(group []model.Record) {
	name := group[0].Class
	// compareClass is zero only for identical names, so each class is one
	// contiguous run.
	s.byClass[name] = slices.Clip(group)
	s.Classes = append(s.Classes, name)
}

func (n *Normalizer) compareClass(a, b string) int {
	if a == b {
		return 0
	}
	if c := n.collator.CompareString(a, b); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// Invalid periods sort after valid ones.
func comparePeriod(a, b model.Record) int {
	switch {
	case a.PeriodValid && b.PeriodValid:
		return cmp.Compare(a.PeriodNumber, b.PeriodNumber)
	case a.PeriodValid:
		return -1
	case b.PeriodValid:
		return 1
	default:
		return 0
	}
}

func findConflicts(records []model.Record) []Conflict {
	var conflicts []Conflict
	for i := 0; i < len(records); {
		j := i + 1
		for j < len(records) && sameSlot(records[i], records[j]) {
			j++
		}
		if j-i > 1 && records[i].PeriodValid {
			c := Conflict{
				Class:   records[i].Class,
				Weekday: records[i].Weekday,
				Period:  records[i].PeriodNumber,
			}
			for _, r := range records[i:j] {
				c.Subjects = append(c.Subjects, r.Subject)
			}
			conflicts = append(conflicts, c)
		}
		i = j
	}
	return conflicts
}

func sameSlot(a, b model.Record) bool {
	return a.Class == b.Class &&
		a.WeekdayIndex == b.WeekdayIndex &&
		a.PeriodValid == b.PeriodValid &&
		a.PeriodNumber == b.PeriodNumber
}

// WeekdayIndex returns the position of label in Weekdays, or -1.
func WeekdayIndex(label string) int {
	for i, day := range Weekdays {
		if day == label {
			return i
		}
	}
	return -1
}

// ParsePeriod reads a leading integer the way a lenient parseInt does:
// surrounding text after the digits is ignored and full-width digits are
// accepted.
func ParsePeriod(value string) (int, bool) {
	s := strings.TrimLeftFunc(width.Narrow.String(value), unicode.IsSpace)
	sign := ""
	if s != "" && (s[0] == '+' || s[0] == '-') {
		sign, s = s[:1], s[1:]
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(sign + s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
