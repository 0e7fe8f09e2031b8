package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"

	"github.com/verte-zerg/jikanwari/internal/model"
)

// Row layout of the school's weekly export.
const (
	dateRow      = 1
	periodRow    = 2
	firstDataRow = 3
)

var (
	dayLabels       = []string{"月", "火", "水", "木", "金", "土", "日"}
	datePattern     = regexp.MustCompile(`(\d{1,2})/(\d{1,2})`)
	gradeClassRegex = regexp.MustCompile(`^(\d+)-(\d+)$`)
	minusFolder     = strings.NewReplacer("−", "-", "‐", "-")
)

// ImportOptions configures CSV decoding.
type ImportOptions struct {
	// Encoding is "cp932" (default), "shift_jis" or "utf-8".
	Encoding string
	// Aliases maps raw class cells to display names before the built-in
	// "3-1" -> "3年1組" rule applies.
	Aliases map[string]string
	// Now supplies the year of header dates and the fallback week.
	Now func() time.Time
}

func (o ImportOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Import is the result of reading one weekly export.
type Import struct {
	Records []model.RawRecord
	// Week labels the school week, e.g. "2025-05-12_05-18".
	Week string
}

type column struct {
	day    string
	period int
}

// ImportCSV reads the weekly timetable export: a title row, a row of
// " 5/12 (月)" date headers spanning each day, a row of period numbers and
// one row per class with a lesson per column. Empty and "-" cells are
// skipped.
func ImportCSV(r io.Reader, opts ImportOptions) (Import, error) {
	decoded, err := decodingReader(r, opts.Encoding)
	if err != nil {
		return Import{}, &Error{Kind: KindMalformed, Err: err}
	}
	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return Import{}, &Error{Kind: KindMalformed, Err: fmt.Errorf("failed to read csv: %w", err)}
	}
	if len(rows) < firstDataRow {
		return Import{}, &Error{Kind: KindInvalid, Err: fmt.Errorf("csv needs at least %d header rows, got %d", firstDataRow, len(rows))}
	}

	columns := mapColumns(rows[dateRow], rows[periodRow])
	if len(columns) == 0 {
		return Import{}, &Error{Kind: KindInvalid, Err: errors.New("no weekday/period columns found in header")}
	}

	var records []model.RawRecord
	for _, row := range rows[firstDataRow:] {
		if len(row) == 0 {
			continue
		}
		class := className(row[0], opts.Aliases)
		if class == "" {
			continue
		}
		for idx := 1; idx < len(row); idx++ {
			col, ok := columns[idx]
			if !ok {
				continue
			}
			subject := strings.TrimSpace(row[idx])
			if subject == "" || subject == "-" {
				continue
			}
			records = append(records, model.RawRecord{
				Class:   class,
				Weekday: col.day,
				Period:  strconv.Itoa(col.period),
				Subject: subject,
			})
		}
	}

	return Import{
		Records: records,
		Week:    weekFromHeader(rows[dateRow], opts.now()),
	}, nil
}

func decodingReader(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "cp932", "shift_jis", "sjis", "windows-31j":
		return transform.NewReader(r, japanese.ShiftJIS.NewDecoder()), nil
	case "utf-8", "utf8":
		return r, nil
	default:
		return nil, fmt.Errorf("unsupported csv encoding %q", encoding)
	}
}

// mapColumns assigns each lesson column its weekday and period. A date cell
// names the weekday for every following column until the next date cell.
func mapColumns(dates, periods []string) map[int]column {
	columns := make(map[int]column)
	day := ""
	for idx := 1; idx < len(periods); idx++ {
		if idx < len(dates) {
			if d := dayOf(dates[idx]); d != "" {
				day = d
			}
		}
		if day == "" {
			continue
		}
		p, err := strconv.Atoi(strings.TrimSpace(width.Narrow.String(periods[idx])))
		if err != nil || p <= 0 {
			continue
		}
		columns[idx] = column{day: day, period: p}
	}
	return columns
}

func dayOf(cell string) string {
	cell = width.Narrow.String(cell)
	for _, d := range dayLabels {
		if strings.Contains(cell, "("+d+")") {
			return d
		}
	}
	return ""
}

func className(cell string, aliases map[string]string) string {
	raw := strings.TrimSpace(cell)
	if raw == "" {
		return ""
	}
	if alias, ok := aliases[raw]; ok {
		return alias
	}
	narrow := strings.TrimSpace(minusFolder.Replace(width.Narrow.String(raw)))
	if alias, ok := aliases[narrow]; ok {
		return alias
	}
	if m := gradeClassRegex.FindStringSubmatch(narrow); m != nil {
		return m[1] + "年" + m[2] + "組"
	}
	return narrow
}

func weekFromHeader(dates []string, now time.Time) string {
	for _, cell := range dates {
		m := datePattern.FindStringSubmatch(width.Narrow.String(cell))
		if m == nil {
			continue
		}
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			continue
		}
		return WeekRange(time.Date(now.Year(), time.Month(month), day, 0, 0, 0, 0, now.Location()))
	}
	return WeekRange(now)
}

// WeekRange labels the Monday-to-Sunday week containing t, e.g.
// "2025-05-12_05-18".
func WeekRange(t time.Time) string {
	offset := (int(t.Weekday()) + 6) % 7
	start := time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 0, 6)
	return start.Format("2006-01-02") + "_" + end.Format("01-02")
}
