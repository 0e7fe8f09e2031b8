package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/jikanwari/internal/model"
	"github.com/verte-zerg/jikanwari/internal/store"
	"github.com/verte-zerg/jikanwari/internal/timetable"
)

func sampleState() timetable.State {
	return timetable.Normalize([]model.RawRecord{
		{Class: "1年1組", Weekday: "月", Period: "1", Subject: "国語"},
		{Class: "2年1組", Weekday: "月", Period: "1", Subject: "数学"},
		{Class: "2年1組", Weekday: "火", Period: "1", Subject: "英語"},
		{Class: "2年2組", Weekday: "金", Period: "6", Subject: "体育"},
	})
}

func key(s string) tea.KeyMsg {
	switch s {
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func press(m *Model, keys ...string) {
	for _, k := range keys {
		m.Update(key(k))
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

func TestNewModelShowsPreferredClass(t *testing.T) {
	m := NewModel(sampleState(), Options{Preferred: timetable.DefaultClass}, nil)
	if m.Selected() != "2年1組" {
		t.Fatalf("expected default class, got %q", m.Selected())
	}
	out := m.renderContent()
	if !containsAll(out, []string{"2年1組 時間割", "数学", "英語"}) {
		t.Fatalf("grid missing expected cells: %s", out)
	}
}

func TestNewModelRequestedClassWins(t *testing.T) {
	m := NewModel(sampleState(), Options{Requested: "1年1組", Preferred: timetable.DefaultClass}, nil)
	if m.Selected() != "1年1組" {
		t.Fatalf("expected requested class, got %q", m.Selected())
	}
}

func TestArrowKeysChangeClass(t *testing.T) {
	m := NewModel(sampleState(), Options{Preferred: timetable.DefaultClass}, nil)
	press(m, "right")
	if m.Selected() != "2年2組" {
		t.Fatalf("expected next class, got %q", m.Selected())
	}
	if out := m.renderContent(); !strings.Contains(out, "体育") {
		t.Fatalf("display not refreshed after selection: %s", out)
	}
	press(m, "left", "left")
	if m.Selected() != "1年1組" {
		t.Fatalf("expected previous class, got %q", m.Selected())
	}
}

func TestSearchSelectsMatchingClass(t *testing.T) {
	m := NewModel(sampleState(), Options{}, nil)
	press(m, "/", "２年２", "enter")
	if m.searchMode {
		t.Fatalf("search should close after a match")
	}
	if m.Selected() != "2年2組" {
		t.Fatalf("expected search result, got %q", m.Selected())
	}
}

func TestSearchReportsMisses(t *testing.T) {
	m := NewModel(sampleState(), Options{}, nil)
	press(m, "/", "9年", "enter")
	if !m.searchMode || m.searchError == "" {
		t.Fatalf("expected search error, mode=%v err=%q", m.searchMode, m.searchError)
	}
	press(m, "esc")
	if m.searchMode {
		t.Fatalf("esc should close search")
	}
	if m.Selected() != "1年1組" {
		t.Fatalf("selection changed on failed search: %q", m.Selected())
	}
}

func TestLoadErrorView(t *testing.T) {
	m := NewModel(timetable.State{}, Options{LoadErr: errors.New("open data.json: no such file")}, nil)
	out := m.renderContent()
	if !containsAll(out, []string{timetable.MsgLoadFailed, "no such file"}) {
		t.Fatalf("error view missing details: %s", out)
	}
	press(m, "right")
	if m.Selected() != "" {
		t.Fatalf("no class should be selectable, got %q", m.Selected())
	}
}

func TestEmptyDatasetShowsInfo(t *testing.T) {
	m := NewModel(timetable.Normalize(nil), Options{}, nil)
	if out := m.renderContent(); !strings.Contains(out, timetable.MsgNoClasses) {
		t.Fatalf("expected no-classes message: %s", out)
	}
}

func TestViewFitsWindow(t *testing.T) {
	m := NewModel(sampleState(), Options{Preferred: timetable.DefaultClass}, nil)
	m.Update(tea.WindowSizeMsg{Width: 60, Height: 12})
	lines := strings.Split(m.View(), "\n")
	if len(lines) != 12 {
		t.Fatalf("expected 12 lines, got %d", len(lines))
	}
	if !strings.Contains(m.View(), "2/3") {
		t.Fatalf("header should show class position: %s", m.View())
	}
}

func TestFindClass(t *testing.T) {
	options := []string{"1年1組", "2年1組", "2理探"}
	cases := map[string]string{
		"2年1組": "2年1組",
		"２年":   "2年1組",
		"理探":   "2理探",
	}
	for query, want := range cases {
		got, err := findClass(options, query)
		if err != nil || got != want {
			t.Fatalf("findClass(%q) = %q, %v; want %q", query, got, err, want)
		}
	}
	if _, err := findClass(options, "  "); err == nil {
		t.Fatalf("expected error for empty query")
	}
}

func weekOptions(loads *[]string) Options {
	return Options{
		Preferred: timetable.DefaultClass,
		Week:      "2025-05-19_05-25",
		Weeks: []store.WeekInfo{
			{Week: "2025-05-19_05-25", Lessons: 4, Source: "a.csv"},
			{Week: "2025-05-12_05-18", Lessons: 1, Source: "b.csv"},
			{Week: "2025-05-05_05-11", Lessons: 0, Source: "c.csv"},
		},
		LoadWeek: func(week string) (timetable.State, error) {
			*loads = append(*loads, week)
			switch week {
			case "2025-05-12_05-18":
				return timetable.Normalize([]model.RawRecord{
					{Class: "2年2組", Weekday: "火", Period: "3", Subject: "音楽"},
				}), nil
			default:
				return timetable.State{}, errors.New("snapshot not found")
			}
		},
	}
}

func TestWeekPickerSwitchesWeek(t *testing.T) {
	var loads []string
	m := NewModel(sampleState(), weekOptions(&loads), nil)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	press(m, "right")
	if m.Selected() != "2年2組" {
		t.Fatalf("expected 2年2組, got %q", m.Selected())
	}
	press(m, "w")
	if !m.weekMode {
		t.Fatalf("w should open the week picker")
	}
	if !strings.Contains(m.View(), "2025-05-12_05-18") {
		t.Fatalf("picker should list weeks:\n%s", m.View())
	}
	press(m, "down", "enter")
	if m.weekMode {
		t.Fatalf("picker should close after loading")
	}
	if len(loads) != 1 || loads[0] != "2025-05-12_05-18" {
		t.Fatalf("unexpected loads %v", loads)
	}
	if m.Selected() != "2年2組" {
		t.Fatalf("class should survive the switch, got %q", m.Selected())
	}
	if out := m.renderContent(); !strings.Contains(out, "音楽") {
		t.Fatalf("new week not displayed: %s", out)
	}
}

func TestWeekPickerFallsBackWhenClassMissing(t *testing.T) {
	var loads []string
	opts := weekOptions(&loads)
	m := NewModel(sampleState(), opts, nil)
	press(m, "w", "down", "enter")
	// 2年1組 is absent in the loaded week, so the first class is shown.
	if m.Selected() != "2年2組" {
		t.Fatalf("expected fallback class, got %q", m.Selected())
	}
}

func TestWeekPickerReportsLoadErrors(t *testing.T) {
	var loads []string
	m := NewModel(sampleState(), weekOptions(&loads), nil)
	press(m, "w", "down", "down", "enter")
	if !m.weekMode || !strings.Contains(m.weekError, "snapshot not found") {
		t.Fatalf("expected week error, mode=%v err=%q", m.weekMode, m.weekError)
	}
	if m.Selected() != "2年1組" {
		t.Fatalf("selection changed on failed load: %q", m.Selected())
	}
	press(m, "esc")
	if m.weekMode || m.weekError != "" {
		t.Fatalf("esc should close the picker")
	}
}

func TestWeekPickerDisabledWithoutArchive(t *testing.T) {
	m := NewModel(sampleState(), Options{}, nil)
	press(m, "w")
	if m.weekMode {
		t.Fatalf("picker should stay closed without archived weeks")
	}
}

func TestWeekSwitchAfterLoadErrorKeepsRendering(t *testing.T) {
	m := NewModel(timetable.State{}, Options{
		Preferred: timetable.DefaultClass,
		LoadErr:   errors.New("open data.json: no such file"),
		Weeks:     []store.WeekInfo{{Week: "2025-05-12_05-18", Lessons: 4}},
		LoadWeek: func(string) (timetable.State, error) {
			return sampleState(), nil
		},
	}, nil)
	press(m, "w", "enter")
	if m.Selected() != "2年1組" {
		t.Fatalf("expected preferred class after switch, got %q", m.Selected())
	}
	press(m, "right")
	if m.Selected() != "2年2組" {
		t.Fatalf("expected next class, got %q", m.Selected())
	}
	if out := m.renderContent(); !containsAll(out, []string{"2年2組 時間割", "体育"}) {
		t.Fatalf("display not refreshed after selection: %s", out)
	}
}

func TestFooterChangesResizeBody(t *testing.T) {
	var loads []string
	opts := weekOptions(&loads)
	opts.LoadWeek = func(week string) (timetable.State, error) {
		if week == "2025-05-05_05-11" {
			return timetable.State{}, errors.New("snapshot not found")
		}
		return timetable.Normalize([]model.RawRecord{
			{Class: "2年1組", Weekday: "月", Period: "1", Subject: "数学"},
			{Class: "2年1組", Weekday: "月", Period: "1", Subject: "英語"},
		}), nil
	}
	m := NewModel(sampleState(), opts, nil)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	if m.body.Height != 16 {
		t.Fatalf("expected body height 16, got %d", m.body.Height)
	}

	press(m, "w", "down", "down", "enter")
	if m.weekError == "" || m.body.Height != 15 {
		t.Fatalf("week error should shrink the body, err=%q height=%d", m.weekError, m.body.Height)
	}
	press(m, "esc")
	if m.body.Height != 16 {
		t.Fatalf("closing the picker should restore the body, got %d", m.body.Height)
	}

	press(m, "w", "down", "enter")
	if len(m.state.Conflicts) == 0 {
		t.Fatalf("expected conflicts in the loaded week")
	}
	if m.body.Height != 15 {
		t.Fatalf("conflict footer should shrink the body, got %d", m.body.Height)
	}
}
