package timetable

import (
	"fmt"

	"github.com/verte-zerg/jikanwari/internal/model"
)

// EmptyCell marks a slot without a lesson.
const EmptyCell = "-"

// Placeholder messages shown instead of a grid.
const (
	MsgSelectClass = "表示するクラスを選択してください。"
	MsgNoClasses   = "表示可能なクラスが見つかりませんでした。データファイルを確認してください。"
	MsgLoadFailed  = "時間割データの読み込みに失敗しました。"
)

// ViewKind distinguishes what a display area shows.
type ViewKind int

const (
	ViewInfo ViewKind = iota
	ViewGrid
	ViewError
)

func (k ViewKind) String() string {
	switch k {
	case ViewInfo:
		return "info"
	case ViewGrid:
		return "grid"
	case ViewError:
		return "error"
	default:
		return "unknown"
	}
}

// View is the full content of a display area.
type View struct {
	Kind    ViewKind
	Message string
	Grid    *Grid
	Err     error
}

// Grid is a weekday × period table for one class.
type Grid struct {
	Class  string
	Title  string
	Header []string
	Rows   []GridRow
}

// GridRow holds one period with one cell per weekday.
type GridRow struct {
	Period int
	Cells  [len(Weekdays)]string
}

// Render builds the view for class. It reads state only.
func Render(state State, class string) View {
	if class == "" {
		return View{Kind: ViewInfo, Message: MsgSelectClass}
	}
	records := state.ClassRecords(class)
	if len(records) == 0 {
		return View{Kind: ViewInfo, Message: fmt.Sprintf("%s の時間割データが見つかりませんでした。", class)}
	}

	grid := &Grid{
		Class:  class,
		Title:  class + " 時間割",
		Header: append([]string{""}, Weekdays[:]...),
		Rows:   make([]GridRow, 0, len(state.Periods)),
	}
	for _, period := range state.Periods {
		row := GridRow{Period: period}
		for day := range Weekdays {
			row.Cells[day] = EmptyCell
			if lesson, ok := findLesson(records, day, period); ok {
				row.Cells[day] = lesson.Subject
			}
		}
		grid.Rows = append(grid.Rows, row)
	}
	return View{Kind: ViewGrid, Grid: grid}
}

// NoClassesView is shown when the working set has no class at all.
func NoClassesView() View {
	return View{Kind: ViewInfo, Message: MsgNoClasses}
}

// ErrorView is shown when the dataset could not be loaded.
func ErrorView(err error) View {
	return View{Kind: ViewError, Message: MsgLoadFailed, Err: err}
}

// InitialView resolves the first class and renders it, or the empty state
// when there is nothing to show.
func InitialView(state State, requested, preferred string) (string, View) {
	class, ok := ResolveInitialClass(state.Classes, requested, preferred)
	if !ok {
		return "", NoClassesView()
	}
	return class, Render(state, class)
}

func findLesson(records []model.Record, day, period int) (model.Record, bool) {
	for _, r := range records {
		if r.WeekdayIndex == day && r.PeriodValid && r.PeriodNumber == period {
			return r, true
		}
	}
	return model.Record{}, false
}

// Display is a display area. Show replaces its whole content.
type Display struct {
	view View
}

// Show replaces the current content with v.
func (d *Display) Show(v View) {
	d.view = v
}

// View returns the current content.
func (d *Display) View() View {
	return d.view
}
