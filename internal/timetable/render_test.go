package timetable

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/verte-zerg/jikanwari/internal/model"
)

func TestRenderEndToEnd(t *testing.T) {
	raw := []model.RawRecord{
		lesson("2年1組", "月", "1", "数学"),
		lesson("2年1組", "火", "1", "英語"),
	}
	state := Normalize(raw)
	if len(state.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(state.Records))
	}
	if diff := cmp.Diff([]string{"2年1組"}, state.Classes); diff != "" {
		t.Fatalf("class list mismatch (-want +got):\n%s", diff)
	}

	view := Render(state, "2年1組")
	if view.Kind != ViewGrid {
		t.Fatalf("expected grid view, got %s", view.Kind)
	}
	want := &Grid{
		Class:  "2年1組",
		Title:  "2年1組 時間割",
		Header: []string{"", "月", "火", "水", "木", "金"},
		Rows: []GridRow{
			{Period: 1, Cells: [5]string{"数学", "英語", EmptyCell, EmptyCell, EmptyCell}},
		},
	}
	if diff := cmp.Diff(want, view.Grid); diff != "" {
		t.Fatalf("grid mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderUsesPeriodsOfAllClasses(t *testing.T) {
	state := Normalize([]model.RawRecord{
		lesson("2年1組", "月", "1", "数学"),
		lesson("2年2組", "金", "6", "体育"),
	})
	view := Render(state, "2年1組")
	if len(view.Grid.Rows) != 2 {
		t.Fatalf("expected rows for periods 1 and 6, got %d", len(view.Grid.Rows))
	}
	last := view.Grid.Rows[1]
	if last.Period != 6 {
		t.Fatalf("expected period 6, got %d", last.Period)
	}
	for _, cell := range last.Cells {
		if cell != EmptyCell {
			t.Fatalf("expected empty marker, got %q", cell)
		}
	}
}

func TestRenderFirstMatchWins(t *testing.T) {
	state := Normalize([]model.RawRecord{
		lesson("2年1組", "水", "3", "理科"),
		lesson("2年1組", "水", "3", "社会"),
	})
	view := Render(state, "2年1組")
	if got := view.Grid.Rows[0].Cells[2]; got != "理科" {
		t.Fatalf("expected first lesson, got %q", got)
	}
}

func TestRenderPlaceholders(t *testing.T) {
	state := Normalize([]model.RawRecord{lesson("2年1組", "月", "1", "数学")})

	view := Render(state, "")
	if view.Kind != ViewInfo || view.Message != MsgSelectClass {
		t.Fatalf("unexpected view for empty class: %+v", view)
	}

	view = Render(state, "3年4組")
	if view.Kind != ViewInfo || view.Grid != nil {
		t.Fatalf("expected info view without grid, got %+v", view)
	}
	if !strings.Contains(view.Message, "3年4組") {
		t.Fatalf("placeholder should name the class: %q", view.Message)
	}
}

func TestInitialView(t *testing.T) {
	class, view := InitialView(Normalize(nil), "2年1組", DefaultClass)
	if class != "" || view.Message != MsgNoClasses {
		t.Fatalf("expected no-classes view, got %q %+v", class, view)
	}

	state := Normalize([]model.RawRecord{
		lesson("1年1組", "月", "1", "国語"),
		lesson("2年1組", "月", "1", "数学"),
	})
	class, view = InitialView(state, "", DefaultClass)
	if class != "2年1組" || view.Grid == nil || view.Grid.Class != "2年1組" {
		t.Fatalf("expected default class grid, got %q %+v", class, view)
	}
}

func TestDisplayShowIsIdempotent(t *testing.T) {
	state := Normalize([]model.RawRecord{
		lesson("2年1組", "月", "1", "数学"),
		lesson("2年1組", "火", "2", "英語"),
	})
	var once, twice Display
	once.Show(Render(state, "2年1組"))
	twice.Show(Render(state, "2年1組"))
	twice.Show(Render(state, "2年1組"))

	if diff := cmp.Diff(once.View(), twice.View()); diff != "" {
		t.Fatalf("second render changed the display (-once +twice):\n%s", diff)
	}
	if got := len(twice.View().Grid.Rows); got != 2 {
		t.Fatalf("expected 2 rows, got %d", got)
	}
}

func TestErrorView(t *testing.T) {
	view := ErrorView(errors.New("boom"))
	if view.Kind != ViewError || view.Message != MsgLoadFailed {
		t.Fatalf("unexpected error view: %+v", view)
	}
	if got := FormatView(view); !strings.Contains(got, "boom") {
		t.Fatalf("formatted error should include the cause: %q", got)
	}
}

func TestFormatGridAlignsWideCells(t *testing.T) {
	state := Normalize([]model.RawRecord{
		lesson("2年1組", "月", "1", "数学"),
		lesson("2年1組", "火", "1", "英語"),
	})
	lines := FormatGrid(Render(state, "2年1組").Grid)
	want := []string{
		"   月    火    水  木  金",
		"1  数学  英語  -   -   -",
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Fatalf("formatted grid mismatch (-want +got):\n%s", diff)
	}
}
