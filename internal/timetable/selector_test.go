package timetable

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolveInitialClass(t *testing.T) {
	classes := []string{"2年1組", "2年2組"}
	cases := []struct {
		name      string
		classes   []string
		requested string
		preferred string
		want      string
		ok        bool
	}{
		{"query wins", classes, "2年2組", "2年1組", "2年2組", true},
		{"unknown query falls back to first", classes, "9年9組", "", "2年1組", true},
		{"unknown query uses preferred", []string{"1年1組", "2年1組"}, "9年9組", DefaultClass, "2年1組", true},
		{"preferred missing", []string{"1年1組", "1年2組"}, "", DefaultClass, "1年1組", true},
		{"no classes", []string{}, "2年1組", DefaultClass, "", false},
	}
	for _, tc := range cases {
		got, ok := ResolveInitialClass(tc.classes, tc.requested, tc.preferred)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("%s: got %q, %v; want %q, %v", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}

func TestSelectorPopulateReplacesOptions(t *testing.T) {
	var s Selector
	s.Populate([]string{"a", "b"})
	s.SetInitial("b")
	s.Populate([]string{"c", "a"})
	if diff := cmp.Diff([]string{"c", "a"}, s.Options()); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
	if s.Selected() != "" {
		t.Fatalf("stale selection kept: %q", s.Selected())
	}
}

func TestSelectorSingleHandler(t *testing.T) {
	var s Selector
	s.Populate([]string{"a", "b"})
	var first, second []string
	s.OnChange(func(class string) { first = append(first, class) })
	s.Select("a")
	s.OnChange(func(class string) { second = append(second, class) })
	s.Select("b")

	if diff := cmp.Diff([]string{"a"}, first); diff != "" {
		t.Fatalf("first handler calls (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b"}, second); diff != "" {
		t.Fatalf("second handler calls (-want +got):\n%s", diff)
	}
	if s.Selected() != "b" {
		t.Fatalf("expected b selected, got %q", s.Selected())
	}
}

func TestSelectorSetInitialDoesNotNotify(t *testing.T) {
	var s Selector
	s.Populate([]string{"a"})
	called := false
	s.OnChange(func(string) { called = true })
	s.SetInitial("a")
	if called {
		t.Fatalf("SetInitial must not invoke the handler")
	}
}

func TestSelectorCyclesOptions(t *testing.T) {
	var s Selector
	s.Populate([]string{"a", "b", "c"})
	s.SetInitial("c")
	s.Next()
	if s.Selected() != "a" {
		t.Fatalf("expected wrap to a, got %q", s.Selected())
	}
	s.Prev()
	if s.Selected() != "c" {
		t.Fatalf("expected wrap back to c, got %q", s.Selected())
	}

	var empty Selector
	empty.Next()
	if empty.Selected() != "" {
		t.Fatalf("empty selector should stay unselected")
	}
}
