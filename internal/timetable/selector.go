package timetable

import "slices"

// DefaultClass is shown when no class is requested and it exists.
const DefaultClass = "2年1組"

// ResolveInitialClass picks the first class to display: the requested class
// when known, then preferred when known, then the first class.
func ResolveInitialClass(classNames []string, requested, preferred string) (string, bool) {
	if requested != "" && slices.Contains(classNames, requested) {
		return requested, true
	}
	if preferred != "" && slices.Contains(classNames, preferred) {
		return preferred, true
	}
	if len(classNames) > 0 {
		return classNames[0], true
	}
	return "", false
}

// Selector holds the class options, the current choice and one change
// handler.
type Selector struct {
	options  []string
	selected string
	handler  func(string)
}

// Populate replaces all options. A selection that is no longer an option is
// cleared.
func (s *Selector) Populate(classNames []string) {
	s.options = append(s.options[:0:0], classNames...)
	if s.selected != "" && !slices.Contains(s.options, s.selected) {
		s.selected = ""
	}
}

// Options returns the options in display order.
func (s *Selector) Options() []string {
	return slices.Clone(s.options)
}

// OnChange registers the handler invoked on every selection. It replaces any
// previous handler.
func (s *Selector) OnChange(handler func(string)) {
	s.handler = handler
}

// SetInitial sets the displayed choice without notifying the handler.
func (s *Selector) SetInitial(class string) {
	s.selected = class
}

// Selected returns the current choice, or "" when nothing is selected.
func (s *Selector) Selected() string {
	return s.selected
}

// Select records a user choice and notifies the handler.
func (s *Selector) Select(class string) {
	s.selected = class
	if s.handler != nil {
		s.handler(class)
	}
}

// Next selects the option after the current one, wrapping around.
func (s *Selector) Next() {
	s.move(1)
}

// Prev selects the option before the current one, wrapping around.
func (s *Selector) Prev() {
	s.move(-1)
}

func (s *Selector) move(delta int) {
	count := len(s.options)
	if count == 0 {
		return
	}
	idx := slices.Index(s.options, s.selected)
	var next int
	switch {
	case idx < 0 && delta > 0:
		next = 0
	case idx < 0:
		next = count - 1
	default:
		next = (idx + delta + count) % count
	}
	s.Select(s.options[next])
}
