package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/verte-zerg/jikanwari/internal/store"
	"github.com/verte-zerg/jikanwari/internal/timetable"
)

// WeekLoader loads the working set of an archived week.
type WeekLoader func(week string) (timetable.State, error)

func buildWeekTable(weeks []store.WeekInfo, current string, width, height int) table.Model {
	columns := []table.Column{
		{Title: "Week", Width: 17},
		{Title: "Lessons", Width: 7},
		{Title: "Imported", Width: 16},
		{Title: "Source", Width: maxInt(8, width-17-7-16-8)},
	}
	rows := make([]table.Row, 0, len(weeks))
	cursor := 0
	for i, w := range weeks {
		if w.Week == current {
			cursor = i
		}
		rows = append(rows, table.Row{
			w.Week,
			strconv.Itoa(w.Lessons),
			w.ImportedAt.Local().Format("2006-01-02 15:04"),
			w.Source,
		})
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(maxInt(1, height-1)),
		table.WithFocused(true),
	)
	if width > 0 {
		t.SetWidth(width)
	}
	t.SetStyles(weekTableStyles())
	t.SetCursor(cursor)
	return t
}

func weekTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) canPickWeek() bool {
	return len(m.weeks) > 0 && m.loadWeek != nil
}

func (m *Model) startWeekPicker() (tea.Model, tea.Cmd) {
	_, bodyHeight, _ := m.layoutHeights()
	m.weekMode = true
	m.weekError = ""
	m.weekTable = buildWeekTable(m.weeks, m.week, m.width, bodyHeight)
	return m, nil
}

func (m *Model) updateWeekPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "w":
		m.weekMode = false
		m.weekError = ""
		m.updateLayout()
		return m, nil
	case "enter":
		row := m.weekTable.SelectedRow()
		if len(row) == 0 {
			return m, nil
		}
		if err := m.switchWeek(row[0]); err != nil {
			m.weekError = fmt.Sprintf("failed to load week %s: %v", row[0], err)
			m.updateLayout()
			return m, nil
		}
		m.weekMode = false
		m.weekError = ""
		m.updateLayout()
		return m, nil
	}
	var cmd tea.Cmd
	m.weekTable, cmd = m.weekTable.Update(msg)
	return m, cmd
}

// switchWeek replaces the working set with an archived week. The current
// class stays selected when the new week has it.
func (m *Model) switchWeek(week string) error {
	state, err := m.loadWeek(week)
	if err != nil {
		m.logger.Warn("week load failed", zap.String("week", week), zap.Error(err))
		return err
	}
	m.state = state
	m.week = week
	m.selector.Populate(state.Classes)
	if current := m.selector.Selected(); current != "" {
		m.display.Show(timetable.Render(state, current))
	} else {
		class, view := timetable.InitialView(state, "", m.preferred)
		m.selector.SetInitial(class)
		m.display.Show(view)
	}
	m.logger.Info("week switched", zap.String("week", week), zap.Int("classes", len(state.Classes)))
	m.body.GotoTop()
	m.refreshBody()
	return nil
}
