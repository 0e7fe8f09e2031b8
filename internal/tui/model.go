// Package tui provides the Bubble Tea timetable viewer.
package tui

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"
	"golang.org/x/text/width"

	"github.com/verte-zerg/jikanwari/internal/store"
	"github.com/verte-zerg/jikanwari/internal/timetable"
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	gridHead    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C0C0C0")).Bold(true)
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
)

// Model implements the Bubble Tea timetable UI.
type Model struct {
	state     timetable.State
	selector  *timetable.Selector
	display   *timetable.Display
	logger    *zap.Logger
	preferred string

	width  int
	height int
	body   viewport.Model

	searchMode  bool
	searchInput textinput.Model
	searchError string

	week      string
	weeks     []store.WeekInfo
	loadWeek  WeekLoader
	weekMode  bool
	weekTable table.Model
	weekError string
}

// Options configures the initial selection of a viewer.
type Options struct {
	// Requested is the class asked for on the command line.
	Requested string
	// Preferred is the fallback class when Requested is unknown.
	Preferred string
	// LoadErr is set when the dataset could not be loaded; the viewer then
	// only shows the error.
	LoadErr error
	// Week labels the working set when it came from the archive.
	Week string
	// Weeks and LoadWeek enable switching between archived weeks.
	Weeks    []store.WeekInfo
	LoadWeek WeekLoader
}

// NewModel constructs a viewer over state.
func NewModel(state timetable.State, opts Options, logger *zap.Logger) *Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Model{
		state:     state,
		selector:  &timetable.Selector{},
		display:   &timetable.Display{},
		logger:    logger,
		preferred: opts.Preferred,
		body:      viewport.New(0, 0),
		week:      opts.Week,
		weeks:     opts.Weeks,
		loadWeek:  opts.LoadWeek,
	}
	m.initSearchInput()
	// Registered first so a week loaded after a failed start still renders.
	m.selector.OnChange(func(class string) {
		m.logger.Debug("class selected", zap.String("class", class))
		m.display.Show(timetable.Render(m.state, class))
		m.refreshBody()
	})

	if opts.LoadErr != nil {
		m.display.Show(timetable.ErrorView(opts.LoadErr))
		m.refreshBody()
		return m
	}

	m.selector.Populate(state.Classes)
	class, view := timetable.InitialView(state, opts.Requested, opts.Preferred)
	m.selector.SetInitial(class)
	m.display.Show(view)
	m.refreshBody()
	return m
}

// Selected returns the class currently displayed.
func (m *Model) Selected() string {
	return m.selector.Selected()
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.refreshBody()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.searchMode {
			return m.updateSearch(msg)
		}
		if m.weekMode {
			return m.updateWeekPicker(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h", "shift+tab":
			m.selector.Prev()
			m.body.GotoTop()
			return m, nil
		case "right", "l", "tab":
			m.selector.Next()
			m.body.GotoTop()
			return m, nil
		case "/":
			return m.startSearch()
		case "w":
			if m.canPickWeek() {
				return m.startWeekPicker()
			}
			return m, nil
		case "g", "home":
			m.body.GotoTop()
			return m, nil
		case "G", "end":
			m.body.GotoBottom()
			return m, nil
		default:
			var cmd tea.Cmd
			m.body, cmd = m.body.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return m.renderContent()
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	bodyView := m.body.View()
	if m.weekMode {
		bodyView = m.weekTable.View()
	}
	body := fitLines(bodyView, m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initSearchInput() {
	input := textinput.New()
	input.Prompt = "Class: "
	input.Placeholder = "2年1組"
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	m.searchInput = input
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = lipgloss.Height(activeNavStyle.Render("X"))
	if headerHeight < 1 {
		headerHeight = 1
	}
	footerHeight = 1
	if m.searchMode || m.weekError != "" || len(m.state.Conflicts) > 0 {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.body.Width = m.width
	m.body.Height = bodyHeight
	promptWidth := lipgloss.Width(m.searchInput.Prompt)
	m.searchInput.Width = maxInt(10, m.width-promptWidth-2)
	if m.weekMode {
		m.weekTable.SetWidth(m.width)
		m.weekTable.SetHeight(maxInt(1, bodyHeight-1))
	}
}

func (m *Model) refreshBody() {
	m.body.SetContent(m.renderContent())
}

func (m *Model) renderHeader() string {
	options := m.selector.Options()
	selected := m.selector.Selected()
	label := selected
	if label == "" {
		label = "-"
	}
	nav := activeNavStyle.Render("◀ " + label + " ▶")
	position := ""
	if idx := slices.Index(options, selected); idx >= 0 {
		position = fmt.Sprintf("%d/%d", idx+1, len(options))
	}
	if m.week != "" {
		position = strings.TrimSpace(position + "  " + m.week)
	}
	info := headerStyle.Render(truncateLine(position, maxInt(0, m.width-lipgloss.Width(nav)-1)))
	return lipgloss.JoinHorizontal(lipgloss.Center, nav, " ", info)
}

func (m *Model) renderContent() string {
	view := m.display.View()
	switch view.Kind {
	case timetable.ViewGrid:
		lines := timetable.FormatGrid(view.Grid)
		out := []string{titleStyle.Render(view.Grid.Title), ""}
		for i, line := range lines {
			if i == 0 {
				out = append(out, gridHead.Render(line))
				continue
			}
			out = append(out, line)
		}
		return strings.Join(out, "\n")
	case timetable.ViewError:
		msg := errorStyle.Render(view.Message)
		if view.Err != nil {
			msg += "\n" + infoStyle.Render(view.Err.Error())
		}
		return msg
	default:
		return infoStyle.Render(view.Message)
	}
}

func (m *Model) renderHelp() string {
	if m.searchMode {
		return headerStyle.Render("enter: show class  esc: cancel")
	}
	if m.weekMode {
		return headerStyle.Render("Week: up/down  enter: load  esc: back")
	}
	if m.canPickWeek() {
		return headerStyle.Render("Class: left/right  Find: /  Week: w  Scroll: up/down/pgup/pgdn  Quit: q")
	}
	return headerStyle.Render("Class: left/right  Find: /  Scroll: up/down/pgup/pgdn  Quit: q")
}

func (m *Model) renderFooter() string {
	if m.searchMode {
		line := m.searchInput.View()
		if m.searchError != "" {
			line = errorStyle.Render(m.searchError)
		}
		return line + "\n" + m.renderHelp()
	}
	if m.weekError != "" {
		return errorStyle.Render(truncateLine(m.weekError, m.width)) + "\n" + m.renderHelp()
	}
	if n := len(m.state.Conflicts); n > 0 {
		warn := warnStyle.Render(truncateLine(fmt.Sprintf("%d slots have more than one lesson; showing the first (e.g. %s)", n, m.state.Conflicts[0]), m.width))
		return m.renderHelp() + "\n" + warn
	}
	return m.renderHelp()
}

func (m *Model) startSearch() (tea.Model, tea.Cmd) {
	m.searchMode = true
	m.searchError = ""
	m.searchInput.SetValue("")
	m.updateLayout()
	return m, m.searchInput.Focus()
}

func (m *Model) stopSearch() {
	m.searchMode = false
	m.searchError = ""
	m.searchInput.Blur()
	m.updateLayout()
}

func (m *Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.stopSearch()
		return m, nil
	case tea.KeyEnter:
		class, err := findClass(m.selector.Options(), m.searchInput.Value())
		if err != nil {
			m.searchError = err.Error()
			return m, nil
		}
		m.stopSearch()
		m.selector.Select(class)
		m.body.GotoTop()
		return m, nil
	}
	m.searchError = ""
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// findClass matches query exactly, then by prefix, then by substring.
// Full-width and half-width digits are treated alike.
func findClass(options []string, query string) (string, error) {
	q := foldQuery(query)
	if q == "" {
		return "", errors.New("type a class name")
	}
	for _, o := range options {
		if foldQuery(o) == q {
			return o, nil
		}
	}
	for _, o := range options {
		if strings.HasPrefix(foldQuery(o), q) {
			return o, nil
		}
	}
	for _, o := range options {
		if strings.Contains(foldQuery(o), q) {
			return o, nil
		}
	}
	return "", fmt.Errorf("no class matches %q", strings.TrimSpace(query))
}

func foldQuery(s string) string {
	return strings.ToLower(strings.TrimSpace(width.Narrow.String(s)))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}
