package tui

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/1broseidon/mirrordock/internal/dock"
	"github.com/1broseidon/mirrordock/internal/presets"
	"github.com/1broseidon/mirrordock/internal/session"
)

const (
	coarseStep = 10
	fineStep   = 1
	maxSlots   = 9
)

type frameMsg time.Time

func tickFrame() tea.Cmd {
	return tea.Tick(FrameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// model is the root bubbletea model for the control panel.
type model struct {
	session  Session
	selected dock.SurfaceIndex

	// Save prompt
	naming    bool
	nameInput textinput.Model

	lastPreset string
	notice     string
	noticeErr  bool

	width  int
	height int
}

func newModel(s Session) model {
	ti := textinput.New()
	ti.Placeholder = "preset name"
	ti.CharLimit = 50
	ti.Prompt = "save as: "

	return model{
		session:   s,
		selected:  dock.Primary,
		nameInput: ti,
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tickFrame()
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.session.Frame()
		return m, tickFrame()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.naming {
			return m.updateNaming(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "ctrl+c", "q":
		m.session.Quit()
		return m, tea.Quit

	case "d":
		m.setNotice("now "+m.session.Toggle(), nil)

	case "tab":
		m.selected = 1 - m.selected

	case "up":
		m.nudge(0, -coarseStep)
	case "down":
		m.nudge(0, coarseStep)
	case "left":
		m.nudge(-coarseStep, 0)
	case "right":
		m.nudge(coarseStep, 0)
	case "shift+up":
		m.nudge(0, -fineStep)
	case "shift+down":
		m.nudge(0, fineStep)
	case "shift+left":
		m.nudge(-fineStep, 0)
	case "shift+right":
		m.nudge(fineStep, 0)

	case "r":
		m.session.ResetLayout()
		m.setNotice("layout reset", nil)

	case "f":
		m.session.FocusSurface(m.selected)

	case "p":
		m.screenshot()

	case "s":
		m.naming = true
		m.nameInput.Reset()
		m.nameInput.Focus()
		return m, textinput.Blink

	case "x":
		m.deletePreset()

	case "+", "=":
		m.adjustScale(1)
	case "-", "_":
		m.adjustScale(-1)

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		name, err := m.session.ApplyPresetIndex(int(key[0] - '1'))
		if err == nil {
			m.lastPreset = name
		}
		m.setNotice("applied "+name, err)
	}
	return m, nil
}

func (m model) updateNaming(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.session.Quit()
		return m, tea.Quit
	case "esc":
		m.naming = false
		m.nameInput.Blur()
		return m, nil
	case "enter":
		name := m.nameInput.Value()
		err := m.session.SavePreset(name)
		if err == nil {
			m.lastPreset = name
			m.naming = false
			m.nameInput.Blur()
		}
		m.setNotice("saved "+name, err)
		return m, nil
	}

	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

func (m *model) nudge(dx, dy int) {
	m.session.Nudge(m.selected, dx, dy)
}

func (m *model) deletePreset() {
	if m.lastPreset == "" {
		m.setNotice("", errors.New("no preset selected; apply or save one first"))
		return
	}
	name := m.lastPreset
	err := m.session.DeletePreset(name)
	if err == nil || errors.Is(err, presets.ErrNotFound) {
		m.lastPreset = ""
	}
	m.setNotice("deleted "+name, err)
}

func (m *model) screenshot() {
	path, err := m.session.Screenshot()
	if errors.Is(err, dock.ErrNotDocked) {
		err = errors.New("dock first to take a screenshot")
	}
	m.setNotice("saved "+path+" (path copied)", err)
}

func (m *model) adjustScale(sign float64) {
	next := m.session.AdjustNextScale(sign * session.ScaleStep)
	if m.session.RestartRequired() {
		m.setNotice(fmt.Sprintf("scale %.2f takes effect after restart", next), nil)
		return
	}
	m.setNotice(fmt.Sprintf("scale %.2f", next), nil)
}

func (m *model) setNotice(text string, err error) {
	if err != nil {
		m.notice = err.Error()
		m.noticeErr = true
		return
	}
	m.notice = text
	m.noticeErr = false
}
