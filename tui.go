package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Messages the recording pipeline sends into the TUI.
type recStartedMsg struct{}
type recStoppedMsg struct{}
type recTickMsg struct{ Seconds int }
type recLevelMsg struct{ Percent int }
type busyMsg struct{ Text string }
type resultMsg struct {
	Text      string
	Meta      []string
	Delivered string // sink name, empty when delivery failed
	NoSpeech  bool
}
type errorMsg struct{ Text string }
type updateLineMsg struct{ Text string }
type frameMsg time.Time

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

// uiSend forwards a message to the TUI if one is running. The pipeline calls
// this from its own goroutines, so the program pointer is read under lock.
func uiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

type uiState int

const (
	uiIdle uiState = iota
	uiRecording
	uiBusy
)

const meterWidth = 30

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("183")).Bold(true)
	recStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	busyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("221"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	faintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	textStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	meterLow     = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	meterMid     = lipgloss.NewStyle().Foreground(lipgloss.Color("221"))
	meterHigh    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	meterOff     = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	resultBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type tuiModel struct {
	state   uiState
	frame   int
	seconds int
	level   int
	peak    int // highest level seen in the current recording
	busy    string

	width, height int

	modeLine   string
	deviceLine string
	hotkeyLine string
	updateLine string

	count     int
	lastText  string
	lastMeta  []string
	delivered string
	noSpeech  bool
	lastErr   string
}

func newTUIProgram(modeLine, deviceLine, hotkeyLine string) *tea.Program {
	m := tuiModel{
		modeLine:   modeLine,
		deviceLine: deviceLine,
		hotkeyLine: hotkeyLine,
	}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func frameTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return frameTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case frameMsg:
		m.frame++
		return m, frameTick()

	case recStartedMsg:
		m.state = uiRecording
		m.seconds = 0
		m.level = 0
		m.peak = 0
		m.lastErr = ""

	case recStoppedMsg:
		m.state = uiIdle
		m.level = 0
		m.busy = ""

	case recTickMsg:
		m.seconds = msg.Seconds

	case recLevelMsg:
		if m.state == uiRecording {
			m.level = msg.Percent
			if msg.Percent > m.peak {
				m.peak = msg.Percent
			}
		}

	case busyMsg:
		m.state = uiBusy
		m.level = 0
		m.busy = msg.Text

	case resultMsg:
		m.state = uiIdle
		m.busy = ""
		m.count++
		m.lastText = msg.Text
		m.lastMeta = msg.Meta
		m.delivered = msg.Delivered
		m.noSpeech = msg.NoSpeech
		m.lastErr = ""

	case errorMsg:
		m.state = uiIdle
		m.busy = ""
		m.lastErr = msg.Text

	case updateLineMsg:
		m.updateLine = msg.Text
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("murmur") + dimStyle.Render("  push-to-talk dictation") + "\n\n")

	switch m.state {
	case uiRecording:
		b.WriteString(recStyle.Render(fmt.Sprintf("● REC %s", clock(m.seconds))) + "\n")
		b.WriteString(renderMeter(m.level, m.peak) + "\n")
		if m.seconds >= 2 && m.peak < 3 {
			b.WriteString(warnStyle.Render("  no input from microphone") + "\n")
		}
	case uiBusy:
		spin := spinnerFrames[m.frame%len(spinnerFrames)]
		b.WriteString(busyStyle.Render(spin+" "+m.busy) + "\n")
		b.WriteString(renderMeter(0, 0) + "\n")
	default:
		b.WriteString(idleStyle.Render("○ idle") + "\n")
		b.WriteString(renderMeter(0, 0) + "\n")
	}
	b.WriteString("\n")

	if m.modeLine != "" {
		b.WriteString(dimStyle.Render(m.modeLine) + "\n")
	}
	if m.deviceLine != "" {
		b.WriteString(dimStyle.Render(m.deviceLine) + "\n")
	}
	b.WriteString("\n")

	wrap := m.width - 6
	if wrap > 72 {
		wrap = 72
	}
	if wrap < 20 {
		wrap = 20
	}

	if m.lastErr != "" {
		b.WriteString(warnStyle.Width(wrap).Render(m.lastErr) + "\n\n")
	}

	if m.lastText != "" {
		header := dimStyle.Render(fmt.Sprintf("#%d", m.count))
		if m.delivered != "" && !m.noSpeech {
			header += "  " + okStyle.Render("✓ "+m.delivered)
		}
		body := textStyle
		if m.noSpeech {
			body = warnStyle
		}
		box := header + "\n" + body.Width(wrap).Render(m.lastText)
		if len(m.lastMeta) > 0 {
			box += "\n" + faintStyle.Render(strings.Join(m.lastMeta, "  "))
		}
		b.WriteString(resultBorder.Width(wrap+2).Render(box) + "\n")
	} else {
		b.WriteString(faintStyle.Render("nothing transcribed yet") + "\n")
	}

	b.WriteString("\n")
	if m.updateLine != "" {
		b.WriteString(warnStyle.Render(m.updateLine) + "\n")
	}
	hint := m.hotkeyLine
	if hint == "" {
		hint = "hotkey"
	}
	b.WriteString(faintStyle.Render(hint+" to talk · ctrl+c to quit · murmur "+version) + "\n")

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

// renderMeter draws the level bar with a peak marker. Cells go green to
// yellow to red along the scale, the way hardware meters do.
func renderMeter(level, peak int) string {
	filled := level * meterWidth / 100
	peakCell := peak*meterWidth/100 - 1

	var b strings.Builder
	b.WriteString(dimStyle.Render("  ["))
	for i := 0; i < meterWidth; i++ {
		style := meterOff
		ch := "░"
		if i < filled {
			ch = "█"
			style = meterCell(i)
		} else if i == peakCell && peak > 0 {
			ch = "▌"
			style = meterCell(i)
		}
		b.WriteString(style.Render(ch))
	}
	b.WriteString(dimStyle.Render("]"))
	return b.String()
}

func meterCell(i int) lipgloss.Style {
	switch {
	case i >= meterWidth*85/100:
		return meterHigh
	case i >= meterWidth*60/100:
		return meterMid
	default:
		return meterLow
	}
}

func clock(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
