package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/conclave-ai/conclave/internal/diagnostics"
	"github.com/conclave-ai/conclave/internal/events"
)

const (
	maxRequestRows = 20
	maxLogEntries  = 100
)

type requestPhase int

const (
	phaseRunning requestPhase = iota
	phaseCompleted
	phaseFailed
)

// ExpertView tracks one expert's progress within a request.
type ExpertView struct {
	ID         string
	Done       bool
	Failed     bool
	Confidence float64
	LatencyMs  int64
	Reason     string
}

// RequestView tracks one request through its lifecycle.
type RequestView struct {
	ID            string
	SessionID     string
	Mode          string
	Phase         requestPhase
	Experts       []*ExpertView
	Method        string
	Confidence    float64
	ThresholdMet  bool
	Disagreements int
	Contributing  int
	Omitted       int
	LatencyMs     int64
	StartedAt     time.Time
	Err           string
}

// LogEntry is one line in the log view.
type LogEntry struct {
	Time    time.Time
	Level   string
	Message string
}

// Model is the monitor's bubbletea model.
type Model struct {
	adapter *BusAdapter
	spinner spinner.Model

	requests    []*RequestView
	byID        map[string]*RequestView
	selectedIdx int

	width  int
	height int
	ready  bool

	logs     []LogEntry
	showLogs bool

	err     error
	dropped int64
	stats   diagnostics.ProcessStats
}

// New creates a monitor model with no event source.
func New() Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorSecondary)

	return Model{
		spinner: sp,
		byID:    make(map[string]*RequestView),
		stats:   diagnostics.SampleProcess(),
	}
}

// NewWithBus creates a monitor model fed by the event bus.
func NewWithBus(bus *events.Bus) Model {
	m := New()
	if bus != nil {
		m.adapter = NewBusAdapter(bus)
	}
	return m
}

// Init starts the spinner, the stats ticker, and the bus wait.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, statsTick()}
	if m.adapter != nil {
		cmds = append(cmds, waitForBusMsg(m.adapter))
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case RequestStartedMsg:
		m.applyStarted(msg)
		return m, m.nextBusMsg()

	case ExpertUpdateMsg:
		m.applyExpert(msg)
		return m, m.nextBusMsg()

	case ConsensusMsg:
		m.applyConsensus(msg)
		return m, m.nextBusMsg()

	case RequestFinishedMsg:
		m.applyFinished(msg)
		return m, m.nextBusMsg()

	case LogMsg:
		m.appendLog(msg.Time, msg.Level, msg.Message)
		return m, nil

	case DroppedEventsMsg:
		m.dropped = msg.Count
		return m, nil

	case StatsTickMsg:
		m.stats = diagnostics.SampleProcess()
		if m.adapter != nil {
			m.dropped = m.adapter.Dropped()
		}
		return m, statsTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ErrorMsg:
		m.err = msg.Error
		return m, nil
	}

	return m, nil
}

func (m Model) nextBusMsg() tea.Cmd {
	if m.adapter == nil {
		return nil
	}
	return waitForBusMsg(m.adapter)
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.adapter != nil {
			m.adapter.Close()
		}
		return m, tea.Quit

	case "up", "k":
		if m.selectedIdx > 0 {
			m.selectedIdx--
		}
		return m, nil

	case "down", "j":
		if m.selectedIdx < len(m.requests)-1 {
			m.selectedIdx++
		}
		return m, nil

	case "l":
		m.showLogs = !m.showLogs
		return m, nil

	case "c":
		m.clearFinished()
		return m, nil
	}

	return m, nil
}

// applyStarted registers a new request with its announced panel.
func (m *Model) applyStarted(msg RequestStartedMsg) {
	view := &RequestView{
		ID:        msg.ID,
		SessionID: msg.SessionID,
		Mode:      msg.Mode,
		Phase:     phaseRunning,
		StartedAt: msg.Time,
	}
	for _, id := range msg.Experts {
		view.Experts = append(view.Experts, &ExpertView{ID: id})
	}

	if existing, ok := m.byID[msg.ID]; ok {
		*existing = *view
		return
	}
	m.byID[msg.ID] = view
	m.requests = append(m.requests, view)
	m.trimRequests()

	m.appendLog(msg.Time, "info",
		fmt.Sprintf("request %s started (%s, %d experts)", shortID(msg.ID), msg.Mode, len(msg.Experts)))
}

func (m *Model) applyExpert(msg ExpertUpdateMsg) {
	view, ok := m.byID[msg.RequestID]
	if !ok {
		return
	}

	var expert *ExpertView
	for _, ex := range view.Experts {
		if ex.ID == msg.ExpertID {
			expert = ex
			break
		}
	}
	if expert == nil {
		expert = &ExpertView{ID: msg.ExpertID}
		view.Experts = append(view.Experts, expert)
	}

	expert.Done = true
	expert.Failed = msg.Failed
	expert.Confidence = msg.Confidence
	expert.LatencyMs = msg.LatencyMs
	expert.Reason = msg.Reason

	if msg.Failed {
		m.appendLog(time.Now(), "warn",
			fmt.Sprintf("%s failed on %s: %s", msg.ExpertID, shortID(msg.RequestID), msg.Reason))
	}
}

func (m *Model) applyConsensus(msg ConsensusMsg) {
	view, ok := m.byID[msg.RequestID]
	if !ok {
		return
	}
	view.Method = msg.Method
	view.Confidence = msg.Confidence
	view.ThresholdMet = msg.ThresholdMet
	view.Disagreements = msg.Disagreements
}

func (m *Model) applyFinished(msg RequestFinishedMsg) {
	view, ok := m.byID[msg.ID]
	if !ok {
		// Monitor attached mid-request; show the terminal state anyway.
		view = &RequestView{ID: msg.ID, Mode: msg.Mode, StartedAt: time.Now()}
		m.byID[msg.ID] = view
		m.requests = append(m.requests, view)
		m.trimRequests()
	}

	if msg.Failed {
		view.Phase = phaseFailed
		view.Err = msg.Error
		m.appendLog(time.Now(), "error",
			fmt.Sprintf("request %s failed: %s", shortID(msg.ID), msg.Error))
		return
	}

	view.Phase = phaseCompleted
	if msg.Method != "" {
		view.Method = msg.Method
		view.Confidence = msg.Confidence
		view.ThresholdMet = msg.ThresholdMet
	}
	view.Contributing = msg.Contributing
	view.Omitted = msg.Omitted
	view.LatencyMs = msg.LatencyMs

	m.appendLog(time.Now(), "info",
		fmt.Sprintf("request %s completed in %dms", shortID(msg.ID), msg.LatencyMs))
}

func (m *Model) appendLog(at time.Time, level, message string) {
	if at.IsZero() {
		at = time.Now()
	}
	m.logs = append(m.logs, LogEntry{Time: at, Level: level, Message: message})
	if len(m.logs) > maxLogEntries {
		m.logs = m.logs[1:]
	}
}

// trimRequests drops the oldest rows once the list exceeds the cap.
func (m *Model) trimRequests() {
	for len(m.requests) > maxRequestRows {
		delete(m.byID, m.requests[0].ID)
		m.requests = m.requests[1:]
		if m.selectedIdx > 0 {
			m.selectedIdx--
		}
	}
}

// clearFinished keeps only in-flight requests.
func (m *Model) clearFinished() {
	kept := m.requests[:0]
	for _, r := range m.requests {
		if r.Phase == phaseRunning {
			kept = append(kept, r)
		} else {
			delete(m.byID, r.ID)
		}
	}
	m.requests = kept
	if m.selectedIdx >= len(m.requests) {
		m.selectedIdx = len(m.requests) - 1
	}
	if m.selectedIdx < 0 {
		m.selectedIdx = 0
	}
}

// View renders the monitor.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.err != nil {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}
	if m.showLogs {
		return m.renderLogs()
	}
	return m.renderMain()
}

func (m Model) renderMain() string {
	return m.renderHeader() + "\n\n" + m.renderRequests() + "\n" + m.renderFooter()
}

func (m Model) renderHeader() string {
	var active, completed, failed int
	for _, r := range m.requests {
		switch r.Phase {
		case phaseRunning:
			active++
		case phaseCompleted:
			completed++
		case phaseFailed:
			failed++
		}
	}
	return HeaderStyle.Render(
		fmt.Sprintf("Conclave Monitor - %d active - %d completed - %d failed", active, completed, failed))
}

func (m Model) renderRequests() string {
	if len(m.requests) == 0 {
		return WaitingStyle.Render("  waiting for requests...") + "\n"
	}

	var b strings.Builder
	for i, r := range m.requests {
		style := RowStyle
		if i == m.selectedIdx {
			style = SelectedRowStyle
		}

		line := fmt.Sprintf("%s %s %-9s %s", m.requestIcon(r), shortID(r.ID), r.Mode, m.elapsed(r))
		if r.Method != "" {
			line += fmt.Sprintf("  %.0f%% %s %s", r.Confidence*100, r.Method, thresholdWord(r.ThresholdMet))
		}
		if r.Err != "" {
			line += "  " + truncateText(r.Err, 48)
		}
		b.WriteString(style.Render(line) + "\n")

		if i == m.selectedIdx {
			for _, ex := range r.Experts {
				b.WriteString(ExpertRowStyle.Render(m.renderExpert(r, ex)) + "\n")
			}
		}
	}
	return b.String()
}

func (m Model) renderExpert(r *RequestView, ex *ExpertView) string {
	detail := fmt.Sprintf("%s %-14s", m.expertIcon(r, ex), ex.ID)
	switch {
	case ex.Failed:
		detail += " " + truncateText(ex.Reason, 40)
	case ex.Done:
		detail += fmt.Sprintf(" confidence %.2f  %dms", ex.Confidence, ex.LatencyMs)
	}
	return detail
}

func (m Model) renderFooter() string {
	footer := "q: quit | j/k: navigate | l: logs | c: clear finished"
	if m.dropped > 0 {
		footer += fmt.Sprintf(" | %d dropped", m.dropped)
	}
	footer += fmt.Sprintf(" | %d goroutines | heap %.1fMB | up %s",
		m.stats.Goroutines, m.stats.HeapAllocMB, formatDuration(m.stats.Uptime))
	return FooterStyle.Render(footer)
}

func (m Model) renderLogs() string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("Logs (press 'l' to return)") + "\n\n")

	start := 0
	if len(m.logs) > 20 {
		start = len(m.logs) - 20
	}
	for _, entry := range m.logs[start:] {
		style := LogStyle
		switch entry.Level {
		case "error":
			style = ErrorLogStyle
		case "warn":
			style = WarnLogStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("[%s] %s: %s",
			entry.Time.Format("15:04:05"), entry.Level, entry.Message)) + "\n")
	}
	return b.String()
}

func (m Model) requestIcon(r *RequestView) string {
	switch r.Phase {
	case phaseRunning:
		return m.spinner.View()
	case phaseCompleted:
		return DoneStyle.Render("✓")
	case phaseFailed:
		return FailedStyle.Render("✗")
	}
	return "?"
}

func (m Model) expertIcon(r *RequestView, ex *ExpertView) string {
	switch {
	case ex.Failed:
		return FailedStyle.Render("✗")
	case ex.Done:
		return DoneStyle.Render("✓")
	case r.Phase == phaseRunning:
		return m.spinner.View()
	}
	return WaitingStyle.Render("○")
}

// elapsed shows live duration for running requests and final latency for
// finished ones.
func (m Model) elapsed(r *RequestView) string {
	if r.Phase == phaseRunning {
		if r.StartedAt.IsZero() {
			return ""
		}
		return formatDuration(time.Since(r.StartedAt))
	}
	return fmt.Sprintf("%dms", r.LatencyMs)
}

func thresholdWord(met bool) string {
	if met {
		return "met"
	}
	return "not met"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncateText(s string, max int) string {
	if max < 8 {
		max = 8
	}
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}
