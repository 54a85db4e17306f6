package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RequestStartedMsg signals that a request entered dispatch.
type RequestStartedMsg struct {
	ID        string
	SessionID string
	Mode      string
	Experts   []string
	Time      time.Time
}

// ExpertUpdateMsg signals that an expert responded or failed.
type ExpertUpdateMsg struct {
	RequestID  string
	ExpertID   string
	Failed     bool
	Confidence float64
	LatencyMs  int64
	Reason     string
}

// ConsensusMsg annotates a request with its resolution summary.
type ConsensusMsg struct {
	RequestID     string
	Method        string
	Confidence    float64
	ThresholdMet  bool
	Disagreements int
}

// RequestFinishedMsg signals that a request completed or failed.
type RequestFinishedMsg struct {
	ID           string
	Mode         string
	Method       string
	Failed       bool
	Confidence   float64
	ThresholdMet bool
	Contributing int
	Omitted      int
	LatencyMs    int64
	Error        string
}

// LogMsg adds a log entry.
type LogMsg struct {
	Time    time.Time
	Level   string
	Message string
}

// DroppedEventsMsg reports the bus drop counter.
type DroppedEventsMsg struct {
	Count int64
}

// StatsTickMsg triggers a process stats refresh.
type StatsTickMsg time.Time

// ErrorMsg signals a monitor-level error.
type ErrorMsg struct {
	Error error
}

const statsInterval = 2 * time.Second

// waitForBusMsg reads the next message from the bus adapter. Each handled
// message re-arms the wait.
func waitForBusMsg(a *BusAdapter) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-a.Messages()
		if !ok {
			return nil
		}
		return msg
	}
}

func statsTick() tea.Cmd {
	return tea.Tick(statsInterval, func(t time.Time) tea.Msg {
		return StatsTickMsg(t)
	})
}
