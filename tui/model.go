package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-neuromusic/affect"
	"go-neuromusic/debug"
	"go-neuromusic/sequencer"
	"go-neuromusic/source"
	"go-neuromusic/theme"
	"go-neuromusic/widgets"
)

const barWidth = 24

// PipelineView is the sampling side as seen by the console.
type PipelineView interface {
	Status() affect.Status
	Cell() *affect.Cell
}

// DispatchView is the musical side as seen by the console.
type DispatchView interface {
	Status() sequencer.DispatchStatus
}

// OutboxView reports outbound traffic.
type OutboxView interface {
	Stats() sequencer.OutboxStats
}

type Model struct {
	Pipeline PipelineView
	Dispatch DispatchView
	Outbox   OutboxView
	Updates  <-chan struct{} // generation notifications, may be nil
	Theme    *theme.Theme
	Source   source.Info
	Sink     string
	Refresh  time.Duration

	quitting bool
}

type TickMsg time.Time

type UpdateMsg struct{}

func NewModel(p PipelineView, d DispatchView, o OutboxView, th *theme.Theme) Model {
	if th == nil {
		th = theme.New(nil)
	}
	return Model{
		Pipeline: p,
		Dispatch: d,
		Outbox:   o,
		Theme:    th,
		Refresh:  100 * time.Millisecond,
	}
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func ListenForUpdates(updates <-chan struct{}) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		<-updates
		return UpdateMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tick(m.Refresh),
		ListenForUpdates(m.Updates),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "d":
			if debug.Enabled() {
				debug.Disable()
			} else {
				debug.Enable()
			}
		}

	case TickMsg:
		return m, tick(m.Refresh)

	case UpdateMsg:
		return m, ListenForUpdates(m.Updates)
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	th := m.Theme
	sym := th.Symbols
	headerStyle := lipgloss.NewStyle().Foreground(th.Accent())
	sectionStyle := lipgloss.NewStyle().Foreground(th.FG()).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())
	warnStyle := lipgloss.NewStyle().Foreground(th.Warning())

	ds := m.Dispatch.Status()
	ps := m.Pipeline.Status()

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(headerStyle.Render(fmt.Sprintf("go-neuromusic  %s %.0fHz x%d  -> %s  %s",
		m.Source.Name, m.Source.SampleRate, m.Source.Channels, m.Sink, strings.ToUpper(ds.State.String()))))
	out.WriteString("\n\n")

	// Sampling side
	out.WriteString(sectionStyle.Render("signal"))
	out.WriteString("\n")
	out.WriteString("  " + widgets.RenderProgress("buffer", ps.BufferFilled, ps.BufferRows, barWidth, sym.BarFull, sym.BarEmpty))
	out.WriteString("\n")
	out.WriteString("  " + widgets.RenderProgress("scaler", ps.ScalerFill, ps.ScalerWindow, barWidth, sym.BarFull, sym.BarEmpty))
	out.WriteString("\n")
	out.WriteString(fmt.Sprintf("  %-8s %s", "smoother", widgets.RenderLight(ps.SmootherReady, sym.On, sym.Off, th.RGB(1))))
	out.WriteString("\n")
	out.WriteString(dimStyle.Render(fmt.Sprintf("  ticks %d  published %d  skipped %d  timeouts %d",
		ps.Ticks, ps.Published, ps.Skipped, ps.Timeouts)))
	out.WriteString("\n")
	if ps.LastErr != "" {
		out.WriteString(warnStyle.Render("  " + ps.LastErr))
		out.WriteString("\n")
	}
	out.WriteString("\n")

	// Metrics
	out.WriteString(sectionStyle.Render("affect"))
	out.WriteString("\n")
	if snap, ok := m.Pipeline.Cell().Load(); ok {
		v, a := snap.Metrics.Valence, snap.Metrics.Arousal
		out.WriteString("  " + widgets.RenderMeter("valence", v, barWidth, th.RGB(v), sym.BarFull, sym.BarEmpty))
		out.WriteString(dimStyle.Render(fmt.Sprintf("  raw %.3f", snap.Raw.Valence)))
		out.WriteString("\n")
		out.WriteString("  " + widgets.RenderMeter("arousal", a, barWidth, th.RGB(a), sym.BarFull, sym.BarEmpty))
		out.WriteString(dimStyle.Render(fmt.Sprintf("  raw %.3f", snap.Raw.Arousal)))
		out.WriteString("\n")
		b := snap.Bands
		out.WriteString(dimStyle.Render(fmt.Sprintf("  log10 power  delta %.2f  theta %.2f  alpha %.2f  beta %.2f  (#%d)",
			b[0], b[1], b[2], b[3], snap.Version)))
		out.WriteString("\n")
	} else {
		out.WriteString(dimStyle.Render("  warming up, using 0.50/0.50"))
		out.WriteString("\n")
	}
	out.WriteString("\n")

	// Musical side
	out.WriteString(sectionStyle.Render("music"))
	out.WriteString("\n")
	out.WriteString(fmt.Sprintf("  beat %-4d generations %-4d tonic %-2s mode %s\n",
		ds.Beat, ds.Generations, ds.Tonic, orDash(ds.Mode)))
	if ds.Generations > 0 {
		out.WriteString(fmt.Sprintf("  %c start %d  chord %v  arp %d notes  vel %d  tempo %.0f\n",
			sym.Beat, ds.Start, ds.Chord, ds.Arpeggio, ds.Velocity, sequencer.Tempo(ds.Metrics.Arousal)))
	}
	out.WriteString("\n")

	if m.Outbox != nil {
		st := m.Outbox.Stats()
		line := fmt.Sprintf("  outbox sent %d  failed %d  dropped %d  pending %d", st.Sent, st.Failed, st.Dropped, st.Pending)
		if st.Failed > 0 || st.Dropped > 0 {
			out.WriteString(warnStyle.Render(line))
		} else {
			out.WriteString(dimStyle.Render(line))
		}
		out.WriteString("\n\n")
	}

	logState := "off"
	if debug.Enabled() {
		logState = "on"
	}
	out.WriteString(dimStyle.Render(fmt.Sprintf("d:debug log (%s)  q:quit", logState)))

	return out.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
