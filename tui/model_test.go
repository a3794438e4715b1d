package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"go-neuromusic/affect"
	"go-neuromusic/dsp"
	"go-neuromusic/sequencer"
	"go-neuromusic/source"
	"go-neuromusic/theory"
)

type fakePipeline struct {
	status affect.Status
	cell   affect.Cell
}

func (f *fakePipeline) Status() affect.Status { return f.status }
func (f *fakePipeline) Cell() *affect.Cell    { return &f.cell }

type fakeDispatch struct{ status sequencer.DispatchStatus }

func (f fakeDispatch) Status() sequencer.DispatchStatus { return f.status }

type fakeOutbox struct{ stats sequencer.OutboxStats }

func (f fakeOutbox) Stats() sequencer.OutboxStats { return f.stats }

func newTestModel() (Model, *fakePipeline) {
	p := &fakePipeline{status: affect.Status{BufferFilled: 256, BufferRows: 1280, ScalerWindow: 100}}
	d := fakeDispatch{status: sequencer.DispatchStatus{State: sequencer.Idle, Tonic: theory.C}}
	m := NewModel(p, d, fakeOutbox{}, nil)
	m.Source = source.Info{Name: "synthetic", SampleRate: 256, Channels: 4}
	m.Sink = "osc 127.0.0.1:11000"
	return m, p
}

func TestViewWarmingUp(t *testing.T) {
	m, _ := newTestModel()
	out := m.View()
	for _, want := range []string{"synthetic 256Hz x4", "IDLE", "256/1280", "warming up", "mode -"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
}

func TestViewShowsMetrics(t *testing.T) {
	m, p := newTestModel()
	p.cell.Store(affect.Snapshot{
		Metrics: affect.Metrics{Valence: 0.25, Arousal: 0.75},
		Raw:     affect.Metrics{Valence: 0.9, Arousal: 1.4},
		Bands:   dsp.Bands{1, 2, 3, 4},
	})
	m.Dispatch = fakeDispatch{status: sequencer.DispatchStatus{
		State:       sequencer.Listening,
		Beat:        22,
		Generations: 1,
		Tonic:       theory.G,
		Mode:        "dorian",
		Chord:       []int{55, 58, 62, 65},
		Metrics:     affect.Metrics{Arousal: 1},
	}}
	m.Outbox = fakeOutbox{stats: sequencer.OutboxStats{Sent: 6, Dropped: 1}}

	out := m.View()
	for _, want := range []string{"LISTENING", "0.25", "raw 0.900", "alpha 3.00", "mode dorian", "tempo 140", "dropped 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if got := next.View(); got != "" {
		t.Errorf("view after quit = %q", got)
	}
}

func TestUpdateRelistens(t *testing.T) {
	m, _ := newTestModel()
	updates := make(chan struct{}, 1)
	m.Updates = updates
	_, cmd := m.Update(UpdateMsg{})
	if cmd == nil {
		t.Fatal("no follow-up listen command")
	}
	updates <- struct{}{}
	if _, ok := cmd().(UpdateMsg); !ok {
		t.Error("listen command did not yield UpdateMsg")
	}
}
