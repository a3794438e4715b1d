package widgets

import (
	"math"
	"strings"
	"testing"
)

func TestBar(t *testing.T) {
	tests := []struct {
		value float64
		width int
		want  string
	}{
		{0, 4, "...."},
		{0.5, 4, "##.."},
		{1, 4, "####"},
		{1.7, 4, "####"},
		{-0.2, 4, "...."},
		{math.NaN(), 3, "..."},
		{0.5, 0, ""},
	}
	for _, tt := range tests {
		if got := Bar(tt.value, tt.width, '#', '.'); got != tt.want {
			t.Errorf("Bar(%v, %d) = %q, want %q", tt.value, tt.width, got, tt.want)
		}
	}
}

func TestRenderProgress(t *testing.T) {
	got := RenderProgress("buffer", 3, 6, 4, '#', '.')
	if !strings.Contains(got, "##..") || !strings.HasSuffix(got, "3/6") {
		t.Errorf("RenderProgress = %q", got)
	}
}

func TestRenderKeyHelp(t *testing.T) {
	out := RenderKeyHelp([]KeySection{{Title: "keys", Keys: []KeyBinding{{"q", "quit"}}}})
	if out != "keys\n  q            quit" {
		t.Errorf("RenderKeyHelp = %q", out)
	}
}
