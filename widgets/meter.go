package widgets

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Bar renders value (0-1) as width cells of full and empty runes. NaN
// renders as all empty.
func Bar(value float64, width int, full, empty rune) string {
	if width <= 0 {
		return ""
	}
	n := 0
	if !math.IsNaN(value) {
		n = int(math.Round(math.Max(0, math.Min(1, value)) * float64(width)))
	}
	return strings.Repeat(string(full), n) + strings.Repeat(string(empty), width-n)
}

// RenderMeter renders "label  ██████░░░░ 0.62" with the bar in color
func RenderMeter(label string, value float64, width int, color [3]uint8, full, empty rune) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(rgbToHex(color)))
	return fmt.Sprintf("%-8s %s %5.2f", label, style.Render(Bar(value, width, full, empty)), value)
}

// RenderProgress renders "label  ███░░░ 3/6" for a filling stage
func RenderProgress(label string, have, want, width int, full, empty rune) string {
	frac := 1.0
	if want > 0 {
		frac = float64(have) / float64(want)
	}
	return fmt.Sprintf("%-8s %s %d/%d", label, Bar(frac, width, full, empty), have, want)
}

// RenderLight renders a single status light
func RenderLight(on bool, onRune, offRune rune, color [3]uint8) string {
	r := offRune
	if on {
		r = onRune
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(rgbToHex(color)))
	return style.Render(string(r))
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}

func rgbToHex(c [3]uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}
