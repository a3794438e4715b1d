package theme

import (
	"strings"
	"testing"
)

const gpl = `GIMP Palette
Name: two tone
Columns: 2
# comment
  0   0   0	black
255 255 255	white
300 0 0	out of range
`

func TestParseGPL(t *testing.T) {
	p, err := ParseGPL(strings.NewReader(gpl))
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "two tone" || len(p.Colors) != 2 {
		t.Fatalf("palette = %+v", p)
	}
	if _, err := ParseGPL(strings.NewReader("GIMP Palette\n")); err == nil {
		t.Error("empty palette accepted")
	}
}

func TestLookup(t *testing.T) {
	p := &Palette{Colors: []RGB{{0, 0, 0}, {200, 100, 50}}}
	tests := []struct {
		norm float64
		want RGB
	}{
		{-1, RGB{0, 0, 0}},
		{0, RGB{0, 0, 0}},
		{0.5, RGB{100, 50, 25}},
		{1, RGB{200, 100, 50}},
		{2, RGB{200, 100, 50}},
	}
	for _, tt := range tests {
		if got := p.Lookup(tt.norm); got != tt.want {
			t.Errorf("Lookup(%v) = %v, want %v", tt.norm, got, tt.want)
		}
	}
}

func TestDefaults(t *testing.T) {
	p, err := LoadOrDefault("")
	if err != nil || p != Plasma {
		t.Fatalf("LoadOrDefault(\"\") = %v, %v", p, err)
	}
	th := New(nil)
	if th.Palette != Plasma {
		t.Error("New(nil) did not use the built-in palette")
	}
	if got := Hex(RGB{255, 8, 16}); got != "#ff0810" {
		t.Errorf("Hex = %q", got)
	}
	if th.Success() != "#f0f921" {
		t.Errorf("Success = %q", th.Success())
	}
}
