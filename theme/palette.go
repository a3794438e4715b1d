package theme

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

type RGB [3]uint8

type Palette struct {
	Name   string
	Colors []RGB
}

// Plasma is the built-in palette, dark purple through magenta and orange to
// yellow.
var Plasma = &Palette{
	Name: "plasma",
	Colors: []RGB{
		{13, 8, 135},
		{65, 4, 157},
		{106, 0, 168},
		{143, 13, 164},
		{177, 42, 144},
		{204, 71, 120},
		{225, 100, 98},
		{242, 132, 75},
		{252, 166, 54},
		{252, 206, 37},
		{240, 249, 33},
	},
}

// LoadOrDefault reads the GIMP palette at path, or returns Plasma when
// path is empty.
func LoadOrDefault(path string) (*Palette, error) {
	if path == "" {
		return Plasma, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := ParseGPL(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ParseGPL reads GIMP palette text. Rows that are not three 0-255 values
// followed by an optional label are ignored.
func ParseGPL(r io.Reader) (*Palette, error) {
	p := &Palette{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if name, ok := strings.CutPrefix(line, "Name:"); ok {
			p.Name = strings.TrimSpace(name)
			continue
		}
		if c, ok := parseRow(line); ok {
			p.Colors = append(p.Colors, c)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(p.Colors) == 0 {
		return nil, errors.New("no colors in palette")
	}
	return p, nil
}

func parseRow(line string) (RGB, bool) {
	var c RGB
	f := strings.Fields(line)
	if len(f) < 3 {
		return c, false
	}
	for i := range c {
		v, err := strconv.ParseUint(f[i], 10, 8)
		if err != nil {
			return c, false
		}
		c[i] = uint8(v)
	}
	return c, true
}

// Lookup interpolates between neighbouring colors; norm is clamped to [0, 1]
// and NaN maps to the first color.
func (p *Palette) Lookup(norm float64) RGB {
	last := len(p.Colors) - 1
	switch {
	case norm <= 0 || math.IsNaN(norm):
		return p.Colors[0]
	case norm >= 1 || last == 0:
		return p.Colors[last]
	}
	i, frac := math.Modf(norm * float64(last))
	a, b := p.Colors[int(i)], p.Colors[int(i)+1]
	var c RGB
	for k := range c {
		c[k] = uint8(float64(a[k])*(1-frac) + float64(b[k])*frac)
	}
	return c
}
