// Package color converts between RGB and the bridge's hue/saturation/brightness scale.
package color

import (
	"math"

	"github.com/upb/hue-gateway/hue"
)

// Bridge scale limits
const (
	MaxHue        = 65535
	MaxSaturation = 254
	MaxBrightness = 254
)

// HSB is a colour on the bridge's scale
type HSB struct {
	Hue        int // 0-65535
	Saturation int // 0-254
	Brightness int // 0-254
}

// RGB is an 8-bit colour
type RGB struct {
	R, G, B int
}

// RGBToHSB converts 0-255 channels to the bridge scale. Results are truncated,
// not rounded.
func RGBToHSB(c RGB) HSB {
	r := float64(clamp(c.R, 0, 255)) / 255
	g := float64(clamp(c.G, 0, 255)) / 255
	b := float64(clamp(c.B, 0, 255)) / 255

	h, s, v := rgbToHSV(r, g, b)
	return HSB{
		Hue:        int(h * MaxHue),
		Saturation: int(s * MaxSaturation),
		Brightness: int(v * MaxBrightness),
	}
}

// HSBToRGB converts a bridge colour back to 0-255 channels
func HSBToRGB(c HSB) RGB {
	h := float64(clamp(c.Hue, 0, MaxHue)) / MaxHue
	s := float64(clamp(c.Saturation, 0, MaxSaturation)) / MaxSaturation
	v := float64(clamp(c.Brightness, 0, MaxBrightness)) / MaxBrightness

	r, g, b := hsvToRGB(h, s, v)
	return RGB{R: int(r * 255), G: int(g * 255), B: int(b * 255)}
}

// StateFromRGB builds a light state that sets colour and power together
func StateFromRGB(c RGB, on bool) hue.LightState {
	hsb := RGBToHSB(c)
	return hue.LightState{
		On:  hue.Bool(on),
		Hue: hue.Int(hsb.Hue),
		Sat: hue.Int(hsb.Saturation),
		Bri: hue.Int(hsb.Brightness),
	}
}

// rgbToHSV takes and returns components in [0,1]
func rgbToHSV(r, g, b float64) (h, s, v float64) {
	maxc := math.Max(r, math.Max(g, b))
	minc := math.Min(r, math.Min(g, b))
	v = maxc
	if maxc == minc {
		return 0, 0, v
	}
	delta := maxc - minc
	s = delta / maxc

	rc := (maxc - r) / delta
	gc := (maxc - g) / delta
	bc := (maxc - b) / delta
	switch {
	case r == maxc:
		h = bc - gc
	case g == maxc:
		h = 2 + rc - bc
	default:
		h = 4 + gc - rc
	}
	h = math.Mod(h/6, 1)
	if h < 0 {
		h++
	}
	return h, s, v
}

func hsvToRGB(h, s, v float64) (r, g, b float64) {
	if s == 0 {
		return v, v, v
	}
	i := math.Floor(h * 6)
	f := h*6 - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	switch int(i) % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
