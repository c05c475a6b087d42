package translate

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidColor indicates a device color string is not 6 hex digits.
var ErrInvalidColor = errors.New("invalid color")

// HSV is a platform color: hue in degrees [0,360), saturation and brightness in [0,1].
type HSV struct {
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Brightness float64 `json:"brightness"`
}

// HSVToHex converts a platform color to the 6-digit lowercase hex string the
// devices expect (no leading '#'). Hue is rounded to an integer degree and
// saturation and brightness pass through a whole-percent scale first,
// matching what the firmware reports back.
func HSVToHex(c HSV) string {
	hue := math.Mod(math.Round(c.Hue), 360)
	if hue < 0 {
		hue += 360
	}
	sat := percent(c.Saturation) / 100
	bri := percent(c.Brightness) / 100

	hex := colorful.Hsv(hue, sat, bri).Clamped().Hex()
	return strings.TrimPrefix(hex, "#")
}

// HexToHSV parses a device color (with or without '#') into a platform color.
// Hue is rounded to an integer degree and saturation/brightness to whole percents.
func HexToHSV(s string) (HSV, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if len(s) != 7 {
		return HSV{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	c, err := colorful.Hex(strings.ToLower(s))
	if err != nil {
		return HSV{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	h, sat, v := c.Hsv()
	hue := math.Mod(math.Round(h), 360)
	return HSV{
		Hue:        hue,
		Saturation: percent(sat) / 100,
		Brightness: percent(v) / 100,
	}, nil
}

// NormalizeHex returns the canonical 6-digit lowercase form of a device color.
func NormalizeHex(s string) (string, error) {
	if _, err := HexToHSV(s); err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "#")), nil
}

func percent(unit float64) float64 {
	p := math.Round(unit * 100)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
