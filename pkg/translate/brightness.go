// Package translate converts property values between the voice platform's
// normalized scales and the device-native representations.
package translate

import (
	"math"

	"github.com/urmzd/homai-alexa/pkg/device"
)

// BrightnessToSlider maps a platform percentage onto the device slider range.
// Out-of-range input is clamped.
func BrightnessToSlider(percent int) int {
	p := clamp(percent, 0, 100)
	return int(math.Round(float64(p) * device.SliderMax / 100))
}

// SliderToBrightness maps a device slider position back to a percentage.
// The round trip through BrightnessToSlider is accurate to within one unit.
func SliderToBrightness(slider int) int {
	v := clamp(slider, 0, device.SliderMax)
	return int(math.Round(float64(v) * 100 / device.SliderMax))
}

// AdjustBrightness applies a signed percentage delta to a stored slider
// value and returns the resulting percentage, clamped to [0,100].
func AdjustBrightness(slider, delta int) int {
	return clamp(SliderToBrightness(slider)+delta, 0, 100)
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
