package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseType(t *testing.T) {
	cases := map[string]Type{
		"Switch":         TypeSwitch,
		"Fan":            TypeFan,
		"Dimmable light": TypeDimmableLight,
		"dimmable_light": TypeDimmableLight,
		"RGB":            TypeRGB,
		"rgb":            TypeRGB,
		"toaster":        TypeSwitch,
		"":               TypeSwitch,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseType(in), in)
	}
}

func TestTypeCapabilities(t *testing.T) {
	tests := []struct {
		typ        Type
		brightness bool
		color      bool
		category   string
	}{
		{TypeSwitch, false, false, CategorySwitch},
		{TypeFan, true, false, CategorySwitch},
		{TypeDimmableLight, true, false, CategoryLight},
		{TypeRGB, false, true, CategoryLight},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.brightness, tt.typ.SupportsBrightness())
			assert.Equal(t, tt.color, tt.typ.SupportsColor())
			assert.Equal(t, tt.category, tt.typ.DisplayCategory())
			assert.False(t, tt.typ.SupportsBrightness() && tt.typ.SupportsColor())
		})
	}
}
