package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/tabgrid/internal/types"
)

// paletteColors maps group color names to terminal colors.
var paletteColors = map[string]lipgloss.Color{
	"grey":   lipgloss.Color("245"),
	"blue":   lipgloss.Color("33"),
	"red":    lipgloss.Color("196"),
	"yellow": lipgloss.Color("220"),
	"green":  lipgloss.Color("40"),
	"pink":   lipgloss.Color("205"),
	"purple": lipgloss.Color("99"),
	"cyan":   lipgloss.Color("51"),
	"orange": lipgloss.Color("208"),
}

// swatch renders a two-cell color block for a palette index, or blanks
// for NoColor.
func swatch(colorID int) string {
	c, ok := paletteColors[types.ColorName(colorID)]
	if !ok {
		return "  "
	}
	return lipgloss.NewStyle().Foreground(c).Render("██")
}

// nextColor cycles through the palette; NoColor starts at the first color.
func nextColor(colorID int) int {
	if colorID < 0 {
		return 0
	}
	return (colorID + 1) % len(types.Palette)
}
