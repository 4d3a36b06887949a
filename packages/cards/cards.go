package cards

import (
	"bytes"
	"fmt"

	"github.com/fogleman/gg"
)

type Style struct {
	Width, Height   float64
	Padding         float64
	BackgroundColor string
	BoxColor        string
	TextColor       string
	ConfettiColors  []string
}

var DefaultStyle = Style{
	Width:           480,
	Height:          240,
	Padding:         24,
	BackgroundColor: "#36393f",
	BoxColor:        "#ffffff",
	TextColor:       "#000000",
	ConfettiColors:  []string{"#f94144", "#f8961e", "#f9c74f", "#90be6d", "#577590"},
}

// Confetti is placed on a fixed grid so the same name always renders the same card.
func drawConfetti(dc *gg.Context, style Style) {
	if len(style.ConfettiColors) == 0 {
		return
	}

	step := style.Padding
	i := 0
	for y := step / 2; y < style.Height; y += step {
		for x := step / 2; x < style.Width; x += step {
			if (int(x)+int(y))%3 != 0 {
				continue
			}
			dc.DrawCircle(x, y, 2.5)
			dc.SetHexColor(style.ConfettiColors[i%len(style.ConfettiColors)])
			dc.Fill()
			i++
		}
	}
}

func drawBox(dc *gg.Context, style Style, lines ...string) {
	x, y := style.Padding*2, style.Padding*2
	w, h := style.Width-style.Padding*4, style.Height-style.Padding*4
	radius := ((w + h) / 2) / 12

	// Background
	dc.DrawRoundedRectangle(x, y, w, h, radius)
	dc.SetHexColor(style.BoxColor)
	dc.Fill()

	// Border
	dc.DrawRoundedRectangle(x, y, w, h, radius)
	dc.SetHexColor(style.TextColor)
	dc.SetLineWidth(2)
	dc.Stroke()

	fontPaddingX := 5.0
	lineHeight := dc.FontHeight() * 1.5
	top := y + h/2 - lineHeight*float64(len(lines)-1)/2

	dc.SetHexColor(style.TextColor)
	for i, line := range lines {
		dc.DrawStringWrapped(line, x+w/2, top+lineHeight*float64(i), 0.5, 0.5, w-fontPaddingX, 1.0, gg.AlignCenter)
	}
}

// DrawBirthdayCard renders a PNG card greeting fullName.
func DrawBirthdayCard(fullName, date string, style Style) ([]byte, error) {
	if style.Width <= style.Padding*4 || style.Height <= style.Padding*4 {
		return nil, fmt.Errorf("card of %vx%v leaves no room inside padding %v", style.Width, style.Height, style.Padding)
	}

	dc := gg.NewContext(int(style.Width), int(style.Height))

	dc.SetHexColor(style.BackgroundColor)
	dc.Clear()

	drawConfetti(dc, style)

	lines := []string{"Happy birthday,", fullName + "!"}
	if date != "" {
		lines = append(lines, date)
	}
	drawBox(dc, style, lines...)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode card: %w", err)
	}
	return buf.Bytes(), nil
}

// Renderer adapts DrawBirthdayCard to the scan's card hook.
type Renderer struct {
	Style Style
}

func (r Renderer) Render(fullName, date string) ([]byte, error) {
	return DrawBirthdayCard(fullName, date, r.Style)
}
