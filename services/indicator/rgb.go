package indicator

import (
	"image/color"
	"time"

	"pumptest-go/types"
	"pumptest-go/x/ramp"
)

// RGB drives a common-cathode RGB LED through three PWM channels.
type RGB struct {
	r, g, b Level
	cur     types.RGB
}

func NewRGB(r, g, b Level) *RGB { return &RGB{r: r, g: g, b: b} }

func (l *RGB) write(c types.RGB) {
	l.r.SetLevel(c.R)
	l.g.SetLevel(c.G)
	l.b.SetLevel(c.B)
	l.cur = c
}

func (l *RGB) Apply(st types.IndicatorState) { l.write(st.Color) }

func (l *RGB) Signal(st types.IndicatorState) { l.write(st.Color) }
func (l *RGB) Off()                           { l.write(types.Black) }

// Color returns the last written color.
func (l *RGB) Color() types.RGB { return l.cur }

// ColorWriter is an addressable LED strip (e.g. ws2812).
type ColorWriter interface {
	WriteColors(buf []color.RGBA) error
}

// Pixel shows the phase color on the first pixel(s) of a strip.
type Pixel struct {
	w   ColorWriter
	buf []color.RGBA
	cur types.RGB
	lit bool
}

func NewPixel(w ColorWriter, n int) *Pixel {
	if n < 1 {
		n = 1
	}
	return &Pixel{w: w, buf: make([]color.RGBA, n)}
}

func (p *Pixel) write(c types.RGB) {
	for i := range p.buf {
		p.buf[i] = color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
	}
	// A failed frame is retried on the next Apply.
	if err := p.w.WriteColors(p.buf); err != nil {
		p.lit = false
		return
	}
	p.cur, p.lit = c, true
}

// Apply skips the frame when the color is already showing; a ws2812 frame
// masks interrupts for its whole duration.
func (p *Pixel) Apply(st types.IndicatorState) {
	if p.lit && p.cur == st.Color {
		return
	}
	p.write(st.Color)
}

func (p *Pixel) Signal(st types.IndicatorState) { p.write(st.Color) }
func (p *Pixel) Off()                           { p.write(types.Black) }

// Sweep is the power-on self test for a three-channel LED: each channel is
// ramped up and back down in turn, leaving the LED dark. It blocks for about
// 6 x rampMs.
func Sweep(r, g, b Level, rampMs uint32, sleep Sleeper) {
	tick := func(d time.Duration) bool { sleep.Sleep(d); return true }
	for _, ch := range []Level{r, g, b} {
		ramp.Linear[uint8](0, 255, rampMs, 32, tick, ch.SetLevel)
		ramp.Linear[uint8](255, 0, rampMs, 32, tick, ch.SetLevel)
	}
}
