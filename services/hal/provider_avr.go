//go:build tinygo && atmega328p

package hal

import (
	"device/avr"
	"machine"
	"runtime/volatile"

	"pumptest-go/errcode"
	"pumptest-go/services/indicator"
	"pumptest-go/services/pwm"
	"pumptest-go/x/timex"
)

// Arduino Uno wiring.
const (
	pumpPin  = machine.D9  // OC1A
	bluePin  = machine.D10 // OC1B, shares the Timer1 period
	redPin   = machine.D11 // OC2A
	greenPin = machine.D3  // OC2B
	ledPin   = machine.D13
)

// timer1 drives OC1A (and optionally OC1B) in fast PWM mode 14: TOP in
// ICR1, non-inverting output, count from 0 to TOP.
type timer1 struct {
	top  uint16
	ocrB bool
}

func csBits(prescaler uint16) (uint8, bool) {
	switch prescaler {
	case 1:
		return avr.TCCR1B_CS10, true
	case 8:
		return avr.TCCR1B_CS11, true
	case 64:
		return avr.TCCR1B_CS11 | avr.TCCR1B_CS10, true
	case 256:
		return avr.TCCR1B_CS12, true
	case 1024:
		return avr.TCCR1B_CS12 | avr.TCCR1B_CS10, true
	}
	return 0, false
}

func (t *timer1) ConfigureFastPWM(prescaler, top uint16) error {
	cs, ok := csBits(prescaler)
	if !ok {
		return errcode.Wrap(errcode.Unsupported, "timer1.ConfigureFastPWM", "prescaler")
	}
	pumpPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	// Stop and reset before reprogramming.
	avr.TCCR1A.Set(0)
	avr.TCCR1B.Set(0)
	write16(avr.TCNT1H, avr.TCNT1L, 0)
	write16(avr.OCR1AH, avr.OCR1AL, 0)

	a := uint8(avr.TCCR1A_COM1A1 | avr.TCCR1A_WGM11)
	if t.ocrB {
		a |= avr.TCCR1A_COM1B1
	}
	avr.TCCR1A.Set(a)
	write16(avr.ICR1H, avr.ICR1L, top)
	avr.TCCR1B.Set(avr.TCCR1B_WGM13 | avr.TCCR1B_WGM12 | cs)
	t.top = top
	return nil
}

func (t *timer1) SetCompare(c uint16) { write16(avr.OCR1AH, avr.OCR1AL, c) }

// 16-bit registers latch on the low byte; write high first.
func write16(hi, lo *volatile.Register8, v uint16) {
	hi.Set(uint8(v >> 8))
	lo.Set(uint8(v))
}

// ocr1b maps an 8-bit level onto the Timer1 period.
type ocr1b struct{ t *timer1 }

func (o ocr1b) SetLevel(v uint8) {
	write16(avr.OCR1BH, avr.OCR1BL, uint16(uint32(v)*uint32(o.t.top)/255))
}

// timer2Level is one Timer2 channel; Timer2 is 8 bit so levels map directly.
type timer2Level struct{ ch uint8 }

func (l timer2Level) SetLevel(v uint8) {
	machine.Timer2.Set(l.ch, uint32(v)*machine.Timer2.Top()/255)
}

type avrPin struct{ p machine.Pin }

func (a avrPin) Set(on bool) { a.p.Set(on) }

func Open() (*Platform, error) {
	machine.Serial.Configure(machine.UARTConfig{BaudRate: 115200})

	led := ledPin
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	led.Low()

	t1 := &timer1{ocrB: true}
	bluePin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	p := &Platform{
		Name:    "atmega328p",
		Spec:    pwm.Uno16MHz,
		Pump:    t1,
		LED:     avrPin{led},
		Console: machine.Serial,
		Clock:   timex.NewMono(),
		Lean:    true,
	}

	if err := machine.Timer2.Configure(machine.PWMConfig{}); err != nil {
		return p, err
	}
	r, errR := machine.Timer2.Channel(redPin)
	g, errG := machine.Timer2.Channel(greenPin)
	if errR != nil || errG != nil {
		return p, errcode.Wrap(errcode.UnknownPin, "hal.Open", "timer2 channel")
	}
	p.RGB = &[3]indicator.Level{timer2Level{r}, timer2Level{g}, ocr1b{t1}}
	return p, nil
}
