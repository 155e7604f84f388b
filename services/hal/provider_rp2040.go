//go:build tinygo && rp2040

package hal

import (
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/hd44780i2c"
	"tinygo.org/x/drivers/ws2812"

	"pumptest-go/errcode"
	"pumptest-go/services/indicator"
	"pumptest-go/services/pwm"
	"pumptest-go/x/mathx"
	"pumptest-go/x/timex"
)

// Pico wiring.
const (
	pumpPin  = machine.GPIO15
	redPin   = machine.GPIO18
	greenPin = machine.GPIO19
	bluePin  = machine.GPIO20
	pixelPin = machine.GPIO22
	sdaPin   = machine.GPIO4
	sclPin   = machine.GPIO5
	txPin    = machine.GPIO0
	rxPin    = machine.GPIO1

	rgbHz = 1000
)

var lcdAddrs = []uint16{0x27, 0x3F}

// Local interface to avoid depending on an unexported concrete type in machine.
type pwmCtrl interface {
	Configure(cfg machine.PWMConfig) error
	Top() uint32
	Set(channel uint8, value uint32)
}

func pwmGroupBySlice(slice uint8) pwmCtrl {
	switch slice {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}

// channel is one PWM output: the pin's slice and A/B channel.
type channel struct {
	pin  machine.Pin
	ctrl pwmCtrl
	ch   uint8 // even pin => A(0), odd pin => B(1)
}

func newChannel(pin machine.Pin) (*channel, error) {
	slice, err := machine.PWMPeripheral(pin)
	if err != nil {
		return nil, errcode.Wrap(errcode.UnknownPin, "hal.newChannel", "no pwm slice")
	}
	return &channel{pin: pin, ctrl: pwmGroupBySlice(slice), ch: uint8(pin & 1)}, nil
}

func (c *channel) configure(periodNs uint64) error {
	if err := c.ctrl.Configure(machine.PWMConfig{Period: periodNs}); err != nil {
		return err
	}
	c.pin.Configure(machine.PinConfig{Mode: machine.PinPWM})
	return nil
}

// sliceTimer emulates the AVR timer contract on an RP2040 slice: the
// logical TOP sets the period through the timer spec, and logical compare
// values are scaled onto the slice's own counter range.
type sliceTimer struct {
	spec  pwm.TimerSpec
	c     *channel
	top   uint16 // logical
	hwTop uint32 // slice counter after Configure
}

func (t *sliceTimer) ConfigureFastPWM(prescaler, top uint16) error {
	top = mathx.Max(top, 1)
	counts := uint64(mathx.Max(prescaler, 1)) * (uint64(top) + 1)
	periodNs := counts * 1_000_000_000 / uint64(t.spec.ClockHz)
	if err := t.c.configure(periodNs); err != nil {
		return err
	}
	t.top, t.hwTop = top, t.c.ctrl.Top()
	t.c.ctrl.Set(t.c.ch, 0)
	return nil
}

func (t *sliceTimer) SetCompare(cmp uint16) {
	if t.top == 0 || t.hwTop == 0 {
		return
	}
	cmp = mathx.Min(cmp, t.top)
	t.c.ctrl.Set(t.c.ch, uint32(uint64(cmp)*uint64(t.hwTop)/uint64(t.top)))
}

// level is an 8-bit view of a PWM channel.
type level struct{ c *channel }

func (l level) SetLevel(v uint8) {
	l.c.ctrl.Set(l.c.ch, mathx.MulDiv(uint32(v), l.c.ctrl.Top(), 255))
}

type rp2Pin struct{ p machine.Pin }

func (r rp2Pin) Set(on bool) { r.p.Set(on) }

// Open brings up the Pico. Missing optional peripherals are left nil; the
// first such failure is returned alongside a usable platform.
func Open() (*Platform, error) {
	console := uartx.UART0
	_ = console.Configure(uartx.UARTConfig{BaudRate: 115200, TX: txPin, RX: rxPin})

	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	led.Low()

	p := &Platform{
		Name:    "rp2040",
		Spec:    pwm.Uno16MHz,
		LED:     rp2Pin{led},
		Console: console,
		Clock:   timex.NewMono(),
	}

	pc, err := newChannel(pumpPin)
	if err != nil {
		return p, err
	}
	p.Pump = &sliceTimer{spec: p.Spec, c: pc}

	var firstErr error
	keep := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	if rgb, err := openRGB(); err != nil {
		keep(err)
	} else {
		p.RGB = rgb
	}

	pixelPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	strip := ws2812.New(pixelPin)
	p.Pixel = &strip

	if lcd, err := openDisplay(); err != nil {
		keep(err)
	} else {
		p.Display = lcd
	}
	return p, firstErr
}

func openRGB() (*[3]indicator.Level, error) {
	var out [3]indicator.Level
	period := timex.PeriodFromHz(rgbHz)
	for i, pin := range []machine.Pin{redPin, greenPin, bluePin} {
		c, err := newChannel(pin)
		if err != nil {
			return nil, err
		}
		if err := c.configure(period); err != nil {
			return nil, err
		}
		out[i] = level{c}
	}
	return &out, nil
}

func openDisplay() (*hd44780i2c.Device, error) {
	hw := machine.I2C0
	if err := hw.Configure(machine.I2CConfig{SDA: sdaPin, SCL: sclPin, Frequency: 100_000}); err != nil {
		return nil, err
	}
	var bus drivers.I2C = hw

	probe := make([]byte, 1)
	for _, a := range lcdAddrs {
		if bus.Tx(a, nil, probe) != nil {
			continue
		}
		dev := hd44780i2c.New(bus, uint8(a))
		dev.Configure(hd44780i2c.Config{Width: 16, Height: 2})
		return &dev, nil
	}
	return nil, errcode.Wrap(errcode.NoDevice, "hal.openDisplay", "no lcd at 0x27/0x3f")
}
