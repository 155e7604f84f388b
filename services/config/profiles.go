package config

import (
	"pumptest-go/services/sequencer"
	"pumptest-go/types"
)

// Names of the compiled-in profiles.
const (
	NameBlink = "blink"
	NameRGB   = "rgb"
)

const (
	pumpHz      = 500
	stopDuty    = 98
	supplyMv    = 5000
	remindMs    = 2000
	blinkTickMs = 50
	rgbTickMs   = 100
)

// Speed bands of the pump's PWM input profile.
var (
	bandStop = types.Band{Lo: 95, Hi: 100}
	bandMid  = types.Band{Lo: 11, Hi: 84}
	bandMax  = types.Band{Lo: 1, Hi: 10}
)

// Blink is the single-LED variant: four 10 s phases reported as 1..4 blinks,
// repeated every two seconds.
func Blink() sequencer.Profile {
	return sequencer.Profile{
		Name:             NameBlink,
		FrequencyHz:      pumpHz,
		StopPercent:      stopDuty,
		ThrottleMs:       blinkTickMs,
		StatusIntervalMs: remindMs,
		SupplyMv:         supplyMv,
		Phases: []sequencer.PhaseDefinition{
			{DurationMs: 10000, DutyPercent: 98, Label: "stop", Band: bandStop, Indicator: types.IndicatorState{Blinks: 1}},
			{DurationMs: 10000, DutyPercent: 70, Label: "medium", Band: bandMid, Indicator: types.IndicatorState{Blinks: 2}},
			{DurationMs: 10000, DutyPercent: 33, Label: "high", Band: bandMid, Indicator: types.IndicatorState{Blinks: 3}},
			{DurationMs: 10000, DutyPercent: 5, Label: "max", Band: bandMax, Indicator: types.IndicatorState{Blinks: 4}},
		},
	}
}

// RGB is the color LED variant.
func RGB() sequencer.Profile {
	return sequencer.Profile{
		Name:        NameRGB,
		FrequencyHz: pumpHz,
		StopPercent: stopDuty,
		ThrottleMs:  rgbTickMs,
		SupplyMv:    supplyMv,
		Phases: []sequencer.PhaseDefinition{
			{DurationMs: 20000, DutyPercent: 98, Label: "stop", Band: bandStop, Indicator: types.IndicatorState{Color: types.Red}},
			{DurationMs: 20000, DutyPercent: 33, Label: "high", Band: bandMid, Indicator: types.IndicatorState{Color: types.Green}},
			{DurationMs: 20000, DutyPercent: 50, Label: "medium", Band: bandMid, Indicator: types.IndicatorState{Color: types.Blue}},
			{DurationMs: 7000, DutyPercent: 5, Label: "max", Band: bandMax, Indicator: types.IndicatorState{Color: types.White}},
		},
	}
}

var profiles = map[string]func() sequencer.Profile{
	NameBlink: Blink,
	NameRGB:   RGB,
}

// Names lists the compiled-in profiles in a stable order.
func Names() []string { return []string{NameBlink, NameRGB} }
