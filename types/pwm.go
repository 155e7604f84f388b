package types

// ------------------------
// PWM timer
// ------------------------

// TimerInfo is the report produced after the pump timer is programmed.
type TimerInfo struct {
	ClockHz   uint32  `json:"clock_hz"`
	Prescaler uint16  `json:"prescaler"`
	Top       uint16  `json:"top"`
	TargetHz  uint32  `json:"target_hz"`
	ActualHz  float64 `json:"actual_hz"`
	PeriodUs  float64 `json:"period_us"`
	Clamped   bool    `json:"clamped,omitempty"` // requested frequency was outside the timer range
}

// DutyRecord is emitted whenever the applied duty percentage changes.
type DutyRecord struct {
	Percent          int     `json:"percent"`
	Compare          uint16  `json:"compare"`
	Top              uint16  `json:"top"`
	EffectivePercent float64 `json:"effective_percent"` // compare/top
	HighUs           float64 `json:"high_us"`
	LowUs            float64 `json:"low_us"`
	Volts            float64 `json:"volts"` // expected mean output voltage
}
