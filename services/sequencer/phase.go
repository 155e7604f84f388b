package sequencer

import "pumptest-go/types"

// PhaseDefinition is one fixed-duration step of the test.
type PhaseDefinition struct {
	DurationMs  uint32
	DutyPercent int
	Indicator   types.IndicatorState
	Label       string
	Band        types.Band
}

// Profile is a complete compiled-in test sequence.
type Profile struct {
	Name             string
	FrequencyHz      uint32
	StopPercent      int    // duty that holds the pump stopped
	ThrottleMs       uint32 // pause between loop ticks
	StatusIntervalMs uint32 // reminder cadence; 0 disables reminders
	SupplyMv         uint32
	Phases           []PhaseDefinition
}

// TotalMs is the sum of all phase durations.
func (p Profile) TotalMs() uint64 {
	var sum uint64
	for _, ph := range p.Phases {
		sum += uint64(ph.DurationMs)
	}
	return sum
}

// Info summarises the profile for observers.
func (p Profile) Info() types.ProfileInfo {
	out := types.ProfileInfo{
		Name:        p.Name,
		FrequencyHz: p.FrequencyHz,
		StopDuty:    p.StopPercent,
		Phases:      make([]types.PhaseValue, len(p.Phases)),
	}
	for i := range p.Phases {
		out.Phases[i] = p.phaseValue(i, 0)
	}
	return out
}

func (p Profile) phaseValue(i int, now uint32) types.PhaseValue {
	ph := p.Phases[i]
	return types.PhaseValue{
		Phase:      i + 1,
		Of:         len(p.Phases),
		Label:      ph.Label,
		Duty:       ph.DutyPercent,
		Band:       ph.Band,
		DurationMs: ph.DurationMs,
		Indicator:  ph.Indicator,
		TSms:       now,
	}
}
