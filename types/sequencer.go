package types

// ------------------------
// Phase sequencer
// ------------------------

// Band is the duty range a phase is meant to exercise on the pump's
// PWM input characteristic (e.g. 95..100 % = stop).
type Band struct {
	Lo int `json:"lo"`
	Hi int `json:"hi"`
}

// PhaseValue is published (retained) on entry to each phase.
type PhaseValue struct {
	Phase      int            `json:"phase"` // 1-based
	Of         int            `json:"of"`
	Label      string         `json:"label"`
	Duty       int            `json:"duty"`
	Band       Band           `json:"band"`
	DurationMs uint32         `json:"duration_ms"`
	Indicator  IndicatorState `json:"indicator"`
	TSms       uint32         `json:"ts_ms"`
}

// Progress is the periodic reminder while a phase is running.
type Progress struct {
	Phase       int    `json:"phase"`
	RemainingMs uint32 `json:"remaining_ms"`
	TSms        uint32 `json:"ts_ms"`
}

// Completion is published (retained) once the last phase has finished.
type Completion struct {
	StopDuty int    `json:"stop_duty"`
	TSms     uint32 `json:"ts_ms"`
}

// ProfileInfo summarises the compiled-in sequence (retained on config topic).
type ProfileInfo struct {
	Name        string       `json:"name"`
	FrequencyHz uint32       `json:"frequency_hz"`
	StopDuty    int          `json:"stop_duty"`
	Phases      []PhaseValue `json:"phases"`
}
