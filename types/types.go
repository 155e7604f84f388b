package types

// Kind tags diagnostic records by the component they describe.
type Kind string

const (
	KindPWM       Kind = "pwm"
	KindIndicator Kind = "indicator"
	KindSequencer Kind = "sequencer"
	KindConfig    Kind = "config"
)
