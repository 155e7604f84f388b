package types

// ------------------------
// Status indicator
// ------------------------

// RGB is an 8-bit per channel color.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

var (
	Black = RGB{}
	Red   = RGB{R: 255}
	Green = RGB{G: 255}
	Blue  = RGB{B: 255}
	White = RGB{R: 255, G: 255, B: 255}
)

// IndicatorState is the per-phase token handed to the indicator driver.
// Blink drivers read Blinks, color drivers read Color.
type IndicatorState struct {
	Blinks int `json:"blinks,omitempty"`
	Color  RGB `json:"color"`
}
