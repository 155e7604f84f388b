// Package telemetry carries diagnostic records from the control loop to
// observers. Emission never blocks and never feeds back into actuation.
package telemetry

import "pumptest-go/bus"

// Well-known topics.
var (
	TopicProfile   = bus.T("config", "sequencer")
	TopicTimerInfo = bus.T("pwm", "pump", "info")
	TopicDuty      = bus.T("pwm", "pump", "duty")
	TopicPhase     = bus.T("sequencer", "phase")
	TopicProgress  = bus.T("sequencer", "progress")
	TopicComplete  = bus.T("sequencer", "complete")
)

// Event is a single diagnostic record.
type Event struct {
	Topic    bus.Topic
	Payload  any
	Retained bool
}

// Emitter accepts events without blocking; false indicates a drop.
type Emitter interface {
	Emit(ev Event) bool
}

// BusEmitter publishes events on a bus connection.
type BusEmitter struct{ conn *bus.Connection }

func NewBusEmitter(conn *bus.Connection) *BusEmitter { return &BusEmitter{conn: conn} }

func (e *BusEmitter) Emit(ev Event) bool {
	e.conn.Publish(e.conn.NewMessage(ev.Topic, ev.Payload, ev.Retained))
	return true
}

// Discard drops everything.
type Discard struct{}

func (Discard) Emit(Event) bool { return true }
