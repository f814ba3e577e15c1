package timeslot

import (
	"context"

	"github.com/ivrplatform/goivr/pkg/event"
	"github.com/qmuntal/stateless"
)

// Line modes of a timeslot.
const (
	IdleLine      = "Idle"
	RingingLine   = "Ringing"
	ConnectedLine = "Connected"
	HangupLine    = "Hangup"
)

const (
	ringTrigger   = "Ring"
	answerTrigger = "Answer"
	hangupTrigger = "Hangup"
	resetTrigger  = "Reset"
)

// lineTrigger maps telephony events onto line mode transitions.
func lineTrigger(id event.ID) (string, bool) {
	switch id {
	case event.RingStart, event.RingSignal, event.StartIncoming:
		return ringTrigger, true
	case event.CallAnswered, event.CallConnect, event.LineOffhook:
		return answerTrigger, true
	case event.CallRelease, event.CallDisconnect, event.StopDisconnect, event.LineOnhook, event.CallFailure:
		return hangupTrigger, true
	}
	return "", false
}

// newLineMachine builds the line mode state machine. The mode is kept by the timeslot,
// transitions run under the timeslot lock.
func newLineMachine(ts *Timeslot) *stateless.StateMachine {
	sm := stateless.NewStateMachineWithExternalStorage(func(_ context.Context) (stateless.State, error) {
		return ts.mode, nil
	}, func(_ context.Context, s stateless.State) error {
		ts.mode = s.(string)
		return nil
	}, stateless.FiringImmediate)

	enter := func(_ context.Context, _ ...interface{}) error {
		ts.logger.Debugf("Timeslot %d line mode %s", ts.id, ts.mode)
		if ts.interp != nil {
			ts.interp.Set("line.mode", ts.mode)
		}
		return nil
	}

	sm.Configure(IdleLine).
		OnEntry(enter).
		Permit(ringTrigger, RingingLine).
		Permit(answerTrigger, ConnectedLine).
		Ignore(hangupTrigger).
		Ignore(resetTrigger)

	sm.Configure(RingingLine).
		OnEntry(enter).
		Permit(answerTrigger, ConnectedLine).
		Permit(hangupTrigger, HangupLine).
		Permit(resetTrigger, IdleLine).
		Ignore(ringTrigger)

	sm.Configure(ConnectedLine).
		OnEntry(enter).
		Permit(hangupTrigger, HangupLine).
		Permit(resetTrigger, IdleLine).
		Ignore(answerTrigger).
		Ignore(ringTrigger)

	sm.Configure(HangupLine).
		OnEntry(enter).
		Permit(resetTrigger, IdleLine).
		Ignore(hangupTrigger).
		Ignore(ringTrigger)

	return sm
}
