// Package event defines the telephony events delivered to running call scripts.
package event

import (
	"strconv"

	"github.com/stoewer/go-strcase"
)

type ID int

const (
	EnterState ID = iota + 100
	ExitState
	AttachScript
	DetachScript
	StartScript
	StopScript
	StartOutgoing
	StartIncoming
	TimerExpired
	TimerSync
	SignalText
	SignalDigits
	ResumeScript
)

const (
	RingStart ID = iota + 200
	RingStop
	RingSignal
	StopDisconnect
	StopFailed
	LineOffhook
	LineOnhook
)

const (
	CallConnect ID = iota + 600
	CallAnswered
	CallRelease
	CallDisconnect
	CallFailure
	CallHold
	CallNohold
)

const (
	DTMFKeyDown ID = iota + 700
	DTMFKeyUp
	DTMFSync
	ToneStart
	ToneStop
	ToneSync
	AudioIdle
	AudioActive
)

var names = map[ID]string{
	EnterState:     "EnterState",
	ExitState:      "ExitState",
	AttachScript:   "AttachScript",
	DetachScript:   "DetachScript",
	StartScript:    "StartScript",
	StopScript:     "StopScript",
	StartOutgoing:  "StartOutgoing",
	StartIncoming:  "StartIncoming",
	TimerExpired:   "TimerExpired",
	TimerSync:      "TimerSync",
	SignalText:     "SignalText",
	SignalDigits:   "SignalDigits",
	ResumeScript:   "ResumeScript",
	RingStart:      "RingStart",
	RingStop:       "RingStop",
	RingSignal:     "RingSignal",
	StopDisconnect: "StopDisconnect",
	StopFailed:     "StopFailed",
	LineOffhook:    "LineOffhook",
	LineOnhook:     "LineOnhook",
	CallConnect:    "CallConnect",
	CallAnswered:   "CallAnswered",
	CallRelease:    "CallRelease",
	CallDisconnect: "CallDisconnect",
	CallFailure:    "CallFailure",
	CallHold:       "CallHold",
	CallNohold:     "CallNohold",
	DTMFKeyDown:    "DTMFKeyDown",
	DTMFKeyUp:      "DTMFKeyUp",
	DTMFSync:       "DTMFSync",
	ToneStart:      "ToneStart",
	ToneStop:       "ToneStop",
	ToneSync:       "ToneSync",
	AudioIdle:      "AudioIdle",
	AudioActive:    "AudioActive",
}

func (id ID) String() string {
	if s, ok := names[id]; ok {
		return s
	}
	return "Event(" + strconv.Itoa(int(id)) + ")"
}

// ParseID resolves an event name as returned by ID.String.
func ParseID(s string) (ID, bool) {
	for id, name := range names {
		if name == s {
			return id, true
		}
	}
	return 0, false
}

// Name returns the snake case form of the event name, e.g. "dtmf_key_up".
func (id ID) Name() string {
	return strcase.SnakeCase(id.String())
}

// ParseName resolves an event name given in snake case or as returned by ID.String.
func ParseName(s string) (ID, bool) {
	if id, ok := ParseID(s); ok {
		return id, true
	}
	for id, name := range names {
		if strcase.SnakeCase(name) == s {
			return id, true
		}
	}
	return 0, false
}

// Payload is the kind specific part of an event.
type Payload interface {
	payload()
}

// DTMF carries a detected key. Digits 0-9 are the numeric keys, 10 is '*',
// 11 is '#' and 12-15 are the A-D keys.
type DTMF struct {
	Digit    uint
	Duration uint
	E1, E2   uint
}

type Tone struct {
	Tone     uint
	Energy   uint
	Duration uint
	Name     string
}

type Ring struct {
	Digit    uint
	Duration uint
}

// Status is the generic result payload of timers, processes and line changes.
type Status struct {
	OK     bool
	Status int
	PID    int
	FD     uintptr
	Reason ID
	Error  string
}

func (DTMF) payload()   {}
func (Tone) payload()   {}
func (Ring) payload()   {}
func (Status) payload() {}

type Event struct {
	ID      ID
	Payload Payload
}

func New(id ID, p Payload) *Event {
	return &Event{ID: id, Payload: p}
}

func (e *Event) DTMF() (DTMF, bool) {
	d, ok := e.Payload.(DTMF)
	return d, ok
}

func (e *Event) Tone() (Tone, bool) {
	t, ok := e.Payload.(Tone)
	return t, ok
}

func (e *Event) Ring() (Ring, bool) {
	r, ok := e.Payload.(Ring)
	return r, ok
}

func (e *Event) Status() (Status, bool) {
	s, ok := e.Payload.(Status)
	return s, ok
}

const digits = "0123456789*#ABCD"

// DigitRune maps a DTMF digit code onto its key.
func DigitRune(d uint) (byte, bool) {
	if d >= uint(len(digits)) {
		return 0, false
	}
	return digits[d], true
}

// ParseDigit maps a key onto its DTMF digit code.
func ParseDigit(c byte) (uint, bool) {
	for i := 0; i < len(digits); i++ {
		if digits[i] == c {
			return uint(i), true
		}
	}
	return 0, false
}

// Branches returns the script event branch names an event is dispatched to,
// most specific first.
func (e *Event) Branches() []string {
	switch e.ID {
	case DTMFKeyUp:
		if d, ok := e.DTMF(); ok {
			if c, ok := DigitRune(d.Digit); ok {
				return []string{string(c), "dtmf"}
			}
		}
		return []string{"dtmf"}
	case TimerExpired:
		return []string{"timeout"}
	case ToneStart:
		if t, ok := e.Tone(); ok && t.Name != "" {
			return []string{t.Name, "tone"}
		}
		return []string{"tone"}
	case RingStart, RingSignal:
		return []string{"ring"}
	case StopDisconnect, CallRelease, CallDisconnect, LineOnhook:
		return []string{"hangup"}
	case CallFailure, StopFailed:
		return []string{"fail", "error"}
	case SignalText:
		return []string{"signal"}
	case AudioIdle:
		return []string{"silence"}
	case AudioActive:
		return []string{"audio"}
	case CallHold:
		return []string{"hold"}
	case CallNohold:
		return []string{"unhold"}
	}
	return nil
}
