package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranches(t *testing.T) {
	for _, test := range []struct {
		ev       *Event
		expected []string
	}{
		{New(DTMFKeyUp, DTMF{Digit: 5}), []string{"5", "dtmf"}},
		{New(DTMFKeyUp, DTMF{Digit: 10}), []string{"*", "dtmf"}},
		{New(DTMFKeyUp, DTMF{Digit: 11}), []string{"#", "dtmf"}},
		{New(DTMFKeyUp, DTMF{Digit: 99}), []string{"dtmf"}},
		{New(TimerExpired, nil), []string{"timeout"}},
		{New(ToneStart, Tone{Name: "busy"}), []string{"busy", "tone"}},
		{New(ToneStart, Tone{}), []string{"tone"}},
		{New(CallRelease, nil), []string{"hangup"}},
		{New(EnterState, nil), nil},
	} {
		assert.Equal(t, test.expected, test.ev.Branches(), "event %s", test.ev.ID)
	}
}

func TestIDString(t *testing.T) {
	assert.Equal(t, "DTMFKeyUp", DTMFKeyUp.String())
	assert.Equal(t, "Event(42)", ID(42).String())
	id, ok := ParseID("RingStart")
	require.True(t, ok)
	assert.Equal(t, RingStart, id)
	_, ok = ParseID("Nope")
	assert.False(t, ok)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "dtmf_key_up", DTMFKeyUp.Name())
	assert.Equal(t, "ring_start", RingStart.Name())
	for _, test := range []struct {
		name string
		id   ID
		ok   bool
	}{
		{"dtmf_key_up", DTMFKeyUp, true},
		{"DTMFKeyUp", DTMFKeyUp, true},
		{"line_offhook", LineOffhook, true},
		{"call_disconnect", CallDisconnect, true},
		{"timer_expired", TimerExpired, true},
		{"no_such_event", 0, false},
		{"", 0, false},
	} {
		id, ok := ParseName(test.name)
		assert.Equal(t, test.ok, ok, test.name)
		assert.Equal(t, test.id, id, test.name)
	}
}

func TestDigits(t *testing.T) {
	d, ok := ParseDigit('#')
	require.True(t, ok)
	assert.Equal(t, uint(11), d)
	c, ok := DigitRune(d)
	require.True(t, ok)
	assert.Equal(t, byte('#'), c)
	_, ok = ParseDigit('x')
	assert.False(t, ok)
}

func TestPayloadAccessors(t *testing.T) {
	ev := New(ToneStart, Tone{Tone: 3, Name: "dialtone"})
	_, ok := ev.DTMF()
	assert.False(t, ok)
	tone, ok := ev.Tone()
	require.True(t, ok)
	assert.Equal(t, uint(3), tone.Tone)

	st, ok := New(TimerExpired, Status{Status: 7}).Status()
	require.True(t, ok)
	assert.Equal(t, 7, st.Status)
}
