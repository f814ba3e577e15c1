package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvironString(t *testing.T) {
	s := DefaultScriptSettings()
	require.NoError(t, FromEnvironString(&s, "stacking=30  decimals=4"))
	assert.Equal(t, 30, s.Stacking)
	assert.Equal(t, 4, s.Decimals)
	assert.Equal(t, DefaultStepping, s.Stepping)
	require.NoError(t, s.Validate())

	assert.Error(t, FromEnvironString(&s, "stacking"))
	assert.Error(t, FromEnvironString(&s, "stacking=x"))
	assert.Error(t, FromEnvironString(&s, "colour=3"))
}

func TestValidate(t *testing.T) {
	for _, fn := range []func(*ScriptSettings){
		func(s *ScriptSettings) { s.Stacking = 0 },
		func(s *ScriptSettings) { s.Stepping = -1 },
		func(s *ScriptSettings) { s.Decimals = 17 },
		func(s *ScriptSettings) { s.Paging = 0 },
	} {
		s := DefaultScriptSettings()
		ApplySettings(&s, fn)
		assert.Error(t, s.Validate())
	}
	assert.NoError(t, DefaultTimeslotSettings().Validate())
	ts := DefaultTimeslotSettings()
	ts.Entry = ""
	assert.Error(t, ts.Validate())
}
