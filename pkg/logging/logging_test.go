package logging

import (
	"bytes"
	"testing"

	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParameters(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	p := Parameters{}
	p.Initialize(fs)
	require.NoError(t, fs.Parse([]string{"--log-level", "debug", "--log-dev"}))
	require.NoError(t, p.Parse())
	assert.Equal(t, zapcore.DebugLevel, p.Level)
	assert.True(t, p.Development)

	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	p = Parameters{}
	p.Initialize(fs)
	require.NoError(t, fs.Parse([]string{"-l", "loud"}))
	assert.Error(t, p.Parse())
}

func TestSetupLogger(t *testing.T) {
	prev := zap.L()
	defer zap.ReplaceGlobals(prev)

	buf := new(bytes.Buffer)
	_, sugar := setupLogger(Parameters{Level: zapcore.WarnLevel}, buf)
	sugar.Info("hidden")
	zap.S().Named(ScriptNamespace).Warnf("visible %d", 1)
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible 1")
	assert.Contains(t, out, ScriptNamespace)
}

func TestFilteredLogger(t *testing.T) {
	prev := zap.L()
	defer zap.ReplaceGlobals(prev)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	p := Parameters{}
	p.Initialize(fs)
	require.NoError(t, fs.Parse([]string{"--log-level", "debug", "--log-filter", "*:COMPILE"}))
	require.NoError(t, p.Parse())

	buf := new(bytes.Buffer)
	setupLogger(p, buf)
	zap.S().Named(ScriptNamespace).Info("script entry")
	zap.S().Named(CompileNamespace).Debug("compile entry")
	out := buf.String()
	assert.NotContains(t, out, "script entry")
	assert.Contains(t, out, "compile entry")
}
