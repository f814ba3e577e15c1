package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ivrplatform/goivr/pkg/library"
	"github.com/ivrplatform/goivr/pkg/settings"
	"github.com/ivrplatform/goivr/pkg/timeslot"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zapcore"
)

func TestParseConfig(t *testing.T) {
	var out bytes.Buffer
	cfg, err := parseConfig([]string{
		"--scripts", "/srv/scripts", "--timeslots", "8", "--entry", "inbound",
		"--queue-size", "32", "--api-address", ":9000", "--stacking", "30", "-l", "debug",
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "/srv/scripts", cfg.scripts)
	assert.Equal(t, ":9000", cfg.apiAddress)
	assert.Equal(t, settings.TimeslotSettings{Count: 8, Entry: "inbound", QueueSize: 32}, cfg.timeslots)
	assert.Equal(t, 30, cfg.script.Stacking)
	assert.Equal(t, settings.DefaultStepping, cfg.script.Stepping)
	assert.Equal(t, zapcore.DebugLevel, cfg.logging.Level)
	assert.Equal(t, defaultLoadTimeout, cfg.loadTimeout)

	cfg, err = parseConfig(nil, &out)
	require.NoError(t, err)
	assert.Equal(t, defaultScripts, cfg.scripts)
	assert.Equal(t, settings.DefaultTimeslotSettings(), cfg.timeslots)

	for _, args := range [][]string{
		{"--timeslots", "0"},
		{"--entry", ""},
		{"--queue-size", "0"},
		{"--stepping", "0"},
		{"--log-level", "loud"},
		{"--bogus"},
	} {
		_, err := parseConfig(args, &out)
		assert.Error(t, err, "%v", args)
	}

	out.Reset()
	cfg, err = parseConfig([]string{"--help"}, &out)
	require.NoError(t, err)
	assert.True(t, cfg.showHelp)
	assert.Contains(t, out.String(), "Usage: ivrd")
}

func TestLoadLibrary(t *testing.T) {
	defer goleak.VerifyNone(t)
	timeslot.Init()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/scripts/main.scr", []byte("@main\n  answer\n"), 0644))
	lib := library.New(fs, "/scripts", settings.DefaultScriptSettings())
	defer lib.Close()
	require.NoError(t, loadLibrary(context.Background(), lib, time.Second))
	h := lib.Acquire()
	require.NotNil(t, h)
	defer h.Release()
	assert.NotNil(t, h.Image().Lookup("main"))
	assert.Empty(t, h.Image().Errors())
}

func TestLoadLibraryRetries(t *testing.T) {
	defer goleak.VerifyNone(t)
	fs := afero.NewMemMapFs()
	lib := library.New(fs, "/late", settings.DefaultScriptSettings())
	defer lib.Close()

	err := loadLibrary(context.Background(), lib, 300*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `failed to load scripts from "/late"`)
	assert.Nil(t, lib.Acquire())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, loadLibrary(ctx, lib, time.Minute))

	go func() {
		time.Sleep(150 * time.Millisecond)
		_ = afero.WriteFile(fs, "/late/main.scr", []byte("@main\n  nop\n"), 0644)
	}()
	require.NoError(t, loadLibrary(context.Background(), lib, 5*time.Second))
	h := lib.Acquire()
	require.NotNil(t, h)
	h.Release()
}
