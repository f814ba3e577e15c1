package main

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func runScriptc(t *testing.T, fs afero.Fs, args ...string) (int, string, string) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })
	var stdout, stderr bytes.Buffer
	code := run(fs, append([]string{"--log-level", "error"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCompileAndDump(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/s/start.scr", []byte("@start\n  pause 1000\n^hangup\n  exit\n"), 0644))

	code, out, errOut := runScriptc(t, fs, "/s/start.scr")
	assert.Equal(t, exitOK, code)
	assert.Empty(t, out)
	assert.Empty(t, errOut)

	code, out, errOut = runScriptc(t, fs, "--dump", "/s/start.scr")
	assert.Equal(t, exitOK, code)
	assert.Empty(t, errOut)
	assert.Contains(t, out, `"/s/start.scr": 0 errors`)
	assert.Contains(t, out, "label @start (start)\n  000 pause 1000\n  ^hangup\n    000 exit\n")
}

func TestCompileErrorsExit(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/s/bad.scr", []byte("@main\n  bogus\n  answer\n"), 0644))
	code, _, errOut := runScriptc(t, fs, "/s/bad.scr")
	assert.Equal(t, exitErrors, code)
	assert.Equal(t, "bad:2: unknown keyword \"bogus\"\n", errOut)
}

func TestSharedDefinitions(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/s/defs.def", []byte("define greet name=world\n  nop\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/s/main.scr", []byte("@main\n  greet name=bob\n"), 0644))

	code, _, errOut := runScriptc(t, fs, "/s/main.scr")
	assert.Equal(t, exitErrors, code)
	assert.Contains(t, errOut, `unknown keyword "greet"`)

	code, out, errOut := runScriptc(t, fs, "--defs", "/s/defs.def", "-d", "/s/main.scr")
	assert.Equal(t, exitOK, code)
	assert.Empty(t, errOut)
	assert.Contains(t, out, "define greet")
	assert.Contains(t, out, "000 greet =name bob -> greet")
}

func TestUsage(t *testing.T) {
	fs := afero.NewMemMapFs()
	code, _, errOut := runScriptc(t, fs)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, "Usage: scriptc")

	code, _, _ = runScriptc(t, fs, "--stacking", "0", "/x.scr")
	assert.Equal(t, exitUsage, code)

	code, _, _ = runScriptc(t, fs, "--no-such-flag")
	assert.Equal(t, exitUsage, code)

	code, _, errOut = runScriptc(t, fs, "/missing.scr")
	assert.Equal(t, exitErrors, code)
	assert.Contains(t, errOut, "/missing.scr")

	code, out, _ := runScriptc(t, fs, "--version")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "scriptc v0.0.0\n", out)
}
